package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/catalog"
	"github.com/marmos91/dittogrid/pkg/config"
	"github.com/marmos91/dittogrid/pkg/session"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath   string
	logLevel     string
	outputFormat string

	// Account overrides
	accountHost string
	accountPort int
	accountZone string
	accountUser string

	// Loaded by the persistent pre-run
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dittogrid",
	Short: "Browse a data grid catalog",
	Long: `dittogrid is a read-only client for a data grid catalog server.

It resolves logical paths, lists collections (including mounted, linked and
struct-file collections), counts their children and exports whole subtrees
as NDJSON to a local file or S3.

Commands:
  stat      Describe one logical path
  ls        List the children of a collection
  count     Count the children of a collection
  tree      Print a collection subtree
  export    Export a subtree as NDJSON
  config    Manage the configuration file`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "init" {
			return nil
		}
		return loadConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Interrupts cancel in-flight listings.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/dittogrid/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json)")

	rootCmd.PersistentFlags().StringVar(&accountHost, "host", "", "catalog server host")
	rootCmd.PersistentFlags().IntVar(&accountPort, "port", 0, "catalog server port")
	rootCmd.PersistentFlags().StringVar(&accountZone, "zone", "", "account zone")
	rootCmd.PersistentFlags().StringVarP(&accountUser, "user", "u", "", "account user name")
}

// loadConfig loads the configuration, applies flag overrides and configures
// logging.
func loadConfig(cmd *cobra.Command) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		loaded.Logging.Level = logLevel
	}
	if flags.Changed("host") {
		loaded.Account.Host = accountHost
	}
	if flags.Changed("port") {
		loaded.Account.Port = accountPort
	}
	if flags.Changed("zone") {
		loaded.Account.Zone = accountZone
	}
	if flags.Changed("user") {
		loaded.Account.User = accountUser
	}
	if outputFormat != "text" && outputFormat != "json" {
		return fmt.Errorf("unknown output format %q", outputFormat)
	}

	config.ApplyDefaults(loaded)
	if err := config.Validate(loaded); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := configureLogging(loaded.Logging); err != nil {
		return err
	}

	cfg = loaded
	return nil
}

func configureLogging(lc config.LoggingConfig) error {
	logger.SetLevel(lc.Level)
	logger.SetFormat(lc.Format)

	switch lc.Output {
	case "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		f, err := os.OpenFile(lc.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(f)
	}
	return nil
}

// catalogClient is an open session and the catalog service on top of it.
type catalogClient struct {
	session *session.Session
	catalog *catalog.Service
	metrics *config.MetricsResult
	stop    context.CancelFunc
}

// connect dials the configured account and starts the metrics server when
// enabled.
func connect(ctx context.Context) (*catalogClient, error) {
	m := config.InitializeMetrics(cfg)

	metricsCtx, stop := context.WithCancel(ctx)
	if m.Server != nil {
		go func() {
			if err := m.Server.Start(metricsCtx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	sess, err := session.Dial(ctx, config.NewSessionConfig(cfg), m.SessionMetrics)
	if err != nil {
		stop()
		return nil, err
	}
	logger.Debug("Session %s connected to %s as %s#%s",
		sess.ID(), cfg.Account.Host, cfg.Account.User, cfg.Account.Zone)

	return &catalogClient{
		session: sess,
		catalog: catalog.NewService(sess, nil, config.CatalogOptions(cfg), m.CatalogMetrics),
		metrics: m,
		stop:    stop,
	}, nil
}

func (c *catalogClient) Close() {
	if err := c.session.Close(); err != nil {
		logger.Debug("Session close: %v", err)
	}
	c.stop()
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatTime renders catalog timestamps; zero times print as "-".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
