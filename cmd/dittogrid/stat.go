package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/marmos91/dittogrid/pkg/catalog"
	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Describe one logical path",
	Long: `Resolve a logical path and print its type, special collection kind and
canonical object path.

Examples:
  # A linked collection reports the path it points to
  dittogrid stat /tempZone/home/alice/linked

  # Machine readable
  dittogrid stat /tempZone/home/alice/notes.txt -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStat(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(statCmd)
}

type statOutput struct {
	Path         string `json:"path"`
	Type         string `json:"type"`
	Kind         string `json:"kind"`
	ObjectPath   string `json:"object_path"`
	Collection   string `json:"collection,omitempty"`
	Size         int64  `json:"size"`
	Checksum     string `json:"checksum,omitempty"`
	Owner        string `json:"owner,omitempty"`
	CacheDir     string `json:"cache_dir,omitempty"`
	CreatedAt    string `json:"created_at"`
	ModifiedAt   string `json:"modified_at"`
	ReplicaCount int    `json:"replica_number"`
}

func runStat(cmd *cobra.Command, p string) error {
	client, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	status, err := client.catalog.Resolve(cmd.Context(), p)
	if err != nil {
		return err
	}

	out := statOutput{
		Path:         status.AbsolutePath,
		Type:         status.ObjectType.String(),
		Kind:         status.Kind().String(),
		ObjectPath:   status.ObjectPath,
		Collection:   status.CollectionPath,
		Size:         status.Size,
		Checksum:     status.Checksum,
		CacheDir:     status.CacheDirectory(),
		CreatedAt:    formatTime(status.CreatedAt),
		ModifiedAt:   formatTime(status.ModifiedAt),
		ReplicaCount: status.ReplicaNumber(),
	}
	if status.OwnerName != "" {
		out.Owner = status.OwnerName + "#" + status.OwnerZone
	}

	if outputFormat == "json" {
		return printJSON(os.Stdout, out)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Path:\t%s\n", out.Path)
	fmt.Fprintf(tw, "Type:\t%s\n", out.Type)
	fmt.Fprintf(tw, "Kind:\t%s\n", out.Kind)
	if status.Kind() != catalog.KindNormal || out.ObjectPath != out.Path {
		fmt.Fprintf(tw, "Object path:\t%s\n", out.ObjectPath)
	}
	if status.IsDataObject() {
		fmt.Fprintf(tw, "Size:\t%d\n", out.Size)
		if out.Checksum != "" {
			fmt.Fprintf(tw, "Checksum:\t%s\n", out.Checksum)
		}
	}
	if out.CacheDir != "" {
		fmt.Fprintf(tw, "Cache:\t%s (dirty=%v)\n", out.CacheDir, status.CacheDirty())
	}
	if out.Owner != "" {
		fmt.Fprintf(tw, "Owner:\t%s\n", out.Owner)
	}
	fmt.Fprintf(tw, "Created:\t%s\n", out.CreatedAt)
	fmt.Fprintf(tw, "Modified:\t%s\n", out.ModifiedAt)
	return tw.Flush()
}
