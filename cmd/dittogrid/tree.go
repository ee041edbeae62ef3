package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/catalog"
	"github.com/marmos91/dittogrid/pkg/config"
	"github.com/marmos91/dittogrid/pkg/walk"
	"github.com/spf13/cobra"
)

var (
	treeMaxDepth        int
	treeCollectionsOnly bool
)

var treeCmd = &cobra.Command{
	Use:   "tree <path>",
	Short: "Print a collection subtree",
	Long: `Walk a collection and print every entry below it, indented by depth.

Special collections are entered through their own listing strategy; a
linked collection that leads back into the walk is printed but not entered.

Examples:
  dittogrid tree /tempZone/home/alice
  dittogrid tree / --depth 3 --collections`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTree(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)

	treeCmd.Flags().IntVarP(&treeMaxDepth, "depth", "d", 0, "maximum depth (0 uses the configured walk.max_depth)")
	treeCmd.Flags().BoolVar(&treeCollectionsOnly, "collections", false, "print collections only")
}

func runTree(cmd *cobra.Command, p string) error {
	ctx := cmd.Context()

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	wc := config.NewWalkConfig(cfg)
	if treeMaxDepth > 0 {
		wc.MaxDepth = treeMaxDepth
	}
	if treeCollectionsOnly {
		wc.SkipDataObjects = true
	}

	var entries []entryOutput
	stats, err := walk.New(client.catalog, wc).Walk(ctx, p, func(entry catalog.ListingEntry, depth int) error {
		if outputFormat == "json" {
			entries = append(entries, toEntryOutput(entry))
			return nil
		}

		label := catalog.LastComponent(entry.FullPath())
		if depth == 0 || label == "" {
			label = entry.FullPath()
		}
		if entry.IsCollection() {
			label += "/"
		}
		if entry.SpecialKind != catalog.KindNormal {
			label += " [" + entry.SpecialKind.String() + "]"
		}
		fmt.Printf("%s%s\n", strings.Repeat("  ", depth), label)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Walk finished: %s", stats.Summary())

	if outputFormat == "json" {
		return printJSON(os.Stdout, entries)
	}
	return nil
}
