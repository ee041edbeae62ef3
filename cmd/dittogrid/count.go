package main

import (
	"fmt"
	"os"

	"github.com/marmos91/dittogrid/pkg/config"
	"github.com/marmos91/dittogrid/pkg/walk"
	"github.com/spf13/cobra"
)

var countRecursive bool

var countCmd = &cobra.Command{
	Use:   "count <path>",
	Short: "Count the children of a collection",
	Long: `Count the sub-collections and data objects of a collection.

Data objects with several replicas count once. With --recursive the whole
subtree is walked and summed; linked collections are counted once.

Examples:
  dittogrid count /tempZone/home/alice
  dittogrid count /tempZone/home/alice --recursive`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCount(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(countCmd)

	countCmd.Flags().BoolVarP(&countRecursive, "recursive", "r", false, "count the whole subtree")
}

type countOutput struct {
	Path        string `json:"path"`
	Collections int    `json:"collections"`
	DataObjects int    `json:"data_objects"`
	Recursive   bool   `json:"recursive"`
}

func runCount(cmd *cobra.Command, p string) error {
	ctx := cmd.Context()

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	out := countOutput{Path: p, Recursive: countRecursive}

	if countRecursive {
		totals, err := walk.New(client.catalog, config.NewWalkConfig(cfg)).CountRecursive(ctx, p)
		if err != nil {
			return err
		}
		out.Collections = totals.Collections
		out.DataObjects = totals.DataObjects
	} else {
		status, err := client.catalog.Resolve(ctx, p)
		if err != nil {
			return err
		}
		if out.Collections, err = client.catalog.CountCollectionsUnderStatus(ctx, status); err != nil {
			return err
		}
		if out.DataObjects, err = client.catalog.CountDataObjectsUnderStatus(ctx, status); err != nil {
			return err
		}
	}

	if outputFormat == "json" {
		return printJSON(os.Stdout, out)
	}
	fmt.Printf("%s: %d collections, %d data objects\n", out.Path, out.Collections, out.DataObjects)
	return nil
}
