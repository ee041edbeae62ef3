package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/catalog"
	"github.com/spf13/cobra"
)

var (
	lsOffset          int
	lsCollectionsOnly bool
	lsDataObjectsOnly bool
	lsLong            bool
)

var lsCmd = &cobra.Command{
	Use:   "ls <path>",
	Short: "List the children of a collection",
	Long: `List the sub-collections and data objects of a collection.

Without --offset every page is fetched. With --offset a single page is
returned, starting after the given entry count; the last entry's count can
be passed back to resume.

Root-like collections the account cannot read ("/", the zone, the home
root) are synthesized from the account's home unless listing fallback is
disabled in the configuration.

Examples:
  dittogrid ls /tempZone/home/alice
  dittogrid ls /tempZone/home/alice/scratch --data-objects --offset 2
  dittogrid ls / -l`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLs(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().IntVar(&lsOffset, "offset", -1, "return one page starting after this many entries")
	lsCmd.Flags().BoolVar(&lsCollectionsOnly, "collections", false, "list sub-collections only")
	lsCmd.Flags().BoolVar(&lsDataObjectsOnly, "data-objects", false, "list data objects only")
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "long listing format")

	lsCmd.MarkFlagsMutuallyExclusive("collections", "data-objects")
}

func runLs(cmd *cobra.Command, p string) error {
	ctx := cmd.Context()

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	status, err := client.catalog.Resolve(ctx, p)
	if err != nil {
		return err
	}

	var entries []catalog.ListingEntry
	if !lsDataObjectsOnly {
		collections, err := listPage(cmd, client.catalog, status, true)
		if err != nil {
			return err
		}
		entries = append(entries, collections...)
	}
	if !lsCollectionsOnly {
		dataObjects, err := listPage(cmd, client.catalog, status, false)
		if err != nil {
			return err
		}
		entries = append(entries, dataObjects...)
	}

	if len(entries) == 0 && !lsDataObjectsOnly && lsOffset <= 0 {
		synthesized, err := client.catalog.FallbackRootChildren(ctx, status.AbsolutePath)
		switch {
		case err == nil:
			entries = synthesized
		case catalog.IsNotFound(err):
			logger.Debug("No fallback for %s", status.AbsolutePath)
		default:
			return err
		}
	}

	return printEntries(entries)
}

// listPage lists one kind of child, either a single page at --offset or
// every page.
func listPage(cmd *cobra.Command, svc *catalog.Service, status *catalog.ObjectStatus, collections bool) ([]catalog.ListingEntry, error) {
	ctx := cmd.Context()

	if lsOffset >= 0 {
		if collections {
			return svc.ListCollectionsUnderStatus(ctx, status, lsOffset)
		}
		return svc.ListDataObjectsUnderStatus(ctx, status, lsOffset)
	}

	all := svc.AllDataObjectsUnderStatus(ctx, status)
	if collections {
		all = svc.AllCollectionsUnderStatus(ctx, status)
	}

	var entries []catalog.ListingEntry
	for entry, err := range all {
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type entryOutput struct {
	Path              string `json:"path"`
	Name              string `json:"name"`
	Type              string `json:"type"`
	Kind              string `json:"kind"`
	SpecialObjectPath string `json:"special_object_path,omitempty"`
	Owner             string `json:"owner,omitempty"`
	Size              int64  `json:"size"`
	ModifiedAt        string `json:"modified_at"`
	Count             int    `json:"count"`
	LastResult        bool   `json:"last_result"`
	TotalRecords      int    `json:"total_records"`
}

func toEntryOutput(e catalog.ListingEntry) entryOutput {
	out := entryOutput{
		Path:              e.FullPath(),
		Name:              catalog.LastComponent(e.FullPath()),
		Type:              e.ObjectType.String(),
		Kind:              e.SpecialKind.String(),
		SpecialObjectPath: e.SpecialObjectPath,
		Size:              e.Size,
		ModifiedAt:        formatTime(e.ModifiedAt),
		Count:             e.Count,
		LastResult:        e.LastResult,
		TotalRecords:      e.TotalRecords,
	}
	if e.OwnerName != "" {
		out.Owner = e.OwnerName + "#" + e.OwnerZone
	}
	return out
}

func printEntries(entries []catalog.ListingEntry) error {
	if outputFormat == "json" {
		out := make([]entryOutput, 0, len(entries))
		for _, e := range entries {
			out = append(out, toEntryOutput(e))
		}
		return printJSON(os.Stdout, out)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		o := toEntryOutput(e)
		name := o.Name
		if e.IsCollection() {
			name = "C- " + o.Path
		}
		if !lsLong {
			fmt.Fprintln(tw, name)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s", o.Count, o.Owner, o.Size, o.ModifiedAt, name)
		if o.SpecialObjectPath != "" {
			fmt.Fprintf(tw, " -> %s", o.SpecialObjectPath)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
