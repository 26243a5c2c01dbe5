package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-collection record counts and dirty totals",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	tgt := newTarget()

	collections, err := db.Collections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	type collectionStatus struct {
		Name  string `json:"name"`
		Count int64  `json:"count"`
		Dirty int    `json:"dirty"`
	}

	statuses := make([]collectionStatus, 0, len(collections))
	for _, name := range collections {
		count, err := db.CountRecords(ctx, name)
		if err != nil {
			return fmt.Errorf("count records in %s: %w", name, err)
		}
		dirty, err := tgt.DirtyRecordIDs(ctx, db, name)
		if err != nil {
			return fmt.Errorf("resolve dirty set for %s: %w", name, err)
		}
		statuses = append(statuses, collectionStatus{
			Name:  name,
			Count: count,
			Dirty: len(dirty),
		})
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"collections": statuses,
			"total":       len(statuses),
		})
	}

	if len(statuses) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No collections found.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "COLLECTION\tRECORDS\tDIRTY")
	for _, s := range statuses {
		fmt.Fprintf(w, "%s\t%d\t%d\n", s.Name, s.Count, s.Dirty)
	}
	w.Flush()

	return nil
}
