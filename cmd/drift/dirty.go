package main

import (
	"context"
	"fmt"

	"github.com/hyperengineering/drift/internal/validation"
	"github.com/spf13/cobra"
)

var dirtyInvert bool

var dirtyCmd = &cobra.Command{
	Use:   "dirty <collection>",
	Short: "List IDs of locally modified records in a collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runDirty,
}

func init() {
	dirtyCmd.Flags().BoolVar(&dirtyInvert, "clean", false,
		"List clean (unmodified) record IDs instead")
}

func runDirty(cmd *cobra.Command, args []string) error {
	collection := args[0]
	if verr := validation.ValidateName("collection", collection); verr != nil {
		return verr
	}
	ctx := context.Background()

	_, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	tgt := newTarget()

	var ids []string
	if dirtyInvert {
		ids, err = tgt.NonDirtyRecordIDs(ctx, db, collection)
	} else {
		ids, err = tgt.DirtyRecordIDs(ctx, db, collection)
	}
	if err != nil {
		return fmt.Errorf("resolve record IDs: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"collection": collection,
			"ids":        ids,
			"total":      len(ids),
		})
	}

	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}
