package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/hyperengineering/drift/internal/validation"
	"github.com/spf13/cobra"
)

var purgeForce bool

var purgeCmd = &cobra.Command{
	Use:   "purge <collection> <id>...",
	Short: "Delete records from a collection by ID",
	Long:  "Permanently delete the named records from the local store. Requires --force or interactive confirmation.",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runPurge,
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeForce, "force", false,
		"Skip confirmation prompt")
}

func runPurge(cmd *cobra.Command, args []string) error {
	collection := args[0]
	ids := args[1:]
	if verr := validation.ValidateName("collection", collection); verr != nil {
		return verr
	}
	ctx := context.Background()

	if !purgeForce {
		errOut := cmd.ErrOrStderr()
		fmt.Fprintf(errOut, "WARNING: This will permanently delete %d record(s) from %q.\n", len(ids), collection)
		fmt.Fprint(errOut, "Type the collection name to confirm: ")

		reader := bufio.NewReader(cmd.InOrStdin())
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if strings.TrimSpace(input) != collection {
			return fmt.Errorf("confirmation did not match, aborting")
		}
	}

	_, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	tgt := newTarget()

	if err := tgt.DeleteRecords(ctx, db, collection, ids); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"collection": collection,
			"deleted":    len(ids),
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d record(s) from %s.\n", len(ids), collection)
	return nil
}
