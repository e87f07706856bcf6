package tx

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

var (
	readCmd = &cobra.Command{
		Use:   "read [key]",
		Short: "Reads the value for a key",
		Long:  "Reads the committed value for a key. With --tx the pending value written by that transaction is returned instead (if there is one).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			txID, _ := cmd.Flags().GetString("tx")
			if value, found, err := txClient.Read(key, txID); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%t, value=%s\n", key, found, value)
			}
			return nil
		},
	}
	writeCmd = &cobra.Command{
		Use:   "write [key] [value]",
		Short: "Writes the value for a key in a new transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if txID, err := txClient.Write(args[0], []byte(args[1])); err != nil {
				return err
			} else {
				fmt.Printf("State is updated, transaction_id=%s\n", txID)
			}
			return nil
		},
	}
	commitCmd = &cobra.Command{
		Use:   "commit [transaction_id]",
		Short: "Commits a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := txClient.Commit(args[0]); err != nil {
				return err
			}
			fmt.Printf("Committed, transaction_id=%s\n", args[0])
			return nil
		},
	}
	rollbackCmd = &cobra.Command{
		Use:   "rollback [transaction_id]",
		Short: "Rolls back a transaction",
		Long:  "Rolls back a transaction. Committed data is never touched. Without a transaction id the request is only acknowledged.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txID := ""
			if len(args) == 1 {
				txID = args[0]
			}
			if err := txClient.Rollback(txID); err != nil {
				return err
			}
			fmt.Println("Rolled back")
			return nil
		},
	}
	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Prints all committed key-value pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := txClient.Snapshot()
			if err != nil {
				return err
			}
			printEntries(os.Stdout, entries)
			return nil
		},
	}
)

func init() {
	readCmd.Flags().String("tx", "", "transaction to read pending writes from")
}

// printEntries prints the entries sorted by key
func printEntries(w io.Writer, entries map[string][]byte) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "0 keys")
		return
	}
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		fmt.Fprintf(w, "%s=%q\n", key, entries[key])
	}
}
