package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current bulk operation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		client, err := initShopify()
		if err != nil {
			return err
		}

		op, err := client.CurrentBulkOperation(ctx)
		if err != nil {
			return eris.Wrap(err, "current bulk operation")
		}
		if op == nil {
			fmt.Println("No bulk operation.")
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(op)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
