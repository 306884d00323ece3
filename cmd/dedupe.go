package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/luz-active/catalog-cli/internal/dedupe"
	"github.com/luz-active/catalog-cli/internal/model"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Find and remove duplicate catalog entries",
	Long:  "Scans the remote catalog for products sharing a sku tag, keeps the newest copy, and deletes the rest.",
}

var dedupeSkipConfirm bool

var dedupeFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Scan the catalog and write the deletion-candidate file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		client, err := initShopify()
		if err != nil {
			return err
		}

		products, err := client.ListAllProducts(ctx)
		if err != nil {
			return eris.Wrap(err, "list products")
		}

		groups := dedupe.GroupBySKU(products)
		candidates := dedupe.SelectDeletionCandidates(groups)

		data, err := json.MarshalIndent(candidates, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal candidates")
		}
		if err := os.WriteFile(cfg.Dedupe.CandidatesFile, data, 0o644); err != nil {
			return eris.Wrap(err, "write candidates file")
		}

		p := message.NewPrinter(language.English)
		p.Printf("Products scanned:     %d\n", len(products))
		p.Printf("Duplicate sku tags:   %d\n", len(groups.Duplicates))
		p.Printf("Missing sku tag:      %d\n", len(groups.MissingTag))
		p.Printf("Deletion candidates:  %d\n", len(candidates))
		p.Printf("Candidates written to %s\n", cfg.Dedupe.CandidatesFile)
		return nil
	},
}

var dedupeDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the products listed in the candidate file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(cfg.Dedupe.CandidatesFile)
		if err != nil {
			return eris.Wrapf(err, "read candidates file %s (run `dedupe find` first)", cfg.Dedupe.CandidatesFile)
		}
		var candidates []dedupe.Candidate
		if err := json.Unmarshal(data, &candidates); err != nil {
			return eris.Wrap(err, "parse candidates file")
		}
		if len(candidates) == 0 {
			fmt.Println("No deletion candidates.")
			return nil
		}

		if !dedupeSkipConfirm && !confirmDeletion(len(candidates)) {
			fmt.Println("Aborted.")
			return nil
		}

		client, err := initShopify()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		run, err := st.CreateRun(ctx, model.RunKindDedupe)
		if err != nil {
			return eris.Wrap(err, "record run")
		}

		runner := dedupe.NewRunner(client, cfg.Dedupe.DeletionLogFile, cfg.Dedupe.CheckpointEvery)
		dl, runErr := runner.Run(ctx, candidates)

		summary := &model.RunSummary{Duplicates: len(candidates)}
		status := model.RunStatusComplete
		if dl != nil {
			summary.Deletions = len(dl.Successful)
			summary.Failed = len(dl.Failed)
		}
		if runErr != nil {
			status = model.RunStatusFailed
		}
		if err := st.CompleteRun(ctx, run.ID, status, summary); err != nil {
			zap.L().Error("record run completion failed", zap.Error(err))
		}
		if runErr != nil {
			return runErr
		}

		p := message.NewPrinter(language.English)
		p.Printf("Deleted: %d\n", len(dl.Successful))
		p.Printf("Failed:  %d\n", len(dl.Failed))
		p.Printf("Log written to %s\n", cfg.Dedupe.DeletionLogFile)
		return nil
	},
}

// confirmDeletion requires the operator to type DELETE before anything is
// removed from the live catalog.
func confirmDeletion(n int) bool {
	fmt.Printf("About to permanently delete %d products. Type DELETE to confirm: ", n)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	return strings.TrimSpace(scanner.Text()) == "DELETE"
}

func init() {
	dedupeDeleteCmd.Flags().BoolVar(&dedupeSkipConfirm, "yes", false, "skip the interactive confirmation")
	dedupeCmd.AddCommand(dedupeFindCmd)
	dedupeCmd.AddCommand(dedupeDeleteCmd)
	rootCmd.AddCommand(dedupeCmd)
}
