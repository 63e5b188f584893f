package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/manualkit/internal/core/ports/driving"
	"github.com/custodia-labs/manualkit/internal/manifest"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [manifest.json...]",
	Short: "Ingest extracted manual manifests",
	Long: `Loads one or more extracted manual manifests, chunks and embeds their
pages and adds them to the product index. With several manifests the
ingestion is batched and failures are isolated per product.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	reqs := make([]driving.IngestRequest, 0, len(args))
	for _, path := range args {
		m, err := manifest.Load(path)
		if err != nil {
			return err
		}
		reqs = append(reqs, m.ToRequest())
	}

	ctx := context.Background()

	if len(reqs) == 1 {
		result, err := assistantService.Ingest(ctx, reqs[0])
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		if ingestJSON {
			return printJSON(cmd, result)
		}
		cmd.Printf("Ingested %s: %d pages, %d chunks (%d text, %d image)\n",
			result.ProductID, result.TotalPages, result.DocumentCount,
			result.TextCount, result.ImageCount)
		for _, page := range result.Pages {
			if page.Err != "" {
				cmd.Printf("  page %d failed: %s\n", page.PageNumber, page.Err)
			}
		}
		return nil
	}

	results := assistantService.IngestBatch(ctx, reqs)
	if ingestJSON {
		return printJSON(cmd, results)
	}
	for _, item := range results {
		if item.Err != "" {
			cmd.Printf("%s: %s (%s)\n", item.ProductID, item.Status, item.Err)
			continue
		}
		cmd.Printf("%s: %s, %d chunks\n", item.ProductID, item.Status, item.Result.DocumentCount)
	}
	return nil
}

// printJSON writes v as indented JSON to the command output.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
