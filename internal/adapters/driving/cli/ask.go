package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/manualkit/internal/core/ports/driving"
)

var (
	askProduct  string
	askSection  string
	askLanguage string
	askTopK     int
	askSafety   bool
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about an indexed manual",
	Long: `Answers a natural-language question using retrieved manual content.
Safety-related questions rank warnings and hazards above other matches.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askProduct, "product", "p", "", "product ID (required)")
	askCmd.Flags().StringVar(&askSection, "section", "", "restrict retrieval to one manual section")
	askCmd.Flags().StringVar(&askLanguage, "language", "en", "answer language")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 5, "number of chunks to retrieve")
	askCmd.Flags().BoolVar(&askSafety, "safety", false, "force safety-priority ranking")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	_ = askCmd.MarkFlagRequired("product")
	rootCmd.AddCommand(askCmd)
}

// askDefaults returns the options used for questions asked inside a
// guided session.
func askDefaults() driving.AskOptions {
	return driving.AskOptions{Language: "en", TopK: 5}
}

func runAsk(cmd *cobra.Command, args []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	ctx := context.Background()
	opts := driving.AskOptions{
		Language:        askLanguage,
		SectionFilter:   askSection,
		SafetySensitive: askSafety,
		TopK:            askTopK,
	}

	answer, err := assistantService.Ask(ctx, args[0], askProduct, opts)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return printJSON(cmd, answer)
	}

	cmd.Println(answer.Answer)
	if len(answer.SafetyWarnings) > 0 {
		cmd.Println()
		for _, warning := range answer.SafetyWarnings {
			cmd.Printf("  ⚠ %s\n", warning)
		}
	}
	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, src := range answer.Sources {
			cmd.Printf("  page %s, %s (%.2f)\n", src.Page, src.Section, src.Relevance)
		}
	}
	cmd.Printf("\nConfidence: %.2f\n", answer.Confidence)
	return nil
}
