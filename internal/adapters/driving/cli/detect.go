package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	detectProduct string
	detectStep    int
	detectJSON    bool
)

var detectCmd = &cobra.Command{
	Use:   "detect [image-file]",
	Short: "Analyse an installation photo against a step",
	Long: `Checks an installation photo for the components the given step
expects and reports which are present, misplaced or missing.`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().StringVarP(&detectProduct, "product", "p", "", "product ID (required)")
	detectCmd.Flags().IntVarP(&detectStep, "step", "s", 1, "installation step number")
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "output the result as JSON")
	_ = detectCmd.MarkFlagRequired("product")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	ctx := context.Background()
	result, err := assistantService.Detect(ctx, detectProduct, detectStep, image)
	if err != nil {
		return fmt.Errorf("detect failed: %w", err)
	}

	if detectJSON {
		return printJSON(cmd, result)
	}

	cmd.Printf("Status: %s (confidence %.2f)\n", result.OverallStatus, result.Confidence)
	if len(result.DetectedComponents) > 0 {
		cmd.Println("\nComponents:")
		for _, comp := range result.DetectedComponents {
			cmd.Printf("  %-24s %s (%.2f)\n", comp.Name, comp.Status, comp.Confidence)
		}
	}
	for _, alert := range result.SafetyAlerts {
		cmd.Printf("\n  ⚠ %s\n", alert)
	}
	if len(result.Suggestions) > 0 {
		cmd.Println("\nSuggestions:")
		for _, s := range result.Suggestions {
			cmd.Printf("  - %s\n", s)
		}
	}
	return nil
}
