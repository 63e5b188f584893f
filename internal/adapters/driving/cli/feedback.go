package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/manualkit/internal/core/domain"
)

var (
	feedbackStep      int
	feedbackComments  string
	feedbackIssues    []string
	feedbackStatsJSON bool
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback [product-id] [rating]",
	Short: "Rate an analysed installation step",
	Long:  `Records a 1-5 rating for a product's installation step analysis.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runFeedback,
}

var feedbackStatsCmd = &cobra.Command{
	Use:   "stats [product-id]",
	Short: "Show aggregated feedback ratings",
	Long:  `Aggregates recorded ratings for one product, or for all products when no id is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFeedbackStats,
}

func init() {
	feedbackCmd.Flags().IntVarP(&feedbackStep, "step", "s", 1, "installation step number")
	feedbackCmd.Flags().StringVar(&feedbackComments, "comments", "", "free-form comments")
	feedbackCmd.Flags().StringSliceVar(&feedbackIssues, "issue", nil, "reported issue (repeatable)")
	feedbackStatsCmd.Flags().BoolVar(&feedbackStatsJSON, "json", false, "output as JSON")
	feedbackCmd.AddCommand(feedbackStatsCmd)
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedback(cmd *cobra.Command, args []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	var rating int
	if _, err := fmt.Sscanf(args[1], "%d", &rating); err != nil || rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be an integer between 1 and 5")
	}

	fb := domain.Feedback{
		ProductID:      args[0],
		StepNumber:     feedbackStep,
		Rating:         rating,
		Comments:       feedbackComments,
		ReportedIssues: feedbackIssues,
	}

	id, err := assistantService.SubmitFeedback(context.Background(), fb)
	if err != nil {
		return fmt.Errorf("feedback failed: %w", err)
	}
	cmd.Printf("Feedback recorded (%s)\n", id)
	return nil
}

func runFeedbackStats(cmd *cobra.Command, args []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	var productID string
	if len(args) > 0 {
		productID = args[0]
	}

	stats, err := assistantService.FeedbackStats(context.Background(), productID)
	if err != nil {
		return fmt.Errorf("feedback stats failed: %w", err)
	}

	if feedbackStatsJSON {
		return printJSON(cmd, stats)
	}

	if stats.TotalSubmissions == 0 {
		cmd.Println("No feedback recorded.")
		return nil
	}
	cmd.Printf("Submissions:    %d\n", stats.TotalSubmissions)
	cmd.Printf("Average rating: %.2f\n", stats.AverageRating)
	return nil
}
