package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var guideCmd = &cobra.Command{
	Use:   "guide [product-id]",
	Short: "Start an interactive guided-installation session",
	Long: `Opens an interactive session bound to a product. Plain input is
answered as a question against the manual; slash commands drive the
installation workflow:

  /frame <image> [audio]   analyse an installation photo
  /audio <file>            ask a question by voice clip
  /step <n>                advance to installation step n
  /status                  show session state
  /end                     end the session and exit`,
	Args: cobra.ExactArgs(1),
	RunE: runGuide,
}

func init() {
	rootCmd.AddCommand(guideCmd)
}

func runGuide(cmd *cobra.Command, args []string) error {
	if assistantService == nil || sessionService == nil {
		return errors.New("services not configured")
	}

	ctx := context.Background()
	info, err := sessionService.CreateSession(ctx, args[0])
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	cmd.Printf("Session %s started for %s. Type /end to finish.\n", info.ID, info.ProductName)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := runGuideCommand(ctx, cmd, info.ID, line)
			if err != nil {
				cmd.PrintErrf("error: %v\n", err)
			}
			if done {
				return nil
			}
			continue
		}

		// Plain text is a question against the bound product.
		answer, err := assistantService.Ask(ctx, line, info.ProductID, askDefaults())
		if err != nil {
			cmd.PrintErrf("error: %v\n", err)
			continue
		}
		cmd.Println(answer.Answer)
		for _, warning := range answer.SafetyWarnings {
			cmd.Printf("  ⚠ %s\n", warning)
		}
	}

	// Input closed without /end; end the session anyway.
	return sessionService.EndSession(ctx, info.ID)
}

// runGuideCommand dispatches one slash command. The bool result is true
// when the session is over and the loop should exit.
func runGuideCommand(ctx context.Context, cmd *cobra.Command, sessionID, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/end":
		if err := sessionService.EndSession(ctx, sessionID); err != nil {
			return true, err
		}
		cmd.Println("Session ended.")
		return true, nil

	case "/status":
		info, err := sessionService.Session(ctx, sessionID)
		if err != nil {
			return false, err
		}
		cmd.Printf("Session %s: %s (%s)\n", info.ID, info.Status, info.ProductName)
		return false, nil

	case "/step":
		if len(fields) < 2 {
			return false, errors.New("usage: /step <n>")
		}
		step, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, errors.New("usage: /step <n>")
		}
		if err := sessionService.AdvanceStep(ctx, sessionID, step); err != nil {
			return false, err
		}
		cmd.Printf("Now on step %d.\n", step)
		return false, nil

	case "/frame":
		if len(fields) < 2 {
			return false, errors.New("usage: /frame <image> [audio]")
		}
		frame, err := os.ReadFile(fields[1])
		if err != nil {
			return false, err
		}
		var audio []byte
		if len(fields) > 2 {
			if audio, err = os.ReadFile(fields[2]); err != nil {
				return false, err
			}
		}
		result, err := sessionService.SubmitFrame(ctx, sessionID, frame, audio)
		if err != nil {
			return false, err
		}
		cmd.Println(result.Response)
		for _, alert := range result.Analysis.SafetyAlerts {
			cmd.Printf("  ⚠ %s\n", alert)
		}
		for _, step := range result.NextSteps {
			cmd.Printf("  - %s\n", step)
		}
		return false, nil

	case "/audio":
		if len(fields) < 2 {
			return false, errors.New("usage: /audio <file>")
		}
		audio, err := os.ReadFile(fields[1])
		if err != nil {
			return false, err
		}
		result, err := sessionService.SubmitAudio(ctx, sessionID, audio)
		if err != nil {
			return false, err
		}
		if result.Transcript != "" {
			cmd.Printf("You said: %s\n", result.Transcript)
		}
		cmd.Println(result.Response.Answer)
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
}
