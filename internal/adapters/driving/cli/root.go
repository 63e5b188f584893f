// Package cli provides the cobra command tree for the Manualkit CLI.
// Commands are thin adapters: they parse flags, call core services and
// format output. All behaviour lives behind the driving ports.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/manualkit/internal/core/ports/driving"
	"github.com/custodia-labs/manualkit/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services injected by the composition root before Execute.
var (
	assistantService driving.AssistantService
	sessionService   driving.SessionService
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "manualkit",
	Short: "AI assistant for technical product manuals",
	Long: `Manualkit indexes technical product manuals and answers installation
questions against them. Manuals are ingested as extracted page manifests,
chunked and embedded into an in-memory vector index; questions are answered
with retrieved manual context and safety content is ranked first.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
}

// SetServices injects the core services used by the commands.
func SetServices(assistant driving.AssistantService, sessions driving.SessionService) {
	assistantService = assistant
	sessionService = sessions
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
