// Package cli provides the gdprqa command line interface.
package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

// WatchFunc runs the pipeline once and again on every input change until
// ctx is done. onRun receives the outcome of each run.
type WatchFunc func(ctx context.Context, opts driving.PipelineOptions, onRun func(*domain.PipelineReport, error)) error

// Services holds the driving ports the commands use. Nil fields disable
// the commands that need them.
type Services struct {
	Pipeline     driving.PipelineService
	Index        driving.IndexService
	Retrieval    driving.RetrievalService
	Assembler    driving.ContextAssembler
	Conversation driving.ConversationService
	QA           driving.QAService
	Settings     driving.SettingsService
	Watch        WatchFunc

	// Metrics is served on /metrics by mcp serve --http. Optional.
	Metrics http.Handler

	// SearchK is the default result count of search and the MCP tool.
	SearchK int
}

var (
	pipelineService     driving.PipelineService
	indexService        driving.IndexService
	retrievalService    driving.RetrievalService
	contextAssembler    driving.ContextAssembler
	conversationService driving.ConversationService
	qaService           driving.QAService
	settingsService     driving.SettingsService
	watchFunc           WatchFunc
	metricsHandler      http.Handler
	defaultSearchK      = 5
)

var (
	verbose bool
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "gdprqa",
	Short: "Ask questions about the GDPR",
	Long: `gdprqa extracts the GDPR documents, chunks and embeds them into a
vector index, and answers questions grounded on the retrieved passages.

Run 'gdprqa index' first, then 'gdprqa chat' or 'gdprqa ask'.`,
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		logger.SetVerbose(verbose)
		logger.SetJSON(logJSON)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")
}

// SetServices wires the driving ports into the commands.
func SetServices(s Services) {
	pipelineService = s.Pipeline
	indexService = s.Index
	retrievalService = s.Retrieval
	contextAssembler = s.Assembler
	conversationService = s.Conversation
	qaService = s.QA
	settingsService = s.Settings
	watchFunc = s.Watch
	metricsHandler = s.Metrics
	if s.SearchK > 0 {
		defaultSearchK = s.SearchK
	}
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command under ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// commandContext returns the command's context, falling back to
// context.Background when the command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// errNotConfigured reports a missing service for a command.
func errNotConfigured(what string) error {
	return errors.New(what + " not configured")
}
