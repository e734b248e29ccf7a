package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui"
)

// runApp starts the TUI. Tests replace it to avoid taking the terminal.
var runApp = func(app *tui.App) error {
	return app.Run()
}

var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"tui"},
	Short:   "Launch the interactive GDPR assistant",
	Long: `Launch the terminal chat interface. Answers stream in as they are
generated and every answer lists the passages it was grounded on.

Controls:
  Enter    - Send question
  Tab      - Expand or collapse sources
  Ctrl+L   - Clear the conversation
  Esc      - Back to menu
  Ctrl+C   - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ports := &tui.Ports{
		Conversation: conversationService,
		Assembler:    contextAssembler,
		Search:       retrievalService,
		Settings:     settingsService,
		SearchK:      defaultSearchK,
	}

	app, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(commandContext(cmd))

	if err := runApp(app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
