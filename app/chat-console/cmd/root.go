package cmd

import (
	"errors"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cchalm/chat-console/internal/ai"
	"github.com/cchalm/chat-console/internal/config"
	"github.com/cchalm/chat-console/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:   "chat-console",
	Short: "Terminal chat client for the legacy chat and agent services",
	Long: `Chat Console is a terminal chat client. It keeps a single conversation and sends each
message to one of the configured backends: the legacy chat service, the agent service, or
optionally the Anthropic Messages API. Press tab to switch backends between messages.`,
	PreRunE:      loadRootConfig,
	RunE:         runInteractive,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

// loadRootConfig loads the configuration into cfg. It is the PreRunE of every command that talks to
// a backend.
func loadRootConfig(cmd *cobra.Command, _ []string) error {
	// Load .env file
	if !config.LoadDotEnv() {
		log.Println("No .env file found, using environment variables")
	}

	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlagOverrides(cmd, &c)
	// Flags may have enabled a backend the environment did not
	c.ResolveDefaultBackend()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = c
	return nil
}

func init() {
	rootCmd.Flags().StringVar(&flagOverrides.logFile, "log-file", "", "File logs are written to while the interface is open (env CHAT_LOG_FILE)")
	rootCmd.Flags().StringVar(&flagOverrides.exportDir, "export-dir", ".", "Directory ctrl+s saves transcripts to")
}

func runInteractive(cmd *cobra.Command, args []string) error {
	// The terminal belongs to the interface, so logs go to a file
	logFile, err := tea.LogToFile(cfg.LogFile, "")
	if err != nil {
		return fmt.Errorf("failed to open log file '%s': %w", cfg.LogFile, err)
	}
	defer logFile.Close()

	ctx, cancel := setupContext()
	defer cancel()

	log.Printf("Starting Chat Console with backends %v", cfg.Backends())

	notifier := tui.NewNotifier()
	conv, shutdown, err := newConversation(ctx, ai.WithObserver(notifier.Observe))
	if err != nil {
		return err
	}
	defer shutdown()

	model := tui.New(ctx, conv, notifier, tui.WithExportDir(flagOverrides.exportDir))
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err = program.Run()

	// Abandon any reply still outstanding
	cancel()
	conv.Wait()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("interface failed: %w", err)
	}
	log.Printf("Chat Console exited")
	return nil
}
