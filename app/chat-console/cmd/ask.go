package cmd

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Send a single prompt and print the reply",
	Long: `Sends one prompt to the selected backend and prints the reply. If no prompt is given on
the command line it is read from standard input. Exits with an error if the backend could not
produce a reply.`,
	PreRunE: loadRootConfig,
	RunE:    runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupContext()
	defer cancel()

	prompt := strings.Join(args, " ")
	if strings.TrimSpace(prompt) == "" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read prompt from stdin: %w", err)
		}
		prompt = string(b)
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("prompt is empty")
	}

	registry, err := createRegistry(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure backends: %w", err)
	}
	adapter, ok := registry.Get(cfg.DefaultBackend)
	if !ok {
		return fmt.Errorf("backend '%s' is not configured", cfg.DefaultBackend)
	}
	service, shutdown, err := createDispatchService(ctx)
	if err != nil {
		return err
	}
	defer shutdown()

	log.Printf("Sending prompt to %s backend", adapter.Mode())
	outcome := service.Send(ctx, prompt, adapter)
	if !outcome.OK {
		return fmt.Errorf("%s", outcome.Text)
	}

	fmt.Fprintln(cmd.OutOrStdout(), outcome.Text)
	return nil
}
