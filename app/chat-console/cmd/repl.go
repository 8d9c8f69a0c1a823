package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cchalm/chat-console/internal/ai"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Chat line by line on standard input and output",
	Long: `Starts a plain line-oriented chat, suitable for pipes and terminals without full-screen
support. Each line is sent as a message and the reply is printed once it arrives.

Commands:
  /mode [name]   show the available backends, or switch to one
  /transcript    print the conversation as markdown
  /quit          leave`,
	PreRunE: loadRootConfig,
	RunE:    runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupContext()
	defer cancel()

	conv, shutdown, err := newConversation(ctx)
	if err != nil {
		return err
	}
	defer shutdown()

	log.Printf("Starting Chat Console in REPL mode with backends %v", cfg.Backends())

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "assistant> %s\n", conv.State().Last().Text)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprintf(out, "[%s] you> ", conv.State().BackendMode)
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if strings.HasPrefix(line, "/") {
			if quit := runReplCommand(out, conv, line); quit {
				break
			}
			continue
		}

		if !conv.Submit(ctx, line) {
			continue
		}
		conv.Wait()
		fmt.Fprintf(out, "assistant> %s\n", conv.State().Last().Text)

		if ctx.Err() != nil {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}

// runReplCommand handles a slash command and reports whether the REPL should exit
func runReplCommand(out io.Writer, conv *ai.Conversation, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/mode":
		if len(fields) == 1 {
			fmt.Fprintf(out, "backends: %s (current: %s)\n", strings.Join(conv.Modes(), ", "), conv.State().BackendMode)
			return false
		}
		if !conv.ToggleBackendMode(fields[1]) {
			fmt.Fprintf(out, "unknown backend '%s', expected one of %s\n", fields[1], strings.Join(conv.Modes(), ", "))
			return false
		}
		fmt.Fprintf(out, "switched to %s\n", fields[1])
	case "/transcript":
		md, err := ai.Transcript(conv.State(), time.Now())
		if err != nil {
			fmt.Fprintf(out, "could not render transcript: %v\n", err)
			return false
		}
		fmt.Fprint(out, md)
	default:
		fmt.Fprintf(out, "unknown command %s\n", fields[0])
	}
	return false
}
