package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/cchalm/chat-console/internal/config"
)

var cfg = config.Config{}

// flagOverrides holds command line values that take precedence over the environment
var flagOverrides struct {
	backend   string
	legacyURL string
	agentURL  string
	timeout   time.Duration
	greeting  string
	logFile   string
	exportDir string
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagOverrides.backend, "backend", "", "Backend to start with: legacy, agent or claude (env CHAT_DEFAULT_BACKEND)")
	flags.StringVar(&flagOverrides.legacyURL, "legacy-url", "", "Base URL of the legacy chat service (env CHAT_LEGACY_URL)")
	flags.StringVar(&flagOverrides.agentURL, "agent-url", "", "URL of the agent endpoint (env CHAT_AGENT_URL)")
	flags.DurationVar(&flagOverrides.timeout, "timeout", 0, "Timeout for a single request (env CHAT_REQUEST_TIMEOUT)")
	flags.StringVar(&flagOverrides.greeting, "greeting", "", "Greeting the conversation starts with (env CHAT_GREETING)")
}

// applyFlagOverrides copies flags the user set explicitly over the environment configuration
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		c.DefaultBackend = flagOverrides.backend
	}
	if flags.Changed("legacy-url") {
		c.LegacyURL = flagOverrides.legacyURL
	}
	if flags.Changed("agent-url") {
		c.AgentURL = flagOverrides.agentURL
	}
	if flags.Changed("timeout") {
		c.RequestTimeout = flagOverrides.timeout
	}
	if flags.Changed("greeting") {
		c.Greeting = flagOverrides.greeting
	}
	if f := flags.Lookup("log-file"); f != nil && f.Changed {
		c.LogFile = flagOverrides.logFile
	}
}
