package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/cchalm/chat-console/internal/ai"
	"github.com/cchalm/chat-console/internal/backend"
	"github.com/cchalm/chat-console/internal/config"
	"github.com/cchalm/chat-console/internal/dispatch"
	"github.com/cchalm/chat-console/internal/telemetry"
	"github.com/cchalm/chat-console/internal/transport"
)

func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup graceful shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		select {
		case <-interrupt:
		case <-ctx.Done():
			signal.Stop(interrupt)
			return
		}
		log.Println("Interrupt signal detected, shutting down gracefully...")
		cancel()
		<-interrupt
		log.Fatal("Forcing shutdown")
	}()

	return ctx, cancel
}

func createHTTPClient(c config.Config) *http.Client {
	return &http.Client{
		Transport: transport.WithRequestLogging(nil, "chat-console/"+versionInfo.version),
		Timeout:   c.RequestTimeout,
	}
}

func createTelemetryProvider(ctx context.Context, c config.Config) (*telemetry.Provider, error) {
	telemetryConfig := telemetry.TelemetryConfig{
		Enabled:        c.TelemetryEnabled,
		Endpoint:       c.TelemetryEndpoint,
		Insecure:       c.TelemetryInsecure,
		ServiceVersion: versionInfo.version,
	}
	return telemetry.NewProvider(ctx, telemetryConfig)
}

// createRegistry creates an adapter for every backend the configuration enables
func createRegistry(c config.Config) (*backend.Registry, error) {
	registry, err := backend.NewRegistry()
	if err != nil {
		return nil, err
	}

	if c.LegacyURL != "" {
		legacy, err := backend.NewLegacyAdapter(c.LegacyURL)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(legacy); err != nil {
			return nil, err
		}
	}
	if c.AgentURL != "" {
		if err := registry.Register(backend.NewAgentAdapter(c.AgentURL)); err != nil {
			return nil, err
		}
	}
	if c.AnthropicAPIKey != "" {
		claude, err := backend.NewClaudeAdapter(c.AnthropicBaseURL, c.AnthropicAPIKey, anthropic.Model(c.AnthropicModel), c.AnthropicMaxTokens)
		if err != nil {
			return nil, fmt.Errorf("failed to create Claude adapter: %w", err)
		}
		if err := registry.Register(claude); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// createDispatchService wires the transport and telemetry behind a dispatch service. The returned
// function flushes telemetry and must be called on exit.
func createDispatchService(ctx context.Context) (*dispatch.Service, func(), error) {
	provider, err := createTelemetryProvider(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Failed to shut down telemetry: %v", err)
		}
	}

	service := dispatch.NewService(
		dispatch.NewHTTPTransport(createHTTPClient(cfg)),
		dispatch.WithTracer(provider.Tracer()),
	)
	return service, shutdown, nil
}

// newConversation creates a conversation over the configured backends
func newConversation(ctx context.Context, opts ...ai.Option) (*ai.Conversation, func(), error) {
	registry, err := createRegistry(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure backends: %w", err)
	}
	service, shutdown, err := createDispatchService(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts = append([]ai.Option{
		ai.WithGreeting(cfg.Greeting),
		ai.WithBackendMode(cfg.DefaultBackend),
	}, opts...)
	return ai.NewConversation(service, registry, opts...), shutdown, nil
}
