package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/koopa0/dialtools/internal/config"
	"github.com/koopa0/dialtools/internal/dial"
	"github.com/koopa0/dialtools/internal/log"
	"github.com/koopa0/dialtools/internal/mcp"
	"github.com/koopa0/dialtools/internal/rag"
	"github.com/koopa0/dialtools/internal/tools"
)

// app bundles everything a command needs to run tools: configuration, the
// DIAL client, the tool registry, and the sessions to close on exit.
type app struct {
	cfg      *config.Config
	client   *dial.Client
	registry *tools.Registry
	logger   log.Logger

	sessions []*mcp.Session
}

// newApp loads configuration, connects the configured tool servers, and
// registers every available tool.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := log.New(log.Config{Level: parseLevel(cfg.LogLevel)})

	client := dial.New(cfg.DIAL.Endpoint,
		dial.WithAPIVersion(cfg.DIAL.APIVersion),
		dial.WithLogger(logger))

	a := &app{cfg: cfg, client: client, registry: tools.NewRegistry(), logger: logger}

	err = a.registry.Register(tools.NewRAGTool(client,
		rag.NewCache(cfg.RAG.CacheCapacity),
		tools.RAGConfig{
			ChatDeployment:       cfg.RAG.ChatDeployment,
			EmbeddingsDeployment: cfg.RAG.EmbeddingsDeployment,
			Pipeline: rag.Config{
				ChunkSize:    cfg.RAG.ChunkSize,
				ChunkOverlap: cfg.RAG.ChunkOverlap,
				TopK:         cfg.RAG.TopK,
			},
		}, logger))
	if err != nil {
		return nil, err
	}

	if cfg.Interpreter.ServerURL != "" {
		if err := a.connectInterpreter(ctx); err != nil {
			a.close()
			return nil, err
		}
	}
	for _, server := range cfg.MCPServers {
		if err := a.connectServer(ctx, server); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

// connectInterpreter opens a session to the interpreter server and registers
// the code execution tool.
func (a *app) connectInterpreter(ctx context.Context) error {
	session := mcp.NewSession(a.cfg.Interpreter.ServerURL, mcp.WithLogger(a.logger))
	if err := session.Connect(ctx); err != nil {
		return fmt.Errorf("interpreter server: %w", err)
	}
	a.sessions = append(a.sessions, session)

	descriptors, err := session.Tools(ctx)
	if err != nil {
		return fmt.Errorf("interpreter server: %w", err)
	}
	tool, err := tools.NewCodeInterpreterTool(session, descriptors,
		a.cfg.Interpreter.ToolName, a.client, a.logger)
	if err != nil {
		return fmt.Errorf("interpreter server: %w", err)
	}
	return a.registry.Register(tool)
}

// connectServer opens a session to one external tool server and registers
// every tool it advertises.
func (a *app) connectServer(ctx context.Context, server config.MCPServer) error {
	session := mcp.NewSession(server.URL, mcp.WithLogger(a.logger))
	if err := session.Connect(ctx); err != nil {
		return fmt.Errorf("tool server %s: %w", server.Name, err)
	}
	a.sessions = append(a.sessions, session)

	descriptors, err := session.Tools(ctx)
	if err != nil {
		return fmt.Errorf("tool server %s: %w", server.Name, err)
	}
	for _, descriptor := range descriptors {
		if err := a.registry.Register(tools.NewMCPTool(session, descriptor)); err != nil {
			return fmt.Errorf("tool server %s: %w", server.Name, err)
		}
	}
	a.logger.Debug("tool server connected", "server", server.Name, "tools", len(descriptors))
	return nil
}

// close tears down every open tool server session.
func (a *app) close() {
	for i := len(a.sessions) - 1; i >= 0; i-- {
		_ = a.sessions[i].Close()
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
