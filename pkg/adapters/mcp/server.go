package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/anchorsync"
	"github.com/aretw0/anchorsync/internal/logging"
	"github.com/aretw0/anchorsync/pkg/domain"
	"github.com/aretw0/anchorsync/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SessionsURI is the resource listing stored sessions.
const SessionsURI = "anchorsync://sessions"

// Controller defines the session operations exposed as MCP tools.
type Controller interface {
	Tick(ctx context.Context, sessionID string, input *domain.TouchInput) (*domain.Session, error)
	SubmitIdentifier(ctx context.Context, sessionID, identifier string) (*domain.Session, error)
	Session(ctx context.Context, sessionID string) (*domain.Session, error)
	Sessions(ctx context.Context) ([]string, error)
}

// SessionResponse is the structured result of every tool.
type SessionResponse struct {
	Session *domain.Session `json:"session" jsonschema_description:"The session snapshot after the call"`
}

// TickArgs are the arguments of the tick tool.
type TickArgs struct {
	SessionID string  `json:"session_id"`
	Touch     bool    `json:"touch"`
	OverUI    bool    `json:"over_ui"`
	Miss      bool    `json:"miss"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
}

// SubmitArgs are the arguments of the submit_identifier tool.
type SubmitArgs struct {
	SessionID  string `json:"session_id"`
	Identifier string `json:"identifier"`
}

// SessionArgs are the arguments of the get_session tool.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// Server wraps the controller and exposes it as an MCP Server.
type Server struct {
	ctrl      Controller
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger. It must not write to stdout under stdio transport.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(ctrl Controller, opts ...Option) *Server {
	s := &Server{
		ctrl:      ctrl,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("anchorsync-mcp", strings.TrimSpace(anchorsync.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	tickTool := mcp.NewTool("tick",
		mcp.WithDescription("Advance a session by one poll cycle, optionally with a touch. "+
			"A touch on a plane starts hosting; a touch while awaiting resolve starts resolving the last hosted identifier."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to advance")),
		mcp.WithBoolean("touch", mcp.Description("A touch began this cycle")),
		mcp.WithBoolean("over_ui", mcp.Description("The touch landed on a UI element and must be ignored")),
		mcp.WithBoolean("miss", mcp.Description("The touch did not hit a plane")),
		mcp.WithNumber("x", mcp.Description("World X of the touch hit")),
		mcp.WithNumber("y", mcp.Description("World Y of the touch hit")),
		mcp.WithNumber("z", mcp.Description("World Z of the touch hit")),
		mcp.WithOutputSchema[SessionResponse](),
	)
	s.mcpServer.AddTool(tickTool, mcp.NewStructuredToolHandler(s.handleTick))

	submitTool := mcp.NewTool("submit_identifier",
		mcp.WithDescription("Start resolving a cloud anchor identifier, abandoning any operation in progress."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to drive")),
		mcp.WithString("identifier", mcp.Required(), mcp.Description("Cloud anchor identifier")),
		mcp.WithOutputSchema[SessionResponse](),
	)
	s.mcpServer.AddTool(submitTool, mcp.NewStructuredToolHandler(s.handleSubmit))

	getTool := mcp.NewTool("get_session",
		mcp.WithDescription("Read a session snapshot without advancing it."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to read")),
		mcp.WithOutputSchema[SessionResponse](),
	)
	s.mcpServer.AddTool(getTool, mcp.NewStructuredToolHandler(s.handleGetSession))
}

func (s *Server) handleTick(ctx context.Context, request mcp.CallToolRequest, args TickArgs) (SessionResponse, error) {
	if args.SessionID == "" {
		return SessionResponse{}, errors.New("session_id is required")
	}

	var input *domain.TouchInput
	if args.Touch {
		input = &domain.TouchInput{Began: true, OverUI: args.OverUI}
		if !args.Miss {
			input.Pose = &domain.Pose{
				Position: domain.Vector3{X: args.X, Y: args.Y, Z: args.Z},
				Rotation: domain.IdentityRotation,
			}
		}
	}

	session, err := s.ctrl.Tick(ctx, args.SessionID, input)
	if err != nil {
		return SessionResponse{}, fmt.Errorf("tick failed: %w", err)
	}
	return SessionResponse{Session: session}, nil
}

func (s *Server) handleSubmit(ctx context.Context, request mcp.CallToolRequest, args SubmitArgs) (SessionResponse, error) {
	if args.SessionID == "" {
		return SessionResponse{}, errors.New("session_id is required")
	}

	identifier, err := runner.SanitizeInput(strings.TrimSpace(args.Identifier))
	if err == nil && identifier == "" {
		err = errors.New("identifier is required")
	}
	if err != nil {
		s.logger.Warn("MCP submit_identifier: Input rejected", "err", err, "size", len(args.Identifier))
		return SessionResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	session, err := s.ctrl.SubmitIdentifier(ctx, args.SessionID, identifier)
	if err != nil {
		return SessionResponse{}, fmt.Errorf("submit failed: %w", err)
	}
	return SessionResponse{Session: session}, nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (SessionResponse, error) {
	session, err := s.ctrl.Session(ctx, args.SessionID)
	if err != nil {
		return SessionResponse{}, fmt.Errorf("get_session failed: %w", err)
	}
	return SessionResponse{Session: session}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SessionsURI, "Stored Sessions",
		mcp.WithMIMEType("application/json"),
	), s.readSessions)
}

func (s *Server) readSessions(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ids, err := s.ctrl.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	jsonBytes, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SessionsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
