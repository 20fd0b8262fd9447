package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/infinite-echoes/echoes"
	"github.com/infinite-echoes/echoes/internal/logging"
	"github.com/infinite-echoes/echoes/internal/presentation/graph"
	"github.com/infinite-echoes/echoes/pkg/domain"
	compiled "github.com/infinite-echoes/echoes/pkg/graph"
	"github.com/infinite-echoes/echoes/pkg/runner"
)

// GraphURI is the resource holding the compiled turn graph.
const GraphURI = "echoes://graph"

// PlayTurnArgs are the arguments of the play_turn tool.
type PlayTurnArgs struct {
	SessionID string `json:"session_id"`
	Input     string `json:"input"`
}

// GraphArgs are the arguments of the get_graph tool.
type GraphArgs struct {
	Mermaid bool `json:"mermaid"`
}

// TurnOutput is the structured result of play_turn.
type TurnOutput struct {
	SessionID string            `json:"session_id" jsonschema_description:"The session the turn was played on"`
	RunID     string            `json:"run_id" jsonschema_description:"Identifier of the engine run"`
	Response  string            `json:"response" jsonschema_description:"Narration to show the player"`
	State     map[string]any    `json:"state" jsonschema_description:"Final run state; unset fields are omitted"`
	Changes   *domain.StateDiff `json:"changes,omitempty" jsonschema_description:"What the turn changed"`
}

// GraphOutput describes the compiled graph.
type GraphOutput struct {
	Entry   string              `json:"entry"`
	Nodes   []compiled.NodeInfo `json:"nodes"`
	Mermaid string              `json:"mermaid,omitempty"`
}

// Server exposes a Runner as an MCP server.
type Server struct {
	runner    *runner.Runner
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(r *runner.Runner, opts ...Option) *Server {
	s := &Server{
		runner: r,
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer("echoes-mcp", strings.TrimSpace(echoes.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on Stdin/Stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	playTool := mcp.NewTool("play_turn",
		mcp.WithDescription("Play one turn: send the player's input to a session and get the narrated response."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to play on; created on first use")),
		mcp.WithString("input", mcp.Required(), mcp.Description("What the player says or does")),
		mcp.WithOutputSchema[TurnOutput](),
	)
	s.mcpServer.AddTool(playTool, mcp.NewStructuredToolHandler(s.handlePlayTurn))

	graphTool := mcp.NewTool("get_graph",
		mcp.WithDescription("Get the compiled turn graph for introspection."),
		mcp.WithBoolean("mermaid", mcp.Description("Include a Mermaid flowchart")),
		mcp.WithOutputSchema[GraphOutput](),
	)
	s.mcpServer.AddTool(graphTool, mcp.NewStructuredToolHandler(s.handleGetGraph))

	sessionTool := mcp.NewTool("get_session",
		mcp.WithDescription("Get the stored session: conversation, zone and turn count."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	)
	s.mcpServer.AddTool(sessionTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sess, err := s.runner.Sessions().Load(ctx, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("session %q not found", id)), nil
		}
		if err != nil {
			return nil, err
		}
		jsonBytes, err := json.Marshal(sess)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handlePlayTurn(ctx context.Context, _ mcp.CallToolRequest, args PlayTurnArgs) (TurnOutput, error) {
	res, err := s.runner.Play(ctx, args.SessionID, args.Input)
	if err != nil {
		s.logger.Warn("MCP play_turn failed", "session_id", args.SessionID, "err", err)
		return TurnOutput{}, err
	}
	return TurnOutput{
		SessionID: res.SessionID,
		RunID:     res.RunID,
		Response:  res.Response,
		State:     res.State.Snapshot(),
		Changes:   res.Changes,
	}, nil
}

func (s *Server) handleGetGraph(_ context.Context, _ mcp.CallToolRequest, args GraphArgs) (GraphOutput, error) {
	out := s.describe()
	if args.Mermaid {
		out.Mermaid = graph.GenerateMermaid(s.runner.Engine().Graph(), nil)
	}
	return out, nil
}

func (s *Server) describe() GraphOutput {
	g := s.runner.Engine().Graph()
	return GraphOutput{Entry: g.Entry(), Nodes: g.Describe()}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Turn Graph",
		mcp.WithResourceDescription("The compiled turn graph: nodes, declared fields and routes."),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.describe())
		if err != nil {
			return nil, fmt.Errorf("failed to encode graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
