package ghserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ClientName identifies this tool to the server during initialize.
const ClientName = "ghmcp"

// ClientVersion is reported during initialize; main overrides it.
var ClientVersion = "dev"

// Conn is an initialized MCP session with the server.
type Conn interface {
	ListTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error)
	Close() error
}

// Dialer starts a server and completes the MCP handshake.
type Dialer func(ctx context.Context, c Command) (Conn, error)

// Tool is the subset of tool metadata the CLI shows.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ReadOnly    bool   `json:"read_only,omitempty"`
}

// ToolResult is the text returned by a successful tool call.
type ToolResult struct {
	Text string
}

// ConnectError reports a failed server start or handshake.
type ConnectError struct {
	Image  string
	Stderr string // tail of the server's stderr, if any
	Err    error
}

func (e *ConnectError) Error() string {
	msg := fmt.Sprintf("MCP handshake with %s failed: %v", e.Image, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += " (server stderr: " + lastLine(s) + ")"
	}
	return msg
}

func (e *ConnectError) Unwrap() error { return e.Err }

// CallError reports a tool call that failed at the protocol level or that
// the server flagged as an error.
type CallError struct {
	Tool    string
	Message string // server-provided error text when IsError was set
	Err     error
}

func (e *CallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("tool %s returned an error: %s", e.Tool, e.Message)
}

func (e *CallError) Unwrap() error { return e.Err }

// Session is a live MCP client session over a container's stdio.
type Session struct {
	cs     *mcp.ClientSession
	stderr *tailBuffer
}

// Dial starts the server container described by c and completes the MCP
// initialize exchange. ctx bounds the handshake only; Close ends the
// container.
func Dial(ctx context.Context, c Command) (Conn, error) {
	stderr := newTailBuffer(4096)

	cmd := exec.Command(c.Runtime, c.Args()...)
	cmd.Stderr = stderr

	slog.Debug("starting MCP server", "command", c.CommandLine())

	client := mcp.NewClient(&mcp.Implementation{Name: ClientName, Version: ClientVersion}, nil)
	cs, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, &ConnectError{Image: c.Image, Stderr: stderr.String(), Err: err}
	}

	if res := cs.InitializeResult(); res != nil && res.ServerInfo != nil {
		slog.Debug("MCP session initialized", "server", res.ServerInfo.Name, "version", res.ServerInfo.Version, "protocol", res.ProtocolVersion)
	}
	return &Session{cs: cs, stderr: stderr}, nil
}

// ListTools returns every tool the server exposes, following pagination.
func (s *Session) ListTools(ctx context.Context) ([]Tool, error) {
	var tools []Tool
	params := &mcp.ListToolsParams{}
	for {
		res, err := s.cs.ListTools(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("listing tools: %w", err)
		}
		for _, t := range res.Tools {
			tool := Tool{Name: t.Name, Description: firstSentence(t.Description)}
			if t.Annotations != nil {
				tool.ReadOnly = t.Annotations.ReadOnlyHint
			}
			tools = append(tools, tool)
		}
		if res.NextCursor == "" {
			return tools, nil
		}
		params = &mcp.ListToolsParams{Cursor: res.NextCursor}
	}
}

// CallTool invokes name with args. Tool-level failures come back as
// *CallError.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	res, err := s.cs.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, &CallError{Tool: name, Err: err}
	}

	text := contentText(res.Content)
	if res.IsError {
		return nil, &CallError{Tool: name, Message: text}
	}
	return &ToolResult{Text: text}, nil
}

// Close ends the session and stops the container.
func (s *Session) Close() error {
	err := s.cs.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func contentText(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".\n"); i >= 0 {
		return s[:i]
	}
	return s
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
