package ghserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Status is the lifecycle state of a managed server.
type Status string

const (
	StatusStopped      Status = "stopped"
	StatusStarting     Status = "starting"
	StatusRunning      Status = "running"
	StatusError        Status = "error"
	StatusReconnecting Status = "reconnecting"
)

// ErrNoToken is returned when the server is started without a credential.
var ErrNoToken = errors.New("GitHub token is not set")

// ContainerFinder looks up the running server container.
type ContainerFinder interface {
	FindByImage(ctx context.Context, timeout time.Duration, image string) (string, error)
}

// Info is a point-in-time snapshot of a Manager.
type Info struct {
	Status            Status `json:"status"`
	ContainerID       string `json:"container_id,omitempty"`
	ToolsCount        int    `json:"tools_count"`
	Error             string `json:"error,omitempty"`
	ReconnectAttempts int    `json:"reconnect_attempts"`
}

// ManagerOptions tunes reconnect behaviour.
type ManagerOptions struct {
	HandshakeTimeout time.Duration
	MaxReconnects    int
	ReconnectDelay   time.Duration // zero means one second, negative means none
	ContainerLookup  ContainerFinder
	LookupTimeout    time.Duration
}

// Manager keeps one server session open across several calls and
// reconnects when it drops.
type Manager struct {
	cmd  Command
	dial Dialer
	opts ManagerOptions

	mu          sync.Mutex
	conn        Conn
	status      Status
	tools       []Tool
	containerID string
	lastErr     error
	attempts    int
}

// NewManager returns a stopped Manager.
func NewManager(cmd Command, dial Dialer, opts ManagerOptions) *Manager {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = time.Minute
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = 3
	}
	switch {
	case opts.ReconnectDelay == 0:
		opts.ReconnectDelay = time.Second
	case opts.ReconnectDelay < 0:
		opts.ReconnectDelay = 0
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 5 * time.Second
	}
	return &Manager{cmd: cmd, dial: dial, opts: opts, status: StatusStopped}
}

// Start launches the server, completes the handshake and caches its tools.
// It does nothing when the server is already running.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusRunning && m.conn != nil {
		return nil
	}
	return m.startLocked(ctx)
}

func (m *Manager) startLocked(ctx context.Context) error {
	if m.cmd.Token == "" {
		m.status = StatusError
		m.lastErr = ErrNoToken
		return ErrNoToken
	}

	// At most one server container per Manager.
	_ = m.closeLocked()

	m.status = StatusStarting
	m.lastErr = nil

	hctx, cancel := context.WithTimeout(ctx, m.opts.HandshakeTimeout)
	defer cancel()

	conn, err := m.dial(hctx, m.cmd)
	if err != nil {
		m.status = StatusError
		m.lastErr = err
		return err
	}

	tools, err := conn.ListTools(hctx)
	if err != nil {
		_ = conn.Close()
		m.status = StatusError
		m.lastErr = err
		return err
	}

	m.conn = conn
	m.tools = tools
	m.status = StatusRunning
	m.attempts = 0

	if m.opts.ContainerLookup != nil {
		if id, err := m.opts.ContainerLookup.FindByImage(ctx, m.opts.LookupTimeout, m.cmd.Image); err == nil {
			m.containerID = id
		} else {
			slog.Debug("could not look up server container", "error", err)
		}
	}

	slog.Info("MCP server started", "tools", len(tools), "container", shortID(m.containerID))
	return nil
}

// Stop closes the session and stops the container.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.closeLocked()
	m.status = StatusStopped
	m.containerID = ""
	m.tools = nil
	return err
}

func (m *Manager) closeLocked() error {
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	return err
}

// Reconnect drops the current session and starts a new one. It gives up
// after MaxReconnects consecutive attempts.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnectLocked(ctx)
}

func (m *Manager) reconnectLocked(ctx context.Context) error {
	if m.attempts >= m.opts.MaxReconnects {
		m.status = StatusError
		m.lastErr = fmt.Errorf("max reconnect attempts (%d) exceeded", m.opts.MaxReconnects)
		return m.lastErr
	}

	m.status = StatusReconnecting
	m.attempts++
	slog.Info("reconnecting to MCP server", "attempt", m.attempts)

	_ = m.closeLocked()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.opts.ReconnectDelay):
	}

	attempts := m.attempts
	err := m.startLocked(ctx)
	if err != nil {
		m.attempts = attempts
	}
	return err
}

// EnsureConnected starts or reconnects the server as needed.
func (m *Manager) EnsureConnected(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureLocked(ctx)
}

func (m *Manager) ensureLocked(ctx context.Context) error {
	switch {
	case m.status == StatusRunning && m.conn != nil:
		return nil
	case m.status == StatusStopped:
		return m.startLocked(ctx)
	default:
		return m.reconnectLocked(ctx)
	}
}

// CallTool calls a tool, reconnecting and retrying once if the session
// itself fails. Errors reported by the tool are returned as is.
func (m *Manager) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLocked(ctx); err != nil {
		return nil, fmt.Errorf("MCP server not available: %w", err)
	}

	res, err := m.conn.CallTool(ctx, name, args)
	if err == nil || isToolError(err) {
		return res, err
	}

	m.status = StatusError
	m.lastErr = err
	if rerr := m.reconnectLocked(ctx); rerr != nil {
		return nil, fmt.Errorf("MCP call failed: %w", err)
	}
	return m.conn.CallTool(ctx, name, args)
}

// Tools returns the tools cached at the last successful start.
func (m *Manager) Tools() []Tool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Tool(nil), m.tools...)
}

// Info returns a snapshot of the manager state.
func (m *Manager) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := Info{
		Status:            m.status,
		ContainerID:       m.containerID,
		ToolsCount:        len(m.tools),
		ReconnectAttempts: m.attempts,
	}
	if m.lastErr != nil {
		info.Error = m.lastErr.Error()
	}
	return info
}

// isToolError reports a failure the server returned for the tool itself,
// as opposed to a broken session.
func isToolError(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.Err == nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
