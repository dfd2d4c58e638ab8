package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"
)

// graphChangedMethod is the notification sent when a stored graph gets a
// new revision.
const graphChangedMethod = "notifications/wfgraph/graph_changed"

// SessionNotifier pushes notifications to the sessions watching a graph.
type SessionNotifier interface {
	Notify(ctx context.Context, graphID string, payload map[string]any) error
}

// MCPNotifier implements SessionNotifier using MCP server push.
type MCPNotifier struct {
	mcpServer *server.MCPServer
	sessions  *SessionRegistry
}

// NewMCPNotifier creates a notifier that pushes via the MCP server.
func NewMCPNotifier(mcpServer *server.MCPServer, sessions *SessionRegistry) *MCPNotifier {
	return &MCPNotifier{mcpServer: mcpServer, sessions: sessions}
}

// Notify sends payload to every session whose current graph is graphID,
// except the calling session. Best-effort: expired sessions are dropped
// from the registry and uninitialized ones are skipped.
func (n *MCPNotifier) Notify(ctx context.Context, graphID string, payload map[string]any) error {
	caller := ""
	if session := server.ClientSessionFromContext(ctx); session != nil {
		caller = session.SessionID()
	}

	var errs []error
	for _, sid := range n.sessions.SessionsFor(graphID) {
		if sid == caller {
			continue
		}
		err := n.mcpServer.SendNotificationToSpecificClient(sid, graphChangedMethod, payload)
		switch {
		case err == nil:
		case errors.Is(err, server.ErrSessionNotFound):
			// Session expired between lookup and send.
			n.sessions.Remove(sid)
		case errors.Is(err, server.ErrSessionNotInitialized):
		default:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
