package queries

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	builder "github.com/goliatone/go-dashboard-builder/components/builder"
)

// Viewer is the read side of a builder session.
type Viewer interface {
	SessionID() string
	Tiles() []builder.Tile
	NextPanelID() int
	CanUndo() bool
	CanRedo() bool
	HistoryLen() int
}

var _ Viewer = (*builder.Builder)(nil)

// Workspace resolves the session a query reads from.
type Workspace interface {
	Viewer(ctx context.Context, id string) (Viewer, error)
}

// WorkspaceFunc adapts a function to Workspace.
type WorkspaceFunc func(ctx context.Context, id string) (Viewer, error)

// Viewer satisfies Workspace.
func (f WorkspaceFunc) Viewer(ctx context.Context, id string) (Viewer, error) {
	return f(ctx, id)
}

// SingleSession reads every request from one builder.
func SingleSession(b *builder.Builder) Workspace {
	return WorkspaceFunc(func(context.Context, string) (Viewer, error) {
		if b == nil {
			return nil, errors.New("queries: builder is required")
		}
		return b, nil
	})
}

// SessionsWorkspace reads sessions from a manager, opening them on demand.
func SessionsWorkspace(sessions *builder.Sessions) Workspace {
	return WorkspaceFunc(func(ctx context.Context, id string) (Viewer, error) {
		if sessions == nil {
			return nil, errors.New("queries: sessions manager is required")
		}
		return sessions.Open(ctx, id)
	})
}

// DashboardInput identifies a session.
type DashboardInput struct {
	SessionID string `json:"session_id"`
}

// DashboardView is the grid plus the undo/redo affordances.
type DashboardView struct {
	SessionID   string         `json:"session_id,omitempty"`
	Tiles       []builder.Tile `json:"tiles"`
	NextPanelID int            `json:"next_panel_id"`
	CanUndo     bool           `json:"can_undo"`
	CanRedo     bool           `json:"can_redo"`
	HistoryLen  int            `json:"history_len"`
}

// DashboardQuery returns the rendered grid of a session.
type DashboardQuery struct {
	workspace Workspace
}

// NewDashboardQuery builds the query.
func NewDashboardQuery(workspace Workspace) *DashboardQuery {
	return &DashboardQuery{workspace: workspace}
}

var _ gocommand.Querier[DashboardInput, DashboardView] = (*DashboardQuery)(nil)

// Query resolves the session view.
func (q *DashboardQuery) Query(ctx context.Context, input DashboardInput) (DashboardView, error) {
	if q.workspace == nil {
		return DashboardView{}, errors.New("queries: workspace is required")
	}
	viewer, err := q.workspace.Viewer(ctx, input.SessionID)
	if err != nil {
		return DashboardView{}, err
	}
	tiles := viewer.Tiles()
	if tiles == nil {
		tiles = []builder.Tile{}
	}
	return DashboardView{
		SessionID:   viewer.SessionID(),
		Tiles:       tiles,
		NextPanelID: viewer.NextPanelID(),
		CanUndo:     viewer.CanUndo(),
		CanRedo:     viewer.CanRedo(),
		HistoryLen:  viewer.HistoryLen(),
	}, nil
}
