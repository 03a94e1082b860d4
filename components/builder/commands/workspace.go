package commands

import (
	"context"
	"errors"

	builder "github.com/goliatone/go-dashboard-builder/components/builder"
)

// Session is the slice of *builder.Builder the commands drive.
type Session interface {
	AddPanel(ctx context.Context, cfg builder.PanelConfig) (builder.Panel, error)
	AssignOrAdd(ctx context.Context, id int, refs []builder.IndicatorRef) (builder.Panel, error)
	RemovePanel(ctx context.Context, id int) error
	ResizePanel(ctx context.Context, id, colSpan int) error
	SetRowSpan(ctx context.Context, id, rows int) error
	AssignIndicators(ctx context.Context, id int, refs []builder.IndicatorRef) error
	SetChartType(ctx context.Context, id int, chartType builder.ChartType) error
	SetStyling(ctx context.Context, id int, patch builder.StylingPatch) error
	SetYearRange(ctx context.Context, id int, start, end *int) error
	MovePanel(ctx context.Context, srcID, targetID int) error
	ReorderPanels(ctx context.Context, ids []int) error
	Undo(ctx context.Context) (bool, error)
	Redo(ctx context.Context) (bool, error)
	Reset(ctx context.Context) error
	ApplyPreset(ctx context.Context, preset builder.Preset) error
}

var _ Session = (*builder.Builder)(nil)

// Workspace resolves the session a command targets. An empty id selects the
// default session when the workspace has one.
type Workspace interface {
	Session(ctx context.Context, id string) (Session, error)
}

// WorkspaceFunc adapts a function to Workspace.
type WorkspaceFunc func(ctx context.Context, id string) (Session, error)

// Session satisfies Workspace.
func (f WorkspaceFunc) Session(ctx context.Context, id string) (Session, error) {
	return f(ctx, id)
}

// SingleSession serves every request from one builder, ignoring ids.
func SingleSession(b *builder.Builder) Workspace {
	return WorkspaceFunc(func(context.Context, string) (Session, error) {
		if b == nil {
			return nil, errors.New("commands: builder is required")
		}
		return b, nil
	})
}

// SessionsWorkspace opens (or creates and loads) sessions from a manager.
func SessionsWorkspace(sessions *builder.Sessions) Workspace {
	return WorkspaceFunc(func(ctx context.Context, id string) (Session, error) {
		if sessions == nil {
			return nil, errors.New("commands: sessions manager is required")
		}
		return sessions.Open(ctx, id)
	})
}

func resolve(ctx context.Context, ws Workspace, id string) (Session, error) {
	if ws == nil {
		return nil, errors.New("commands: workspace is required")
	}
	return ws.Session(ctx, id)
}

// missing records an operation that targeted an absent panel and returns err
// unchanged so transports can answer with a no-op.
func missing(ctx context.Context, t Telemetry, op string, sessionID string, panelID int, err error) error {
	if builder.IsNotFound(err) {
		t.Record(ctx, "builder.panel.missing", map[string]any{
			"operation":  op,
			"session_id": sessionID,
			"panel_id":   panelID,
		})
	}
	return err
}
