package commands

import (
	"context"
	"fmt"

	gocommand "github.com/goliatone/go-command"
)

// HistoryDirection selects undo or redo.
type HistoryDirection string

const (
	HistoryUndo HistoryDirection = "undo"
	HistoryRedo HistoryDirection = "redo"
)

// HistoryStepInput moves one step along a session's timeline.
type HistoryStepInput struct {
	SessionID string           `json:"session_id"`
	Direction HistoryDirection `json:"direction"`
	// Moved reports whether a step was taken when set.
	Moved *bool `json:"-"`
}

// HistoryStepCommand runs undo and redo.
type HistoryStepCommand struct {
	workspace Workspace
	telemetry Telemetry
}

// NewHistoryStepCommand creates the command.
func NewHistoryStepCommand(workspace Workspace, telemetry Telemetry) *HistoryStepCommand {
	return &HistoryStepCommand{workspace: workspace, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[HistoryStepInput] = (*HistoryStepCommand)(nil)

// Execute takes the step. Reaching either end of the timeline is not an error.
func (c *HistoryStepCommand) Execute(ctx context.Context, msg HistoryStepInput) error {
	session, err := resolve(ctx, c.workspace, msg.SessionID)
	if err != nil {
		return err
	}
	var moved bool
	switch msg.Direction {
	case HistoryUndo:
		moved, err = session.Undo(ctx)
	case HistoryRedo:
		moved, err = session.Redo(ctx)
	default:
		return fmt.Errorf("history command: unknown direction %q", msg.Direction)
	}
	if err != nil {
		return err
	}
	if msg.Moved != nil {
		*msg.Moved = moved
	}
	c.telemetry.Record(ctx, "builder.history."+string(msg.Direction), map[string]any{
		"session_id": msg.SessionID,
		"moved":      moved,
	})
	return nil
}

// ResetInput clears a session.
type ResetInput struct {
	SessionID string `json:"session_id"`
}

// ResetCommand empties a dashboard and its stored state.
type ResetCommand struct {
	workspace Workspace
	telemetry Telemetry
}

// NewResetCommand creates the command.
func NewResetCommand(workspace Workspace, telemetry Telemetry) *ResetCommand {
	return &ResetCommand{workspace: workspace, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ResetInput] = (*ResetCommand)(nil)

// Execute resets the session.
func (c *ResetCommand) Execute(ctx context.Context, msg ResetInput) error {
	session, err := resolve(ctx, c.workspace, msg.SessionID)
	if err != nil {
		return err
	}
	if err := session.Reset(ctx); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "builder.reset", map[string]any{"session_id": msg.SessionID})
	return nil
}
