package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

// MovePanelInput drops the source panel at the target panel's position.
type MovePanelInput struct {
	SessionID string `json:"session_id"`
	SourceID  int    `json:"source_id"`
	TargetID  int    `json:"target_id"`
}

// MovePanelCommand handles drag and drop.
type MovePanelCommand struct {
	workspace Workspace
	telemetry Telemetry
}

// NewMovePanelCommand creates the command.
func NewMovePanelCommand(workspace Workspace, telemetry Telemetry) *MovePanelCommand {
	return &MovePanelCommand{workspace: workspace, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[MovePanelInput] = (*MovePanelCommand)(nil)

// Execute moves the panel.
func (c *MovePanelCommand) Execute(ctx context.Context, msg MovePanelInput) error {
	session, err := resolve(ctx, c.workspace, msg.SessionID)
	if err != nil {
		return err
	}
	if err := session.MovePanel(ctx, msg.SourceID, msg.TargetID); err != nil {
		return missing(ctx, c.telemetry, "move", msg.SessionID, msg.SourceID, err)
	}
	c.telemetry.Record(ctx, "builder.panel.move", map[string]any{
		"session_id": msg.SessionID,
		"source_id":  msg.SourceID,
		"target_id":  msg.TargetID,
	})
	return nil
}

// ReorderPanelsInput lists panel ids in their new display order.
type ReorderPanelsInput struct {
	SessionID string `json:"session_id"`
	PanelIDs  []int  `json:"panel_ids"`
}

// ReorderPanelsCommand persists a full ordering.
type ReorderPanelsCommand struct {
	workspace Workspace
	telemetry Telemetry
}

// NewReorderPanelsCommand creates the command.
func NewReorderPanelsCommand(workspace Workspace, telemetry Telemetry) *ReorderPanelsCommand {
	return &ReorderPanelsCommand{workspace: workspace, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ReorderPanelsInput] = (*ReorderPanelsCommand)(nil)

// Execute reorders the panels.
func (c *ReorderPanelsCommand) Execute(ctx context.Context, msg ReorderPanelsInput) error {
	if len(msg.PanelIDs) == 0 {
		return errors.New("reorder command requires panel ids")
	}
	session, err := resolve(ctx, c.workspace, msg.SessionID)
	if err != nil {
		return err
	}
	if err := session.ReorderPanels(ctx, msg.PanelIDs); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "builder.panel.reorder", map[string]any{
		"session_id": msg.SessionID,
		"count":      len(msg.PanelIDs),
	})
	return nil
}
