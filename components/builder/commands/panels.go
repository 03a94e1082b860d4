package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	builder "github.com/goliatone/go-dashboard-builder/components/builder"
)

// AddPanelInput appends a panel to a session.
type AddPanelInput struct {
	SessionID string              `json:"session_id"`
	Config    builder.PanelConfig `json:"config"`
	// Result receives the created panel when set.
	Result *builder.Panel `json:"-"`
}

// AddPanelCommand appends panels.
type AddPanelCommand struct {
	workspace Workspace
	telemetry Telemetry
}

// NewAddPanelCommand creates the command.
func NewAddPanelCommand(workspace Workspace, telemetry Telemetry) *AddPanelCommand {
	return &AddPanelCommand{workspace: workspace, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[AddPanelInput] = (*AddPanelCommand)(nil)

// Execute adds the panel.
func (c *AddPanelCommand) Execute(ctx context.Context, msg AddPanelInput) error {
	session, err := resolve(ctx, c.workspace, msg.SessionID)
	if err != nil {
		return err
	}
	panel, err := session.AddPanel(ctx, msg.Config)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = panel
	}
	c.telemetry.Record(ctx, "builder.panel.add", map[string]any{
		"session_id": msg.SessionID,
		"panel_id":   panel.ID,
		"indicators": len(panel.Indicators),
	})
	return nil
}

// RemovePanelInput identifies the panel to delete.
type RemovePanelInput struct {
	SessionID string `json:"session_id"`
	PanelID   int    `json:"panel_id"`
}

// RemovePanelCommand deletes panels.
type RemovePanelCommand struct {
	workspace Workspace
	telemetry Telemetry
}

// NewRemovePanelCommand creates the command.
func NewRemovePanelCommand(workspace Workspace, telemetry Telemetry) *RemovePanelCommand {
	return &RemovePanelCommand{workspace: workspace, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RemovePanelInput] = (*RemovePanelCommand)(nil)

// Execute removes the panel.
func (c *RemovePanelCommand) Execute(ctx context.Context, msg RemovePanelInput) error {
	session, err := resolve(ctx, c.workspace, msg.SessionID)
	if err != nil {
		return err
	}
	if err := session.RemovePanel(ctx, msg.PanelID); err != nil {
		return missing(ctx, c.telemetry, "remove", msg.SessionID, msg.PanelID, err)
	}
	c.telemetry.Record(ctx, "builder.panel.remove", map[string]any{
		"session_id": msg.SessionID,
		"panel_id":   msg.PanelID,
	})
	return nil
}

// ResizePanelInput changes a panel's spans. Zero leaves a span unchanged.
type ResizePanelInput struct {
	SessionID string `json:"session_id"`
	PanelID   int    `json:"panel_id"`
	ColSpan   int    `json:"col_span"`
	RowSpan   int    `json:"row_span"`
}

// ResizePanelCommand changes column and row spans.
type ResizePanelCommand struct {
	workspace Workspace
	telemetry Telemetry
}

// NewResizePanelCommand creates the command.
func NewResizePanelCommand(workspace Workspace, telemetry Telemetry) *ResizePanelCommand {
	return &ResizePanelCommand{workspace: workspace, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ResizePanelInput] = (*ResizePanelCommand)(nil)

// Execute applies the spans, columns first.
func (c *ResizePanelCommand) Execute(ctx context.Context, msg ResizePanelInput) error {
	if msg.ColSpan == 0 && msg.RowSpan == 0 {
		return errors.New("resize command requires col_span or row_span")
	}
	session, err := resolve(ctx, c.workspace, msg.SessionID)
	if err != nil {
		return err
	}
	if msg.ColSpan != 0 {
		if err := session.ResizePanel(ctx, msg.PanelID, msg.ColSpan); err != nil {
			return missing(ctx, c.telemetry, "resize", msg.SessionID, msg.PanelID, err)
		}
	}
	if msg.RowSpan != 0 {
		if err := session.SetRowSpan(ctx, msg.PanelID, msg.RowSpan); err != nil {
			return missing(ctx, c.telemetry, "resize", msg.SessionID, msg.PanelID, err)
		}
	}
	c.telemetry.Record(ctx, "builder.panel.resize", map[string]any{
		"session_id": msg.SessionID,
		"panel_id":   msg.PanelID,
		"col_span":   msg.ColSpan,
		"row_span":   msg.RowSpan,
	})
	return nil
}

// AssignIndicatorsInput replaces a panel's indicators. A zero PanelID (or an
// id that is gone) adds a new panel when AddIfMissing is set, which is how
// the indicator picker behaves.
type AssignIndicatorsInput struct {
	SessionID    string                 `json:"session_id"`
	PanelID      int                    `json:"panel_id"`
	Indicators   []builder.IndicatorRef `json:"indicators"`
	AddIfMissing bool                   `json:"add_if_missing"`
}

// AssignIndicatorsCommand sets panel indicators.
type AssignIndicatorsCommand struct {
	workspace Workspace
	telemetry Telemetry
}

// NewAssignIndicatorsCommand creates the command.
func NewAssignIndicatorsCommand(workspace Workspace, telemetry Telemetry) *AssignIndicatorsCommand {
	return &AssignIndicatorsCommand{workspace: workspace, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[AssignIndicatorsInput] = (*AssignIndicatorsCommand)(nil)

// Execute assigns the indicators.
func (c *AssignIndicatorsCommand) Execute(ctx context.Context, msg AssignIndicatorsInput) error {
	session, err := resolve(ctx, c.workspace, msg.SessionID)
	if err != nil {
		return err
	}
	panelID := msg.PanelID
	if msg.AddIfMissing {
		panel, err := session.AssignOrAdd(ctx, msg.PanelID, msg.Indicators)
		if err != nil {
			return err
		}
		panelID = panel.ID
	} else if err := session.AssignIndicators(ctx, msg.PanelID, msg.Indicators); err != nil {
		return missing(ctx, c.telemetry, "assign", msg.SessionID, msg.PanelID, err)
	}
	codes := make([]string, len(msg.Indicators))
	for i, ref := range msg.Indicators {
		codes[i] = ref.Code
	}
	c.telemetry.Record(ctx, "builder.panel.assign", map[string]any{
		"session_id": msg.SessionID,
		"panel_id":   panelID,
		"codes":      codes,
	})
	return nil
}

// SetChartTypeInput selects a chart type by wire identifier.
type SetChartTypeInput struct {
	SessionID string `json:"session_id"`
	PanelID   int    `json:"panel_id"`
	ChartType string `json:"chart_type"`
}

// SetChartTypeCommand changes a panel's chart type.
type SetChartTypeCommand struct {
	workspace Workspace
	telemetry Telemetry
}

// NewSetChartTypeCommand creates the command.
func NewSetChartTypeCommand(workspace Workspace, telemetry Telemetry) *SetChartTypeCommand {
	return &SetChartTypeCommand{workspace: workspace, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SetChartTypeInput] = (*SetChartTypeCommand)(nil)

// Execute parses and applies the chart type.
func (c *SetChartTypeCommand) Execute(ctx context.Context, msg SetChartTypeInput) error {
	chartType, err := builder.ParseChartType(msg.ChartType)
	if err != nil {
		return err
	}
	session, err := resolve(ctx, c.workspace, msg.SessionID)
	if err != nil {
		return err
	}
	if err := session.SetChartType(ctx, msg.PanelID, chartType); err != nil {
		return missing(ctx, c.telemetry, "chart_type", msg.SessionID, msg.PanelID, err)
	}
	c.telemetry.Record(ctx, "builder.panel.chart_type", map[string]any{
		"session_id": msg.SessionID,
		"panel_id":   msg.PanelID,
		"chart_type": chartType.String(),
	})
	return nil
}

// UpdateStylingInput patches presentation fields.
type UpdateStylingInput struct {
	SessionID string               `json:"session_id"`
	PanelID   int                  `json:"panel_id"`
	Patch     builder.StylingPatch `json:"patch"`
}

// UpdateStylingCommand applies styling patches.
type UpdateStylingCommand struct {
	workspace Workspace
	telemetry Telemetry
}

// NewUpdateStylingCommand creates the command.
func NewUpdateStylingCommand(workspace Workspace, telemetry Telemetry) *UpdateStylingCommand {
	return &UpdateStylingCommand{workspace: workspace, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateStylingInput] = (*UpdateStylingCommand)(nil)

// Execute applies the patch. An empty patch is a no-op.
func (c *UpdateStylingCommand) Execute(ctx context.Context, msg UpdateStylingInput) error {
	if msg.Patch.Empty() {
		return nil
	}
	session, err := resolve(ctx, c.workspace, msg.SessionID)
	if err != nil {
		return err
	}
	if err := session.SetStyling(ctx, msg.PanelID, msg.Patch); err != nil {
		return missing(ctx, c.telemetry, "styling", msg.SessionID, msg.PanelID, err)
	}
	c.telemetry.Record(ctx, "builder.panel.styling", map[string]any{
		"session_id": msg.SessionID,
		"panel_id":   msg.PanelID,
	})
	return nil
}

// SetYearRangeInput restricts the plotted years. Nil bounds are open.
type SetYearRangeInput struct {
	SessionID string `json:"session_id"`
	PanelID   int    `json:"panel_id"`
	YearStart *int   `json:"year_start"`
	YearEnd   *int   `json:"year_end"`
}

// SetYearRangeCommand changes the year filter.
type SetYearRangeCommand struct {
	workspace Workspace
	telemetry Telemetry
}

// NewSetYearRangeCommand creates the command.
func NewSetYearRangeCommand(workspace Workspace, telemetry Telemetry) *SetYearRangeCommand {
	return &SetYearRangeCommand{workspace: workspace, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SetYearRangeInput] = (*SetYearRangeCommand)(nil)

// Execute applies the range.
func (c *SetYearRangeCommand) Execute(ctx context.Context, msg SetYearRangeInput) error {
	session, err := resolve(ctx, c.workspace, msg.SessionID)
	if err != nil {
		return err
	}
	if err := session.SetYearRange(ctx, msg.PanelID, msg.YearStart, msg.YearEnd); err != nil {
		return missing(ctx, c.telemetry, "year_range", msg.SessionID, msg.PanelID, err)
	}
	c.telemetry.Record(ctx, "builder.panel.year_range", map[string]any{
		"session_id": msg.SessionID,
		"panel_id":   msg.PanelID,
	})
	return nil
}
