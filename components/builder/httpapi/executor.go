package httpapi

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-dashboard-builder/components/builder/commands"
)

// Executor is the transport-facing surface of the builder commands.
type Executor interface {
	AddPanel(ctx context.Context, input commands.AddPanelInput) error
	RemovePanel(ctx context.Context, input commands.RemovePanelInput) error
	ResizePanel(ctx context.Context, input commands.ResizePanelInput) error
	AssignIndicators(ctx context.Context, input commands.AssignIndicatorsInput) error
	SetChartType(ctx context.Context, input commands.SetChartTypeInput) error
	UpdateStyling(ctx context.Context, input commands.UpdateStylingInput) error
	SetYearRange(ctx context.Context, input commands.SetYearRangeInput) error
	MovePanel(ctx context.Context, input commands.MovePanelInput) error
	ReorderPanels(ctx context.Context, input commands.ReorderPanelsInput) error
	HistoryStep(ctx context.Context, input commands.HistoryStepInput) error
	Reset(ctx context.Context, input commands.ResetInput) error
	ApplyPreset(ctx context.Context, input commands.ApplyPresetInput) error
}

var errCommandMissing = errors.New("httpapi: command not configured")

// CommandExecutor routes Executor calls to go-command commanders.
type CommandExecutor struct {
	AddCommander     gocommand.Commander[commands.AddPanelInput]
	RemoveCommander  gocommand.Commander[commands.RemovePanelInput]
	ResizeCommander  gocommand.Commander[commands.ResizePanelInput]
	AssignCommander  gocommand.Commander[commands.AssignIndicatorsInput]
	ChartCommander   gocommand.Commander[commands.SetChartTypeInput]
	StylingCommander gocommand.Commander[commands.UpdateStylingInput]
	YearsCommander   gocommand.Commander[commands.SetYearRangeInput]
	MoveCommander    gocommand.Commander[commands.MovePanelInput]
	ReorderCommander gocommand.Commander[commands.ReorderPanelsInput]
	HistoryCommander gocommand.Commander[commands.HistoryStepInput]
	ResetCommander   gocommand.Commander[commands.ResetInput]
	PresetCommander  gocommand.Commander[commands.ApplyPresetInput]
}

// NewCommandExecutor wires every builder command against one workspace.
func NewCommandExecutor(workspace commands.Workspace, telemetry commands.Telemetry) *CommandExecutor {
	return &CommandExecutor{
		AddCommander:     commands.NewAddPanelCommand(workspace, telemetry),
		RemoveCommander:  commands.NewRemovePanelCommand(workspace, telemetry),
		ResizeCommander:  commands.NewResizePanelCommand(workspace, telemetry),
		AssignCommander:  commands.NewAssignIndicatorsCommand(workspace, telemetry),
		ChartCommander:   commands.NewSetChartTypeCommand(workspace, telemetry),
		StylingCommander: commands.NewUpdateStylingCommand(workspace, telemetry),
		YearsCommander:   commands.NewSetYearRangeCommand(workspace, telemetry),
		MoveCommander:    commands.NewMovePanelCommand(workspace, telemetry),
		ReorderCommander: commands.NewReorderPanelsCommand(workspace, telemetry),
		HistoryCommander: commands.NewHistoryStepCommand(workspace, telemetry),
		ResetCommander:   commands.NewResetCommand(workspace, telemetry),
		PresetCommander:  commands.NewApplyPresetCommand(workspace, telemetry),
	}
}

var _ Executor = (*CommandExecutor)(nil)

func execute[T any](ctx context.Context, cmd gocommand.Commander[T], msg T) error {
	if cmd == nil {
		return errCommandMissing
	}
	return cmd.Execute(ctx, msg)
}

func (e *CommandExecutor) AddPanel(ctx context.Context, input commands.AddPanelInput) error {
	return execute(ctx, e.AddCommander, input)
}

func (e *CommandExecutor) RemovePanel(ctx context.Context, input commands.RemovePanelInput) error {
	return execute(ctx, e.RemoveCommander, input)
}

func (e *CommandExecutor) ResizePanel(ctx context.Context, input commands.ResizePanelInput) error {
	return execute(ctx, e.ResizeCommander, input)
}

func (e *CommandExecutor) AssignIndicators(ctx context.Context, input commands.AssignIndicatorsInput) error {
	return execute(ctx, e.AssignCommander, input)
}

func (e *CommandExecutor) SetChartType(ctx context.Context, input commands.SetChartTypeInput) error {
	return execute(ctx, e.ChartCommander, input)
}

func (e *CommandExecutor) UpdateStyling(ctx context.Context, input commands.UpdateStylingInput) error {
	return execute(ctx, e.StylingCommander, input)
}

func (e *CommandExecutor) SetYearRange(ctx context.Context, input commands.SetYearRangeInput) error {
	return execute(ctx, e.YearsCommander, input)
}

func (e *CommandExecutor) MovePanel(ctx context.Context, input commands.MovePanelInput) error {
	return execute(ctx, e.MoveCommander, input)
}

func (e *CommandExecutor) ReorderPanels(ctx context.Context, input commands.ReorderPanelsInput) error {
	return execute(ctx, e.ReorderCommander, input)
}

func (e *CommandExecutor) HistoryStep(ctx context.Context, input commands.HistoryStepInput) error {
	return execute(ctx, e.HistoryCommander, input)
}

func (e *CommandExecutor) Reset(ctx context.Context, input commands.ResetInput) error {
	return execute(ctx, e.ResetCommander, input)
}

func (e *CommandExecutor) ApplyPreset(ctx context.Context, input commands.ApplyPresetInput) error {
	return execute(ctx, e.PresetCommander, input)
}
