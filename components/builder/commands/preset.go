package commands

import (
	"context"
	"errors"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	builder "github.com/goliatone/go-dashboard-builder/components/builder"
)

// ApplyPresetInput appends a preset's panels. Name selects a bundled preset
// when Preset is nil.
type ApplyPresetInput struct {
	SessionID string          `json:"session_id"`
	Name      string          `json:"name"`
	Preset    *builder.Preset `json:"preset,omitempty"`
}

// ApplyPresetCommand applies presets as one undoable step.
type ApplyPresetCommand struct {
	workspace Workspace
	telemetry Telemetry
}

// NewApplyPresetCommand creates the command.
func NewApplyPresetCommand(workspace Workspace, telemetry Telemetry) *ApplyPresetCommand {
	return &ApplyPresetCommand{workspace: workspace, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ApplyPresetInput] = (*ApplyPresetCommand)(nil)

// Execute resolves and applies the preset.
func (c *ApplyPresetCommand) Execute(ctx context.Context, msg ApplyPresetInput) error {
	preset, err := msg.resolve()
	if err != nil {
		return err
	}
	session, err := resolve(ctx, c.workspace, msg.SessionID)
	if err != nil {
		return err
	}
	if err := session.ApplyPreset(ctx, preset); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "builder.preset.apply", map[string]any{
		"session_id": msg.SessionID,
		"preset":     preset.Name,
		"panels":     len(preset.Panels),
	})
	return nil
}

func (msg ApplyPresetInput) resolve() (builder.Preset, error) {
	if msg.Preset != nil {
		return *msg.Preset, nil
	}
	if msg.Name == "" {
		return builder.Preset{}, errors.New("preset command requires a preset or a name")
	}
	preset, ok := builder.FindPreset(msg.Name)
	if !ok {
		return builder.Preset{}, fmt.Errorf("preset command: unknown preset %q", msg.Name)
	}
	return preset, nil
}

// SeedInput writes a preset into a store under a storage key, replacing
// whatever dashboard was stored there.
type SeedInput struct {
	StorageKey string         `json:"storage_key"`
	Preset     builder.Preset `json:"preset"`
}

// SeedCommand prepares stored dashboards for first use.
type SeedCommand struct {
	store     builder.Store
	options   builder.Options
	telemetry Telemetry
}

// NewSeedCommand wires the command. opts supplies the series source and
// logger of the temporary builder used to lay the panels out.
func NewSeedCommand(store builder.Store, opts builder.Options, telemetry Telemetry) *SeedCommand {
	return &SeedCommand{store: store, options: opts, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SeedInput] = (*SeedCommand)(nil)

// Execute builds the dashboard and saves it.
func (c *SeedCommand) Execute(ctx context.Context, msg SeedInput) error {
	if c.store == nil {
		return errors.New("seed command requires store")
	}
	opts := c.options
	opts.Store = c.store
	opts.StorageKey = msg.StorageKey
	b := builder.NewBuilder(opts)
	if err := b.Reset(ctx); err != nil {
		return err
	}
	if err := b.ApplyPreset(ctx, msg.Preset); err != nil {
		return err
	}
	if err := b.Save(ctx); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "builder.seed", map[string]any{
		"storage_key": b.StorageKey(),
		"preset":      msg.Preset.Name,
	})
	return nil
}
