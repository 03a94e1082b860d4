package builder

import (
	"errors"
	"fmt"
)

var (
	// ErrPanelNotFound is matched by every *NotFoundError.
	ErrPanelNotFound = errors.New("builder: panel not found")
	// ErrUnknownChartType reports a chart identifier outside the catalogue.
	ErrUnknownChartType = errors.New("builder: unknown chart type")
	// ErrInvalidColSpan reports a column span outside 1..12.
	ErrInvalidColSpan = errors.New("builder: column span must be between 1 and 12")
	// ErrInvalidRowSpan reports a non-positive row multiplier.
	ErrInvalidRowSpan = errors.New("builder: row span must be positive")
	// ErrInvalidFontSize reports a font size outside the supported range.
	ErrInvalidFontSize = errors.New("builder: invalid font size")
	// ErrUnknownPalette reports a palette name outside NamedPalettes.
	ErrUnknownPalette = errors.New("builder: unknown color palette")

	errMissingSource = errors.New("builder: series source not configured")
)

// NotFoundError is returned by panel-targeted operations when the id is absent.
// Callers presenting a UI treat it as a no-op.
type NotFoundError struct {
	PanelID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("builder: panel %d not found", e.PanelID)
}

// Is lets errors.Is(err, ErrPanelNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrPanelNotFound
}

// IsNotFound reports whether err signals a missing panel.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPanelNotFound)
}

func notFound(id int) error {
	return &NotFoundError{PanelID: id}
}
