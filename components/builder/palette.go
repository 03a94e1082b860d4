package builder

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultColors is the series palette assigned to new panels.
var DefaultColors = []string{
	"#FF6B00", "#00B894", "#6C5CE7", "#E17055",
	"#00CEC9", "#FDCB6E", "#E84393", "#0984E3",
}

var namedPalettes = map[string][]string{
	"vibrant":    {"#FF6B00", "#00B894", "#6C5CE7", "#E17055", "#00CEC9", "#FDCB6E", "#E84393", "#0984E3", "#55EFC4", "#FAB1A0"},
	"ocean":      {"#0077B6", "#00B4D8", "#90E0EF", "#CAF0F8", "#023E8A", "#0096C7", "#48CAE4", "#ADE8F4", "#03045E", "#468FAF"},
	"earth":      {"#606C38", "#283618", "#DDA15E", "#BC6C25", "#FEFAE0", "#8B9556", "#4A5524", "#E8D5A3", "#9B7E53", "#3D3522"},
	"sunset":     {"#F94144", "#F3722C", "#F8961E", "#F9C74F", "#90BE6D", "#43AA8B", "#577590", "#F9844A", "#4D908E", "#277DA1"},
	"monochrome": {"#1a1a2e", "#3d3d5c", "#5e5e8a", "#8888b0", "#a5a5c8", "#c2c2de", "#ddddef", "#16213E", "#0F3460", "#533483"},
	"ci":         {"#FF8200", "#009E49", "#F5F5F5", "#E8E8E8", "#1B4332", "#FF6B00", "#00B894", "#2D6A4F", "#FFB347", "#40916C"},
}

// Palette returns a copy of the named palette.
func Palette(name string) ([]string, error) {
	colors, ok := namedPalettes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPalette, name)
	}
	return append([]string(nil), colors...), nil
}

// PaletteNames lists the available palettes alphabetically.
func PaletteNames() []string {
	names := make([]string, 0, len(namedPalettes))
	for name := range namedPalettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func defaultColors() []string {
	return append([]string(nil), DefaultColors...)
}
