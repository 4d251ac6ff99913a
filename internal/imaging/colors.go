package imaging

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
)

// backgroundColors maps the background names offered in brand contexts to
// their render colors.
var backgroundColors = map[string]color.RGBA{
	"white":     {R: 255, G: 255, B: 255, A: 255},
	"black":     {R: 17, G: 17, B: 17, A: 255},
	"gray":      {R: 128, G: 128, B: 128, A: 255},
	"lightgray": {R: 211, G: 211, B: 211, A: 255},
	"navy":      {R: 22, G: 41, B: 74, A: 255},
	"blue":      {R: 52, G: 98, B: 181, A: 255},
	"teal":      {R: 38, G: 122, B: 125, A: 255},
	"green":     {R: 62, G: 123, B: 72, A: 255},
	"olive":     {R: 112, G: 117, B: 63, A: 255},
	"beige":     {R: 222, G: 210, B: 186, A: 255},
	"brown":     {R: 111, G: 78, B: 55, A: 255},
	"burgundy":  {R: 110, G: 32, B: 46, A: 255},
	"red":       {R: 173, G: 48, B: 48, A: 255},
	"charcoal":  {R: 54, G: 59, B: 64, A: 255},
}

// BackgroundColor resolves a background name to its color.
func BackgroundColor(name string) (color.RGBA, error) {
	c, ok := backgroundColors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return color.RGBA{}, fmt.Errorf("imaging: unknown background %q", name)
	}
	return c, nil
}

// ValidBackground reports whether a background name is offered.
func ValidBackground(name string) bool {
	_, ok := backgroundColors[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// BackgroundNames lists the offered background names sorted alphabetically.
func BackgroundNames() []string {
	names := make([]string, 0, len(backgroundColors))
	for name := range backgroundColors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
