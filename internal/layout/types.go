// Package layout sorts and chunks a project's photos into pages.
//
// Everything here is a pure transform over value types: callers pass a snapshot
// in and get a freshly allocated result back, so nothing in the returned pages
// aliases the caller's slices.
package layout

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

var (
	// ErrConfiguration reports invalid layout input (images per page, color, frame style).
	ErrConfiguration = errors.New("invalid configuration")
	// ErrConsistency reports an operation that references photos not present on the target.
	ErrConsistency = errors.New("inconsistent photo set")
)

// Photo is one image reference on a page.
type Photo struct {
	ID        string
	URI       string
	Caption   string
	Position  int
	DateTaken int64 // epoch millis, used for ordering only
}

// Key returns the identity used by Reorder and Remove: the ID when set, the URI otherwise.
func (p Photo) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.URI
}

// Page is one unit of output layout.
type Page struct {
	ID        string
	Title     string
	PageIndex int
	Photos    []Photo
}

// clone returns a deep copy of the page.
func (p Page) clone() Page {
	out := p
	out.Photos = append([]Photo(nil), p.Photos...)
	return out
}

// DefaultTitle returns the synthesized title for the page at a zero-based index.
func DefaultTitle(pageIndex int) string {
	return "Seite " + strconv.Itoa(pageIndex+1)
}

// FrameStyle selects the frame stroke width.
type FrameStyle int

const (
	FrameThin FrameStyle = iota
	FrameMedium
	FrameThick
)

var frameStyles = []struct {
	name    string
	label   string
	widthDp float64
}{
	FrameThin:   {"thin", "Dünn", 1},
	FrameMedium: {"medium", "Mittel", 1.5},
	FrameThick:  {"thick", "Dick", 2.5},
}

// FrameStyles lists all frame styles from thinnest to thickest.
func FrameStyles() []FrameStyle {
	return []FrameStyle{FrameThin, FrameMedium, FrameThick}
}

func (s FrameStyle) valid() bool {
	return s >= FrameThin && s <= FrameThick
}

// WidthDp returns the stroke width in density-independent units.
func (s FrameStyle) WidthDp() float64 {
	if !s.valid() {
		return frameStyles[FrameMedium].widthDp
	}
	return frameStyles[s].widthDp
}

// Label returns the display label shown to users.
func (s FrameStyle) Label() string {
	if !s.valid() {
		return frameStyles[FrameMedium].label
	}
	return frameStyles[s].label
}

func (s FrameStyle) String() string {
	if !s.valid() {
		return fmt.Sprintf("FrameStyle(%d)", int(s))
	}
	return frameStyles[s].name
}

// ParseFrameStyle accepts either the style name ("thin") or its label ("Dünn"), case-insensitive.
func ParseFrameStyle(s string) (FrameStyle, error) {
	s = strings.TrimSpace(s)
	for i, fs := range frameStyles {
		if strings.EqualFold(s, fs.name) || strings.EqualFold(s, fs.label) {
			return FrameStyle(i), nil
		}
	}
	return FrameMedium, fmt.Errorf("%w: unknown frame style %q", ErrConfiguration, s)
}

// Config holds the per-project layout settings.
type Config struct {
	ImagesPerPage int
	SortAscending bool
	FrameEnabled  bool
	FrameStyle    FrameStyle
	FrameColorHex string
	TitlePolicy   TitlePolicy
}

// FrameWidthDp is derived from the frame style.
func (c Config) FrameWidthDp() float64 {
	return c.FrameStyle.WidthDp()
}

// Options returns the composer options carried by the config.
func (c Config) Options() Options {
	return Options{
		ImagesPerPage: c.ImagesPerPage,
		SortAscending: c.SortAscending,
		TitlePolicy:   c.TitlePolicy,
	}
}

// Validate rejects configurations that must not reach the composer or renderer.
func (c Config) Validate() error {
	if c.ImagesPerPage <= 0 {
		return fmt.Errorf("%w: images per page must be positive, got %d", ErrConfiguration, c.ImagesPerPage)
	}
	if !c.FrameStyle.valid() {
		return fmt.Errorf("%w: unknown frame style %d", ErrConfiguration, int(c.FrameStyle))
	}
	if _, err := ParseHexColor(c.FrameColorHex); err != nil {
		return err
	}
	return nil
}

// ParseHexColor parses a "#RRGGBB" string into an opaque color.
func ParseHexColor(s string) (color.NRGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.NRGBA{}, fmt.Errorf("%w: color %q is not #RRGGBB", ErrConfiguration, s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: color %q is not #RRGGBB", ErrConfiguration, s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
