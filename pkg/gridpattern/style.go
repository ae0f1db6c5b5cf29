package gridpattern

import "fmt"

// Style selects how support footprints are derived from contact areas.
type Style int

const (
	// StyleGrid stretches support islands over a coarse rotated grid.
	StyleGrid Style = iota
	// StyleSnug follows the contact areas after a morphological closing.
	StyleSnug
	// StyleTree and StyleOrganic are generated by an external strategy.
	// Inside the extractor they behave like StyleGrid.
	StyleTree
	StyleOrganic
)

// String returns the human-readable name of the style.
func (s Style) String() string {
	switch s {
	case StyleGrid:
		return "grid"
	case StyleSnug:
		return "snug"
	case StyleTree:
		return "tree"
	case StyleOrganic:
		return "organic"
	default:
		return "unknown"
	}
}

// IsExternal reports whether the style is produced outside this engine.
func (s Style) IsExternal() bool {
	return s == StyleTree || s == StyleOrganic
}

// ParseStyle converts a style name back to a Style.
func ParseStyle(name string) (Style, error) {
	switch name {
	case "grid", "":
		return StyleGrid, nil
	case "snug":
		return StyleSnug, nil
	case "tree":
		return StyleTree, nil
	case "organic":
		return StyleOrganic, nil
	}
	return StyleGrid, fmt.Errorf("gridpattern: unknown style %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Style) UnmarshalText(b []byte) error {
	v, err := ParseStyle(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
