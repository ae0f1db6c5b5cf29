package object

import (
	"fmt"

	"github.com/chazu/buttress/pkg/geom"
)

// Severity indicates whether a finding blocks support generation or is
// merely informational.
type Severity int

const (
	SeverityError   Severity = iota // blocks generation
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	LayerID  int    // -1 for object-level findings
	Field    string // which field has the problem
	Message  string
	Severity Severity
}

func (e ValidationError) Error() string {
	if e.LayerID < 0 {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] layer %d %s: %s", e.Severity, e.LayerID, e.Field, e.Message)
}

// Result bundles every finding from Validate.
type Result struct {
	Findings []ValidationError
}

// HasErrors reports whether any finding blocks generation.
func (r Result) HasErrors() bool {
	return len(r.Errors()) > 0
}

// Errors returns the blocking findings.
func (r Result) Errors() []ValidationError {
	return r.filter(SeverityError)
}

// Warnings returns the advisory findings.
func (r Result) Warnings() []ValidationError {
	return r.filter(SeverityWarning)
}

func (r Result) filter(s Severity) []ValidationError {
	var out []ValidationError
	for _, f := range r.Findings {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks the layer stack for structural problems. It never
// mutates the object.
func Validate(o *Object) Result {
	var r Result
	r.Findings = append(r.Findings, validateStack(o)...)
	r.Findings = append(r.Findings, validatePolygons(o)...)
	return r
}

// validateStack checks Z ordering and layer heights.
func validateStack(o *Object) []ValidationError {
	var errs []ValidationError
	for i, l := range o.Layers {
		if l.Height <= 0 {
			errs = append(errs, ValidationError{
				LayerID:  i,
				Field:    "height",
				Message:  fmt.Sprintf("height is %.4f, must be positive", l.Height),
				Severity: SeverityError,
			})
		}
		if i == 0 {
			if len(l.Slices) == 0 {
				errs = append(errs, ValidationError{
					LayerID:  i,
					Field:    "slices",
					Message:  "first layer is empty",
					Severity: SeverityWarning,
				})
			}
			continue
		}
		prev := o.Layers[i-1]
		if l.PrintZ <= prev.PrintZ {
			errs = append(errs, ValidationError{
				LayerID:  i,
				Field:    "print_z",
				Message:  fmt.Sprintf("print_z %.4f does not increase over %.4f", l.PrintZ, prev.PrintZ),
				Severity: SeverityError,
			})
			continue
		}
		if d := l.BottomZ() - prev.PrintZ; d > geom.Epsilon || d < -geom.Epsilon {
			errs = append(errs, ValidationError{
				LayerID:  i,
				Field:    "height",
				Message:  fmt.Sprintf("bottom %.4f does not meet layer below at %.4f", l.BottomZ(), prev.PrintZ),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validatePolygons checks point counts and contour orientation.
func validatePolygons(o *Object) []ValidationError {
	var errs []ValidationError
	for i, l := range o.Layers {
		for j, ex := range l.Slices {
			if len(ex.Contour) < 3 {
				errs = append(errs, ValidationError{
					LayerID:  i,
					Field:    "slices",
					Message:  fmt.Sprintf("contour %d has %d points", j, len(ex.Contour)),
					Severity: SeverityError,
				})
				continue
			}
			if !ex.Contour.IsCounterClockwise() {
				errs = append(errs, ValidationError{
					LayerID:  i,
					Field:    "slices",
					Message:  fmt.Sprintf("contour %d is clockwise", j),
					Severity: SeverityWarning,
				})
			}
			for k, h := range ex.Holes {
				if len(h) < 3 {
					errs = append(errs, ValidationError{
						LayerID:  i,
						Field:    "slices",
						Message:  fmt.Sprintf("hole %d of contour %d has %d points", k, j, len(h)),
						Severity: SeverityError,
					})
				}
			}
		}
		for _, named := range []struct {
			field string
			polys geom.Polygons
		}{{"enforcers", l.Enforcers}, {"blockers", l.Blockers}} {
			for j, p := range named.polys {
				if len(p) < 3 {
					errs = append(errs, ValidationError{
						LayerID:  i,
						Field:    named.field,
						Message:  fmt.Sprintf("polygon %d has %d points", j, len(p)),
						Severity: SeverityError,
					})
				}
			}
		}
	}
	return errs
}
