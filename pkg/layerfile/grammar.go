package layerfile

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	fileLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
		{Name: "Comment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Punct", Pattern: `[(),{}]`},
	})

	fileParser = participle.MustBuild[fileAST](
		participle.Lexer(fileLexer),
		participle.Elide("Whitespace", "Comment"),
	)
)

// fileAST is one object: a name and its layers, bottom first.
type fileAST struct {
	Pos    lexer.Position
	Name   stringLiteral `parser:"'object' @String"`
	Layers []*layerAST   `parser:"@@*"`
}

type layerAST struct {
	Pos    lexer.Position
	PrintZ float64    `parser:"'layer' @Number"`
	Height float64    `parser:"'height' @Number"`
	Items  []*itemAST `parser:"'{' @@* '}'"`
}

// itemAST is one statement of a layer body. Block names one of the
// polygon blocks: slice, top, bridge, perimeters, enforcer or blocker.
type itemAST struct {
	Pos      lexer.Position
	Block    string     `parser:"  @('slice' | 'top' | 'bridge' | 'perimeters' | 'enforcer' | 'blocker')"`
	Rings    []*ringAST `parser:"    '{' @@* '}'"`
	Width    *float64   `parser:"| 'width' @Number"`
	Bridging *float64   `parser:"| 'bridging' @Number"`
}

type ringAST struct {
	Pos    lexer.Position
	Kind   string      `parser:"@('contour' | 'hole' | 'polygon')"`
	Points []*pointAST `parser:"@@ @@ @@ @@*"`
}

type pointAST struct {
	X float64 `parser:"'(' @Number ','"`
	Y float64 `parser:"@Number ')'"`
}

// stringLiteral unquotes Go-style strings on capture.
type stringLiteral string

// Capture implements participle.Capture.
func (s *stringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = stringLiteral(val)
	return nil
}
