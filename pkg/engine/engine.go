// Package engine evaluates scene scripts. It wraps zygomys in a sandboxed
// environment and produces a scene.Scene from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/buttress/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error in user code, such as a parse
// error, a runtime error or an invalid scene.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning is an advisory finding about an evaluated scene.
type EvalWarning struct {
	Message string
	NodeID  scene.NodeID
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use;
// each call to Evaluate creates a fresh sandbox, so evaluation is
// deterministic.
type Engine struct {
	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate runs source and returns the scene it builds.
//
// Return semantics:
//   - On success: scene + nil errors + nil error
//   - On parse, eval or validation failure: nil scene + eval errors + nil error
//   - On fatal failure (timeout, panic): nil + nil + error
func (e *Engine) Evaluate(source string) (*scene.Scene, []EvalError, error) {
	sc, _, evalErrs, err := e.EvaluateWithWarnings(source)
	return sc, evalErrs, err
}

// EvaluateWithWarnings is Evaluate that also returns the scene warnings.
func (e *Engine) EvaluateWithWarnings(source string) (*scene.Scene, []EvalWarning, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("engine: panic during evaluation: %v", r)}
			}
		}()
		sc, warnings, evalErrs, err := e.evaluate(source)
		ch <- evalResult{scene: sc, warnings: warnings, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

// evaluate performs the zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*scene.Scene, []EvalWarning, []EvalError, error) {
	sc := scene.New()
	// Empty source is a valid program that produces an empty scene.
	if strings.TrimSpace(source) == "" {
		return sc, nil, nil, nil
	}

	// Sandbox mode keeps scripts away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, newBuilder(sc))

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, nil, parseZygomysError(err), nil
	}

	var (
		evalErrs []EvalError
		warnings []EvalWarning
	)
	for _, f := range scene.Validate(sc) {
		if f.Severity == scene.SeverityWarning {
			warnings = append(warnings, EvalWarning{Message: f.Message, NodeID: f.NodeID})
			continue
		}
		evalErrs = append(evalErrs, EvalError{Message: f.Error()})
	}
	if len(evalErrs) > 0 {
		return nil, nil, evalErrs, nil
	}
	if err := sc.Support.Validate(); err != nil {
		return nil, nil, []EvalError{{Message: err.Error()}}, nil
	}
	return sc, warnings, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalError values,
// extracting the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
