// Package errors renders the compiler's fail-fast errors (lexical, parse,
// semantic, or internal) as Rust-like caret diagnostics.
package errors

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"minic/internal/ir"
	"minic/internal/lexer"
	"minic/internal/parser"
	"minic/internal/sema"
	"minic/token"
)

// Level classifies a CompilerError for display purposes. The pipeline this
// package sits in front of only ever produces Error-level diagnostics today,
// but Warning/Note/Help are carried through so a future lint pass (unused
// locals, dead code past a return) has somewhere to put its output.
type Level string

const (
	Error   Level = "error"
	Warning Level = "warning"
	Note    Level = "note"
	Help    Level = "help"
)

// CompilerError is the single shape every stage's error is normalized into
// before reaching a reporter: lexer.Error, parser.Error, sema.Error, and
// ir.LowerError all collapse to this.
type CompilerError struct {
	Level   Level
	Code    string
	Message string
	Pos     token.Position
}

// FromError normalizes one of the pipeline's stage-specific error types into
// a CompilerError. Anything else is treated as internal: it should not
// happen, since every stage that can fail returns one of the four known
// types, but the pipeline fails closed rather than panicking.
func FromError(err error) CompilerError {
	switch e := err.(type) {
	case *lexer.Error:
		return CompilerError{Level: Error, Code: lexCode(e.Message), Message: e.Message, Pos: e.Pos}
	case *parser.Error:
		return CompilerError{Level: Error, Code: ErrorUnexpectedToken, Message: e.Message, Pos: e.Pos}
	case *sema.Error:
		return CompilerError{Level: Error, Code: semaCode(e.Message), Message: e.Message, Pos: e.Pos}
	case *ir.LowerError:
		return CompilerError{Level: Error, Code: ErrorInternal, Message: e.Message, Pos: e.Pos}
	default:
		return CompilerError{Level: Error, Code: ErrorInternal, Message: err.Error()}
	}
}

func lexCode(message string) string {
	if strings.Contains(message, "unterminated") {
		return ErrorUnterminatedToken
	}
	return ErrorIllegalCharacter
}

func semaCode(message string) string {
	switch {
	case strings.Contains(message, "undeclared"), strings.Contains(message, "undefined"):
		return ErrorUndefinedIdentifier
	case strings.Contains(message, "already declared"), strings.Contains(message, "duplicate"):
		return ErrorDuplicateName
	case strings.Contains(message, "top-level"):
		return ErrorLocalNotAtTopLevel
	case strings.Contains(message, "outside a loop"):
		return ErrorLoopControlOutside
	case strings.Contains(message, "return"):
		return ErrorReturnMismatch
	case strings.Contains(message, "condition"):
		return ErrorBadCondition
	case strings.Contains(message, "argument"):
		return ErrorArityMismatch
	default:
		return ErrorUndefinedIdentifier
	}
}

// Error renders the one-line "<file>:<line>:<col>: <message>" form used on
// stderr by the CLI and by any caller that doesn't want the caret form.
func (c CompilerError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", c.Pos.Filename, c.Pos.Line, c.Pos.Column, c.Message)
}

// Reporter formats CompilerErrors against one source file's text as
// Rust-like caret diagnostics: a location line, the offending source line,
// and a caret marker under the error.
type Reporter struct {
	filename string
	lines    []string
}

// NewReporter builds a Reporter over one source file's full text.
func NewReporter(filename, source string) *Reporter {
	return &Reporter{filename: filename, lines: strings.Split(source, "\n")}
}

// Format renders a single CompilerError as a multi-line caret diagnostic.
func (r *Reporter) Format(err CompilerError) string {
	bold := color.New(color.Bold).SprintFunc()
	levelColor := levelColorFunc(err.Level)

	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]: %s\n", levelColor(string(err.Level)), err.Code, bold(err.Message))
	fmt.Fprintf(&b, "  --> %s:%d:%d\n", r.filename, err.Pos.Line, err.Pos.Column)

	lineNo := err.Pos.Line
	width := lineNumberWidth(lineNo)
	if lineNo >= 1 && lineNo <= len(r.lines) {
		line := r.lines[lineNo-1]
		fmt.Fprintf(&b, "%*d | %s\n", width, lineNo, line)
		fmt.Fprintf(&b, "%s | %s\n", strings.Repeat(" ", width), caret(err.Pos.Column, levelColor))
	}
	return b.String()
}

func levelColorFunc(level Level) func(a ...interface{}) string {
	switch level {
	case Error:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Help:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	default:
		return color.New(color.FgCyan, color.Bold).SprintFunc()
	}
}

func caret(column int, colorFn func(a ...interface{}) string) string {
	if column < 1 {
		column = 1
	}
	return strings.Repeat(" ", column-1) + colorFn("^")
}

func lineNumberWidth(lineNo int) int {
	return len(strconv.Itoa(maxInt(lineNo, 1)))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
