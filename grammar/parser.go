package grammar

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"
)

var parser = participle.MustBuild[File](
	participle.Lexer(DataflowLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(3),
)

// ParseString parses .dfg source held in memory
func ParseString(filename, source string) (*File, error) {
	return parser.ParseString(filename, source)
}

// ParseFile reads and parses a .dfg file
func ParseFile(path string) (*File, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseString(path, string(source))
}

// FormatParseError renders a friendly caret-style parse error message.
func FormatParseError(src string, err error) string {
	pe, ok := err.(participle.Error)
	if !ok {
		return color.RedString("Unexpected error: %s", err) + "\n"
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		return color.RedString("Syntax error at unknown location: %s", err) + "\n"
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", max(0, pos.Column-1)) + "^"

	var b strings.Builder
	b.WriteString(color.RedString("Syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column))
	b.WriteString("\n")
	b.WriteString(line + "\n")
	b.WriteString(color.HiRedString(caret) + "\n")
	b.WriteString(fmt.Sprintf("→ %s\n", pe.Message()))
	return b.String()
}
