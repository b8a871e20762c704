package lsp

import (
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"axc/internal/diag"
)

// ConvertDiagnostics transforms compiler errors into LSP diagnostics. Notes
// and help text are appended to the message since most editors show only
// the message.
func ConvertDiagnostics(errs []diag.CompilerError) []protocol.Diagnostic {
	diagnostics := make([]protocol.Diagnostic, 0, len(errs))
	for _, e := range errs {
		line := uint32(max(0, e.Position.Line-1))
		start := uint32(max(0, e.Position.Column-1))
		length := uint32(max(1, e.Length))

		message := e.Message
		if len(e.Notes) > 0 {
			message += "\nnote: " + strings.Join(e.Notes, "\nnote: ")
		}
		for _, s := range e.Suggestions {
			message += "\nhelp: " + s.Message
		}
		if e.HelpText != "" {
			message += "\nhelp: " + e.HelpText
		}

		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: start},
				End:   protocol.Position{Line: line, Character: start + length},
			},
			Severity: ptrSeverity(severity(e.Level)),
			Code:     &protocol.IntegerOrString{Value: e.Code},
			Source:   ptrString("axc"),
			Message:  message,
		})
	}
	return diagnostics
}

func severity(level diag.ErrorLevel) protocol.DiagnosticSeverity {
	switch level {
	case diag.Warning:
		return protocol.DiagnosticSeverityWarning
	case diag.Note:
		return protocol.DiagnosticSeverityInformation
	case diag.Help:
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityError
	}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
