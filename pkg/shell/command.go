package shell

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// SplitCommands parses command text into its top-level shell statements.
// Operator-joined compounds ("a && b", "a | b", "if ...; then ...; fi") are
// single statements; only visually separate commands ("a; b", one per line)
// split. Text that does not parse as shell is returned as a single statement
// and left for the shell itself to reject.
func SplitCommands(command string) []string {
	if strings.TrimSpace(command) == "" {
		return nil
	}

	file, err := syntax.NewParser(syntax.KeepComments(false)).Parse(strings.NewReader(command), "")
	if err != nil {
		return []string{command}
	}
	if len(file.Stmts) <= 1 {
		return []string{command}
	}

	parts := make([]string, 0, len(file.Stmts))
	for _, stmt := range file.Stmts {
		start := int(stmt.Pos().Offset())
		end := int(stmt.End().Offset())
		if start < 0 || end > len(command) || start >= end {
			continue
		}
		part := strings.TrimSpace(command[start:end])
		part = strings.TrimSpace(strings.TrimSuffix(part, ";"))
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return []string{command}
	}
	return parts
}

// escapeSpecialChars doubles backslashes that precede shell metacharacters
// in unquoted positions. The command travels to the shell as literal
// keystrokes, so a single backslash written to escape a metacharacter would
// otherwise be consumed once more than the author intended.
func escapeSpecialChars(command string) string {
	if strings.TrimSpace(command) == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(command))
	inSingle, inDouble := false, false
	for i := 0; i < len(command); i++ {
		c := command[i]
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			b.WriteByte(c)
		case c == '"' && !inSingle:
			inDouble = !inDouble
			b.WriteByte(c)
		case c == '\\' && !inSingle && !inDouble && i+1 < len(command):
			next := command[i+1]
			if strings.IndexByte(";&|><` \t", next) >= 0 {
				b.WriteString(`\\`)
				b.WriteByte(next)
				i++
				continue
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// isControlKey reports whether the command is a control-key chord of the
// form C-<letter>, which is delivered as a key name without a newline.
func isControlKey(command string) bool {
	trimmed := strings.TrimSpace(command)
	return len(trimmed) == 3 && strings.HasPrefix(trimmed, "C-")
}
