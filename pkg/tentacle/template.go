package tentacle

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandContext is the placeholder map available to a build or start
// command template.
type CommandContext struct {
	Host   string
	Port   int
	Path   string
	Branch string
}

// TemplateError reports a command template referencing a placeholder
// outside {host, port, path, branch}.
type TemplateError struct {
	Template    string
	Placeholder string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("tentacle: unknown placeholder {%s} in command template %q", e.Placeholder, e.Template)
}

var knownPlaceholders = map[string]func(CommandContext) string{
	"host":   func(c CommandContext) string { return c.Host },
	"port":   func(c CommandContext) string { return strconv.Itoa(c.Port) },
	"path":   func(c CommandContext) string { return c.Path },
	"branch": func(c CommandContext) string { return c.Branch },
}

// renderCommand substitutes {host}, {port}, {path}, {branch} in tmpl
// with values from ctx. Any other {...} placeholder is rejected before
// any process is spawned; this is a small hand-written scanner rather
// than text/template because text/template has no clean way to fail
// on an unknown single-brace placeholder before execution starts (see
// Design Notes).
func renderCommand(tmpl string, ctx CommandContext) (string, error) {
	var out strings.Builder
	out.Grow(len(tmpl))

	i := 0
	for i < len(tmpl) {
		c := tmpl[i]
		if c != '{' {
			out.WriteByte(c)
			i++
			continue
		}

		end := strings.IndexByte(tmpl[i:], '}')
		if end < 0 {
			// Unterminated '{' is passed through literally; the source
			// format has no escape syntax for a bare brace.
			out.WriteByte(c)
			i++
			continue
		}

		name := tmpl[i+1 : i+end]
		resolve, ok := knownPlaceholders[name]
		if !ok {
			return "", &TemplateError{Template: tmpl, Placeholder: name}
		}
		out.WriteString(resolve(ctx))
		i += end + 1
	}

	return out.String(), nil
}
