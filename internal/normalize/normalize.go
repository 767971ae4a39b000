// Package normalize rewrites Kotlin snippets into a unit the remote executor accepts:
// package declarations and leading comment headers are removed and, when the code has
// no top-level `fun main() {`, the snippet is wrapped in one.
package normalize

import (
	"fmt"
	"strings"
	"unicode"
)

// WrapStyle selects how a snippet without an entry point is wrapped.
type WrapStyle string

const (
	// WrapFunction emits a bare top-level `fun main() { ... }`.
	WrapFunction WrapStyle = "function"
	// WrapContainer emits `object <Name> { @JvmStatic fun main(args: Array<String>) { ... } }`
	// for executors that look the entry point up on a named class.
	WrapContainer WrapStyle = "container"
)

const (
	DefaultContainerName = "Main"
	PlaceholderBody      = `println("No code provided")`

	indentUnit = "    "
)

// ParseWrapStyle maps a config value to a WrapStyle. Empty means WrapFunction.
func ParseWrapStyle(s string) (WrapStyle, error) {
	switch WrapStyle(strings.ToLower(strings.TrimSpace(s))) {
	case "", WrapFunction:
		return WrapFunction, nil
	case WrapContainer, "containerized":
		return WrapContainer, nil
	default:
		return "", fmt.Errorf("unknown wrap style %q", s)
	}
}

type Normalizer struct {
	style         WrapStyle
	containerName string
}

type Option func(*Normalizer)

func WithWrapStyle(style WrapStyle) Option {
	return func(n *Normalizer) {
		if style != "" {
			n.style = style
		}
	}
}

func WithContainerName(name string) Option {
	return func(n *Normalizer) {
		if isIdent(name) {
			n.containerName = name
		}
	}
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{style: WrapFunction, containerName: DefaultContainerName}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = New()

// Normalize applies the default (function) wrap style.
func Normalize(raw string) string {
	return defaultNormalizer.Normalize(raw)
}

// Style reports the wrap style applied to snippets without an entry point.
func (n *Normalizer) Style() WrapStyle {
	return n.style
}

// Normalize never fails: any input, including empty text, yields a unit with
// exactly one entry point.
func (n *Normalizer) Normalize(raw string) string {
	code := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	code = stripPackageDecls(code)
	code = stripLeadingComments(code)
	code = strings.TrimSpace(code)

	if HasEntryPoint(code) {
		return code
	}
	return n.wrap(code)
}

func (n *Normalizer) wrap(code string) string {
	if code == "" {
		code = PlaceholderBody
	}

	var b strings.Builder
	switch n.style {
	case WrapContainer:
		b.WriteString("object " + n.containerName + " {\n")
		b.WriteString(indentUnit + "@JvmStatic\n")
		b.WriteString(indentUnit + "fun main(args: Array<String>) {\n")
		b.WriteString(indentLines(code, indentUnit+indentUnit))
		b.WriteString("\n" + indentUnit + "}\n}")
	default:
		b.WriteString("fun main() {\n")
		b.WriteString(indentLines(code, indentUnit))
		b.WriteString("\n}")
	}
	return b.String()
}

// indentLines prefixes every non-blank line; blank lines become empty.
func indentLines(code, prefix string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// stripPackageDecls removes every package declaration, wherever it appears.
// Code sharing the line with the declaration is kept. Lines inside comments or
// strings are left alone.
func stripPackageDecls(code string) string {
	masked := mask(code)
	lines := strings.Split(code, "\n")
	maskedLines := strings.Split(masked, "\n")

	kept := lines[:0]
	for i, line := range lines {
		end, ok := packageDeclEnd(maskedLines[i])
		if !ok {
			kept = append(kept, line)
			continue
		}
		if rest := strings.TrimSpace(line[end:]); rest != "" {
			kept = append(kept, rest)
		}
	}
	return strings.Join(kept, "\n")
}

// packageDeclEnd returns the offset just past a leading `package a.b.c` and an
// optional `;` on a masked line.
func packageDeclEnd(line string) (int, bool) {
	i := skipSpace(line, 0)
	if !strings.HasPrefix(line[i:], "package") {
		return 0, false
	}
	i += len("package")
	j := skipSpace(line, i)
	if j == i {
		return 0, false
	}
	i = j

	for {
		start := i
		for i < len(line) && isIdentPart(line[i]) {
			i++
		}
		if !isIdent(line[start:i]) {
			return 0, false
		}
		if i < len(line) && line[i] == '.' {
			i++
			continue
		}
		break
	}

	i = skipSpace(line, i)
	if i < len(line) && line[i] == ';' {
		return i + 1, true
	}
	if i < len(line) && i > 0 && line[i-1] != ' ' && line[i-1] != '\t' {
		return 0, false
	}
	return i, true
}

// stripLeadingComments removes comments that precede the first real token.
func stripLeadingComments(code string) string {
	for {
		code = strings.TrimLeftFunc(code, unicode.IsSpace)
		switch {
		case strings.HasPrefix(code, "//"):
			idx := strings.IndexByte(code, '\n')
			if idx < 0 {
				return ""
			}
			code = code[idx+1:]
		case strings.HasPrefix(code, "/*"):
			code = code[skipBlockComment(code, 0):]
		default:
			return code
		}
	}
}
