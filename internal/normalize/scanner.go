package normalize

import "strings"

// mask returns a copy of src in which every byte belonging to a comment or a
// string/char literal is replaced by a space. Newlines are kept, so byte offsets
// and line boundaries in the result line up with src.
func mask(src string) string {
	out := []byte(src)
	for i := 0; i < len(src); {
		var end int
		switch {
		case strings.HasPrefix(src[i:], "//"):
			end = strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src)
			} else {
				end += i
			}
		case strings.HasPrefix(src[i:], "/*"):
			end = skipBlockComment(src, i)
		case strings.HasPrefix(src[i:], `"""`):
			end = skipRawString(src, i)
		case src[i] == '"':
			end = skipString(src, i)
		case src[i] == '\'':
			end = skipChar(src, i)
		default:
			i++
			continue
		}
		blank(out, i, end)
		i = end
	}
	return string(out)
}

func blank(b []byte, from, to int) {
	for k := from; k < to && k < len(b); k++ {
		if b[k] != '\n' {
			b[k] = ' '
		}
	}
}

// skipBlockComment returns the offset just past the block comment opened at i.
// Kotlin block comments nest.
func skipBlockComment(src string, i int) int {
	depth := 0
	for j := i; j < len(src); {
		switch {
		case strings.HasPrefix(src[j:], "/*"):
			depth++
			j += 2
		case strings.HasPrefix(src[j:], "*/"):
			depth--
			j += 2
			if depth == 0 {
				return j
			}
		default:
			j++
		}
	}
	return len(src)
}

// skipString returns the offset just past the quoted string opened at i. An
// unterminated string ends at the line break.
func skipString(src string, i int) int {
	for j := i + 1; j < len(src); {
		switch src[j] {
		case '\\':
			j += 2
		case '"':
			return j + 1
		case '\n':
			return j
		case '$':
			if j+1 < len(src) && src[j+1] == '{' {
				j = skipTemplate(src, j+2)
				continue
			}
			j++
		default:
			j++
		}
	}
	return len(src)
}

func skipRawString(src string, i int) int {
	for j := i + 3; j < len(src); {
		switch {
		case strings.HasPrefix(src[j:], `"""`):
			j += 3
			for j < len(src) && src[j] == '"' {
				j++
			}
			return j
		case strings.HasPrefix(src[j:], "${"):
			j = skipTemplate(src, j+2)
		default:
			j++
		}
	}
	return len(src)
}

// skipTemplate consumes a ${...} expression body starting after the opening brace.
func skipTemplate(src string, j int) int {
	depth := 1
	for j < len(src) {
		switch {
		case src[j] == '{':
			depth++
			j++
		case src[j] == '}':
			depth--
			j++
			if depth == 0 {
				return j
			}
		case strings.HasPrefix(src[j:], `"""`):
			j = skipRawString(src, j)
		case src[j] == '"':
			j = skipString(src, j)
		case src[j] == '\'':
			j = skipChar(src, j)
		default:
			j++
		}
	}
	return len(src)
}

func skipChar(src string, i int) int {
	for j := i + 1; j < len(src); {
		switch src[j] {
		case '\\':
			j += 2
		case '\'':
			return j + 1
		case '\n':
			return j
		default:
			j++
		}
	}
	return len(src)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

// HasEntryPoint reports whether code declares a top-level `fun main()` whose
// body opens with a brace. Text inside comments and string literals is ignored.
func HasEntryPoint(code string) bool {
	masked := mask(code)
	depth := 0
	for i := 0; i < len(masked); {
		c := masked[i]
		switch {
		case c == '{':
			depth++
			i++
		case c == '}':
			if depth > 0 {
				depth--
			}
			i++
		case isIdentStart(c):
			j := i
			for j < len(masked) && isIdentPart(masked[j]) {
				j++
			}
			if depth == 0 && masked[i:j] == "fun" && matchMainSignature(masked, j) {
				return true
			}
			i = j
		default:
			i++
		}
	}
	return false
}

// matchMainSignature matches `main ( params ) [: Unit] {` starting at i.
func matchMainSignature(s string, i int) bool {
	i = skipSpace(s, i)
	if !strings.HasPrefix(s[i:], "main") {
		return false
	}
	i += len("main")
	if i < len(s) && isIdentPart(s[i]) {
		return false
	}
	i = skipSpace(s, i)
	if i >= len(s) || s[i] != '(' {
		return false
	}
	closeIdx := strings.IndexByte(s[i:], ')')
	if closeIdx < 0 || !isMainParams(s[i+1:i+closeIdx]) {
		return false
	}
	i = skipSpace(s, i+closeIdx+1)
	if i < len(s) && s[i] == ':' {
		i = skipSpace(s, i+1)
		if !strings.HasPrefix(s[i:], "Unit") {
			return false
		}
		i = skipSpace(s, i+len("Unit"))
	}
	return i < len(s) && s[i] == '{'
}

// isMainParams accepts the empty list and the JVM launcher forms
// `args: Array<String>` and `vararg args: String`.
func isMainParams(params string) bool {
	compact := strings.Join(strings.Fields(params), "")
	if compact == "" {
		return true
	}
	name, typ, ok := strings.Cut(compact, ":")
	if !ok {
		return false
	}
	if rest, isVararg := strings.CutPrefix(name, "vararg"); isVararg && isIdent(rest) && typ == "String" {
		return true
	}
	return isIdent(name) && (typ == "Array<String>" || typ == "Array<outString>")
}
