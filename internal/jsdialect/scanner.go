// Package jsdialect supplies the default parser/generator capabilities for
// script, JSON and asset modules. The script scanner is a lightweight
// lexical pass: it extracts dependency requests and classifies the export
// shape without building an AST.
package jsdialect

import (
	"strings"
	"unicode"

	"forge/internal/module"
	"forge/internal/resolve"
)

// scanned is the raw outcome of one source scan.
type scanned struct {
	deps          []module.Dependency
	hasEsmSyntax  bool
	hasCjsExports bool
	hasDefault    bool
}

// scan walks the source text once, skipping comments and string literals,
// collecting import/require/dynamic-import requests and export markers.
func scan(src string) scanned {
	var out scanned
	i := 0
	n := len(src)
	for i < n {
		c := src[i]
		switch {
		case c == '/' && i+1 < n && src[i+1] == '/':
			i = skipLine(src, i)
		case c == '/' && i+1 < n && src[i+1] == '*':
			i = skipBlock(src, i)
		case c == '\'' || c == '"' || c == '`':
			i = skipString(src, i)
		case isIdentStart(c) && atWordBoundary(src, i):
			word, end := readWord(src, i)
			i = handleWord(src, word, end, &out)
		default:
			i++
		}
	}
	return out
}

func handleWord(src, word string, end int, out *scanned) int {
	switch word {
	case "import":
		rest := end
		if r, ok := callRequest(src, rest); ok {
			// import("x") is a dynamic import.
			out.deps = append(out.deps, module.Dependency{
				Request:  r.request,
				Category: resolve.CategoryEsm,
				Type:     "dynamic import",
			})
			out.hasEsmSyntax = true
			return r.end
		}
		if req, reqEnd, ok := importFrom(src, rest); ok {
			out.deps = append(out.deps, module.Dependency{
				Request:  req,
				Category: resolve.CategoryEsm,
				Type:     "esm import",
			})
			out.hasEsmSyntax = true
			return reqEnd
		}
		return end
	case "export":
		out.hasEsmSyntax = true
		rest := skipSpace(src, end)
		if strings.HasPrefix(src[rest:], "default") {
			out.hasDefault = true
		}
		if req, reqEnd, ok := importFrom(src, end); ok {
			// export ... from "x" re-exports.
			out.deps = append(out.deps, module.Dependency{
				Request:  req,
				Category: resolve.CategoryEsm,
				Type:     "esm export",
			})
			return reqEnd
		}
		return end
	case "require":
		if r, ok := callRequest(src, end); ok {
			out.deps = append(out.deps, module.Dependency{
				Request:  r.request,
				Category: resolve.CategoryCommonJS,
				Type:     "cjs require",
			})
			return r.end
		}
		return end
	case "module", "exports":
		out.hasCjsExports = true
		return end
	default:
		return end
	}
}

type call struct {
	request string
	end     int
}

// callRequest matches `("literal")` directly after a keyword.
func callRequest(src string, i int) (call, bool) {
	i = skipSpace(src, i)
	if i >= len(src) || src[i] != '(' {
		return call{}, false
	}
	i = skipSpace(src, i+1)
	req, end, ok := stringLiteral(src, i)
	if !ok {
		return call{}, false
	}
	end = skipSpace(src, end)
	if end >= len(src) || src[end] != ')' {
		return call{}, false
	}
	return call{request: req, end: end + 1}, true
}

// importFrom matches the remainder of an import/export statement up to
// `from "literal"` or a bare `import "literal"`.
func importFrom(src string, i int) (string, int, bool) {
	j := skipSpace(src, i)
	if req, end, ok := stringLiteral(src, j); ok {
		return req, end, true
	}
	// Scan forward within the statement for `from "..."`.
	for j < len(src) {
		c := src[j]
		if c == ';' || c == '\n' {
			return "", 0, false
		}
		if isIdentStart(c) && atWordBoundary(src, j) {
			word, end := readWord(src, j)
			if word == "from" {
				k := skipSpace(src, end)
				return stringLiteral(src, k)
			}
			j = end
			continue
		}
		j++
	}
	return "", 0, false
}

func stringLiteral(src string, i int) (string, int, bool) {
	if i >= len(src) || (src[i] != '\'' && src[i] != '"') {
		return "", 0, false
	}
	quote := src[i]
	j := i + 1
	for j < len(src) && src[j] != quote {
		if src[j] == '\\' {
			j++
		}
		j++
	}
	if j >= len(src) {
		return "", 0, false
	}
	return src[i+1 : j], j + 1, true
}

func skipLine(src string, i int) int {
	for i < len(src) && src[i] != '\n' {
		i++
	}
	return i
}

func skipBlock(src string, i int) int {
	end := strings.Index(src[i+2:], "*/")
	if end < 0 {
		return len(src)
	}
	return i + 2 + end + 2
}

func skipString(src string, i int) int {
	quote := src[i]
	j := i + 1
	for j < len(src) {
		if src[j] == '\\' {
			j += 2
			continue
		}
		if src[j] == quote {
			return j + 1
		}
		j++
	}
	return j
}

func skipSpace(src string, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\r' || src[i] == '\n') {
		i++
	}
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || unicode.IsLetter(rune(c))
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func atWordBoundary(src string, i int) bool {
	return i == 0 || !isIdentPart(src[i-1])
}

func readWord(src string, i int) (string, int) {
	j := i
	for j < len(src) && isIdentPart(src[j]) {
		j++
	}
	return src[i:j], j
}
