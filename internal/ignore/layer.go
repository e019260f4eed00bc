// Package ignore implements the layered .gitignore rule engine: parsing one
// file into an ordered Layer (this file), and resolving a chain of layers
// from a scan root down to a queried path (chain.go).
package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/waterrun/treepp/internal/pattern"
)

// Rule is one parsed line of a .gitignore file.
type Rule struct {
	Raw           string
	Negated       bool
	DirectoryOnly bool
	Anchored      bool
	Matcher       pattern.CompiledPattern
}

// Layer is the parsed ruleset of one .gitignore file, anchored at its
// directory. Rules are stored in file order; later rules override earlier
// ones within the same layer.
type Layer struct {
	AnchorDir string
	Rules     []Rule
}

// ParseError describes one line of a .gitignore file that failed to
// compile; it is never fatal (spec.md §9's resolved Open Question): the
// layer is still built from every rule that did parse.
type ParseError struct {
	AnchorDir string
	Line      int
	Raw       string
	Err       error
}

func (e *ParseError) Error() string {
	return e.AnchorDir + "/.gitignore:" + itoa(e.Line) + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// ParseLayer parses .gitignore content already anchored at anchorDir.
// Rules that fail to compile are skipped and reported as ParseErrors; the
// layer itself always builds successfully from whatever parsed.
func ParseLayer(anchorDir, content string, ignoreCase bool) (*Layer, []*ParseError) {
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "�")
	}

	layer := &Layer{AnchorDir: anchorDir}
	var errs []*ParseError

	lines := strings.Split(content, "\n")
	for i, raw := range lines {
		line := stripTrailingWhitespace(raw)
		if line == "" {
			continue
		}
		if line[0] == '#' {
			continue
		}

		rule, err := parseLine(line, ignoreCase)
		if err != nil {
			errs = append(errs, &ParseError{AnchorDir: anchorDir, Line: i + 1, Raw: raw, Err: err})
			continue
		}
		if rule == nil {
			continue
		}
		layer.Rules = append(layer.Rules, *rule)
	}

	return layer, errs
}

// LoadLayer reads and parses the .gitignore file directly inside dir, if
// one exists. A missing file is not an error: (nil, nil, nil) is returned.
// A file that exists but cannot be read yields a GitignoreParseError-style
// error; the caller treats the layer as absent (spec.md §7).
func LoadLayer(dir string, ignoreCase bool) (*Layer, []*ParseError, error) {
	gitignorePath := filepath.Join(dir, ".gitignore")
	data, err := os.ReadFile(gitignorePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, &readError{path: gitignorePath, err: err}
	}
	layer, parseErrs := ParseLayer(dir, string(data), ignoreCase)
	return layer, parseErrs, nil
}

type readError struct {
	path string
	err  error
}

func (e *readError) Error() string { return "ignore: cannot read " + e.path + ": " + e.err.Error() }
func (e *readError) Unwrap() error { return e.err }

// stripTrailingWhitespace removes trailing spaces/tabs that are not escaped
// with a backslash, per gitignore's lexical rules.
func stripTrailingWhitespace(line string) string {
	for len(line) > 0 {
		last := line[len(line)-1]
		if last != ' ' && last != '\t' && last != '\r' {
			break
		}
		// An escaped trailing space ("\ ") is kept, minus the escape.
		if last == ' ' && len(line) >= 2 && line[len(line)-2] == '\\' {
			line = line[:len(line)-2] + " "
			break
		}
		line = line[:len(line)-1]
	}
	return line
}

// parseLine compiles one non-blank, non-comment gitignore line into a Rule.
// Returns (nil, nil) for a line that parses to nothing actionable (should
// not normally happen once blanks/comments are already filtered).
func parseLine(line string, ignoreCase bool) (*Rule, error) {
	negated := false
	switch {
	case strings.HasPrefix(line, "\\#"):
		line = "#" + line[2:]
	case strings.HasPrefix(line, "\\!"):
		line = "!" + line[2:]
	case strings.HasPrefix(line, "!"):
		negated = true
		line = line[1:]
	}

	if line == "" {
		return nil, nil
	}

	directoryOnly := false
	if strings.HasSuffix(line, "/") && !strings.HasSuffix(line, "\\/") {
		directoryOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	line = strings.ReplaceAll(line, "\\/", "/")

	anchored := strings.HasPrefix(line, "/")
	globPattern := strings.TrimPrefix(line, "/")

	// A pattern with no further "/" (after stripping a leading anchor
	// slash and a trailing directory slash) matches by basename anywhere
	// below the anchor, per spec.md §4.B.
	if !anchored && !strings.Contains(globPattern, "/") {
		globPattern = "**/" + globPattern
	}

	matcher, err := pattern.Compile(globPattern, ignoreCase)
	if err != nil {
		return nil, err
	}

	return &Rule{
		Raw:           line,
		Negated:       negated,
		DirectoryOnly: directoryOnly,
		Anchored:      anchored,
		Matcher:       matcher,
	}, nil
}
