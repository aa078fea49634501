package coretools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/harun/toolgate/pkg/toolexecutor"
)

const (
	maxContextLines   = 3
	defaultMaxMatches = 50
	maxMatchesLimit   = 200
)

var lineBreak = regexp.MustCompile(`\r\n|\r|\n`)

// SearchOptions controls one search_in_file scan
type SearchOptions struct {
	Query         string
	IsRegex       bool
	CaseSensitive bool
	Context       int
	MaxMatches    int
}

// SearchHit is one matching line with its surrounding context
type SearchHit struct {
	Line    int
	Text    string
	Context []ContextLine
}

// ContextLine is a line shown around a hit
type ContextLine struct {
	Line    int
	Text    string
	IsMatch bool
}

func searchInFileTool(access FileAccess) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "search_in_file",
		Description: "Search a text file for a literal string or regular expression.",
		Category:    toolexecutor.CategoryRead,
		Parameters: []toolexecutor.ToolParameter{
			{Name: "path", Type: "string", Description: "File path, absolute or relative to the project root", Required: true},
			{Name: "query", Type: "string", Description: "Text or pattern to find", Required: true},
			{Name: "isRegex", Type: "boolean|string", Description: "Treat query as a regular expression", Default: false},
			{Name: "caseSensitive", Type: "boolean|string", Description: "Match case exactly", Default: false},
			{Name: "context", Type: "number|string", Description: "Lines of context around each match (0-3)", Default: 0},
			{Name: "maxMatches", Type: "number|string", Description: "Stop after this many matches (1-200)", Default: defaultMaxMatches},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			rawPath := stringArg(args, "path")
			if rawPath == "" {
				return "", fmt.Errorf("search_in_file: %w: path", toolexecutor.ErrMissingArgument)
			}
			opts := SearchOptions{
				Query:         stringArg(args, "query"),
				IsRegex:       boolArg(args["isRegex"], false),
				CaseSensitive: boolArg(args["caseSensitive"], false),
				Context:       clampIntArg(args["context"], 0, maxContextLines, 0),
				MaxMatches:    clampIntArg(args["maxMatches"], 1, maxMatchesLimit, defaultMaxMatches),
			}
			if opts.Query == "" {
				return "", fmt.Errorf("search_in_file: %w: query", toolexecutor.ErrMissingArgument)
			}

			match, err := compileMatcher(opts)
			if err != nil {
				return "", fmt.Errorf("search_in_file: %w", err)
			}

			target, err := access.Resolve(rawPath)
			if err != nil {
				return "", fmt.Errorf("search_in_file: %w", err)
			}
			text, err := access.ReadText(ctx, target)
			if err != nil {
				return "", fmt.Errorf("search_in_file: %w", err)
			}

			lines := SplitLines(text)
			hits := scanLines(lines, match, opts)
			return renderSearch(rawPath, len(lines), hits, opts), nil
		},
	}
}

// SplitLines splits text on \r\n, \r and \n
func SplitLines(text string) []string {
	return lineBreak.Split(text, -1)
}

// Search runs one scan over text. A malformed pattern fails before any line is read.
func Search(text string, opts SearchOptions) ([]SearchHit, error) {
	match, err := compileMatcher(opts)
	if err != nil {
		return nil, err
	}
	return scanLines(SplitLines(text), match, opts), nil
}

func compileMatcher(opts SearchOptions) (func(string) bool, error) {
	if opts.IsRegex {
		pattern := opts.Query
		if !opts.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", toolexecutor.ErrInvalidPattern, err)
		}
		return re.MatchString, nil
	}

	if opts.CaseSensitive {
		return func(line string) bool { return strings.Contains(line, opts.Query) }, nil
	}
	needle := strings.ToLower(opts.Query)
	return func(line string) bool { return strings.Contains(strings.ToLower(line), needle) }, nil
}

// scanLines walks top to bottom and stops at the cap
func scanLines(lines []string, match func(string) bool, opts SearchOptions) []SearchHit {
	maxMatches := opts.MaxMatches
	if maxMatches < 1 {
		maxMatches = defaultMaxMatches
	}

	var hits []SearchHit
	for i, line := range lines {
		if !match(line) {
			continue
		}

		from := max(0, i-opts.Context)
		to := min(len(lines)-1, i+opts.Context)
		window := make([]ContextLine, 0, to-from+1)
		for j := from; j <= to; j++ {
			window = append(window, ContextLine{Line: j + 1, Text: lines[j], IsMatch: j == i})
		}

		hits = append(hits, SearchHit{Line: i + 1, Text: line, Context: window})
		if len(hits) >= maxMatches {
			break
		}
	}
	return hits
}

func renderSearch(path string, scanned int, hits []SearchHit, opts SearchOptions) string {
	mode := "text"
	if opts.IsRegex {
		mode = "regex"
	}
	sensitivity := "case-insensitive"
	if opts.CaseSensitive {
		sensitivity = "case-sensitive"
	}
	capped := ""
	if len(hits) >= opts.MaxMatches {
		capped = fmt.Sprintf(" (capped at %d)", opts.MaxMatches)
	}

	out := []string{fmt.Sprintf("Searched %d lines in: %s\nQuery: %s (%s, %s)\nMatches: %d%s",
		scanned, path, opts.Query, mode, sensitivity, len(hits), capped)}

	if len(hits) == 0 {
		out = append(out, "\n(no matches)")
		return strings.Join(out, "\n")
	}

	out = append(out, "\n--- Matches ---")
	for _, hit := range hits {
		out = append(out, fmt.Sprintf("\nLine %d: %s", hit.Line, hit.Text))
		if opts.Context == 0 {
			continue
		}
		for _, c := range hit.Context {
			marker := " "
			if c.IsMatch {
				marker = ">"
			}
			out = append(out, fmt.Sprintf("%s %4d | %s", marker, c.Line, c.Text))
		}
	}
	return strings.Join(out, "\n")
}

// boolArg accepts booleans and "true/1/yes", "false/0/no"
func boolArg(value any, fallback bool) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return fallback
}

// clampIntArg accepts numbers or numeric strings, truncates toward zero and clamps
func clampIntArg(value any, lo, hi, fallback int) int {
	var f float64
	switch v := value.(type) {
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return fallback
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fallback
		}
		f = parsed
	default:
		return fallback
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	n := math.Trunc(f)
	if n < float64(lo) {
		return lo
	}
	if n > float64(hi) {
		return hi
	}
	return int(n)
}
