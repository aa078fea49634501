package coretools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/harun/toolgate/pkg/toolexecutor"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchInFile_ContextWindow(t *testing.T) {
	reg, fsys := newTestRegistry(t)
	require.NoError(t, afero.WriteFile(fsys, "/project/three.txt", []byte("alpha\nneedle here\ngamma"), 0o644))

	out, err := reg.Dispatch(context.Background(), "search_in_file", map[string]any{
		"path":    "three.txt",
		"query":   "needle",
		"context": float64(1),
	})
	require.NoError(t, err)

	want := strings.Join([]string{
		"Searched 3 lines in: three.txt",
		"Query: needle (text, case-insensitive)",
		"Matches: 1",
		"",
		"--- Matches ---",
		"",
		"Line 2: needle here",
		"     1 | alpha",
		">    2 | needle here",
		"     3 | gamma",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestSearchInFile_NoMatches(t *testing.T) {
	reg, fsys := newTestRegistry(t)
	require.NoError(t, afero.WriteFile(fsys, "/project/a.txt", []byte("x\r\ny\rz"), 0o644))

	out, err := reg.Dispatch(context.Background(), "search_in_file", map[string]any{
		"path":          "a.txt",
		"query":         "X",
		"caseSensitive": "yes",
	})
	require.NoError(t, err)
	assert.Equal(t, "Searched 3 lines in: a.txt\nQuery: X (text, case-sensitive)\nMatches: 0\n\n(no matches)", out)
}

func TestSearchInFile_NullOptionsUseDefaults(t *testing.T) {
	reg, fsys := newTestRegistry(t)
	require.NoError(t, afero.WriteFile(fsys, "/project/a.txt", []byte("one\nNeedle two\nthree"), 0o644))

	out, err := reg.Dispatch(context.Background(), "search_in_file", map[string]any{
		"path":          "a.txt",
		"query":         "needle",
		"isRegex":       nil,
		"caseSensitive": nil,
		"context":       nil,
		"maxMatches":    nil,
	})
	require.NoError(t, err)

	want := strings.Join([]string{
		"Searched 3 lines in: a.txt",
		"Query: needle (text, case-insensitive)",
		"Matches: 1",
		"",
		"--- Matches ---",
		"",
		"Line 2: Needle two",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestSearchInFile_InvalidRegexFailsBeforeScan(t *testing.T) {
	reg, fsys := newTestRegistry(t)
	require.NoError(t, afero.WriteFile(fsys, "/project/a.txt", []byte("(unclosed\n(unclosed"), 0o644))

	out, err := reg.Dispatch(context.Background(), "search_in_file", map[string]any{
		"path":    "a.txt",
		"query":   "(unclosed",
		"isRegex": true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, toolexecutor.ErrInvalidPattern)
	assert.True(t, strings.HasPrefix(err.Error(), "search_in_file: invalid regex: "))
	assert.Empty(t, out)

	// The pattern is rejected even when the file does not exist.
	_, err = reg.Dispatch(context.Background(), "search_in_file", map[string]any{
		"path":    "missing.txt",
		"query":   "[",
		"isRegex": "true",
	})
	assert.ErrorIs(t, err, toolexecutor.ErrInvalidPattern)
}

func TestSearchInFile_CapStopsScanInOrder(t *testing.T) {
	reg, fsys := newTestRegistry(t)
	var lines []string
	for i := 1; i <= 20; i++ {
		lines = append(lines, fmt.Sprintf("hit %d", i))
	}
	require.NoError(t, afero.WriteFile(fsys, "/project/hits.txt", []byte(strings.Join(lines, "\n")), 0o644))

	out, err := reg.Dispatch(context.Background(), "search_in_file", map[string]any{
		"path":       "hits.txt",
		"query":      `^hit \d+$`,
		"isRegex":    "1",
		"maxMatches": "3.9",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Query: ^hit \\d+$ (regex, case-insensitive)")
	assert.Contains(t, out, "Matches: 3 (capped at 3)")
	assert.Equal(t, 3, strings.Count(out, "\nLine "))
	assert.Less(t, strings.Index(out, "Line 1:"), strings.Index(out, "Line 2:"))
	assert.Less(t, strings.Index(out, "Line 2:"), strings.Index(out, "Line 3:"))
	assert.NotContains(t, out, "Line 4:")
}

func TestSearchInFile_MissingArguments(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Dispatch(context.Background(), "search_in_file", map[string]any{"query": "x"})
	assert.EqualError(t, err, "search_in_file: missing required arg: path")

	_, err = reg.Dispatch(context.Background(), "search_in_file", map[string]any{"path": "a.txt", "query": "  "})
	assert.EqualError(t, err, "search_in_file: missing required arg: query")
}

func TestSearch_CaseInsensitiveRegex(t *testing.T) {
	hits, err := Search("Foo\nbar\nFOO", SearchOptions{Query: "^foo$", IsRegex: true, MaxMatches: 10})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].Line)
	assert.Equal(t, 3, hits[1].Line)
}

func TestSearch_ContextClippedAtEdges(t *testing.T) {
	hits, err := Search("a\nb\nc\nd", SearchOptions{Query: "a", Context: 3, MaxMatches: 5})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Len(t, hits[0].Context, 4)
	assert.True(t, hits[0].Context[0].IsMatch)
	assert.Equal(t, 4, hits[0].Context[3].Line)
}

func TestClampIntArg(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"absent", nil, 50},
		{"float", float64(7), 7},
		{"int", 12, 12},
		{"truncates", 9.99, 9},
		{"negative truncates toward zero", -0.5, 1},
		{"string", " 30 ", 30},
		{"json number", json.Number("250"), 200},
		{"below range", float64(0), 1},
		{"above range", float64(1000), 200},
		{"garbage string", "lots", 50},
		{"bool", true, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clampIntArg(tt.value, 1, 200, 50))
		})
	}
}

func TestBoolArg(t *testing.T) {
	assert.True(t, boolArg(true, false))
	assert.True(t, boolArg("YES", false))
	assert.True(t, boolArg("1", false))
	assert.False(t, boolArg("no", true))
	assert.False(t, boolArg("0", true))
	assert.True(t, boolArg("maybe", true))
	assert.False(t, boolArg(1, false))
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "d", ""}, SplitLines("a\r\nb\rc\nd\n"))
	assert.Equal(t, []string{""}, SplitLines(""))
}
