package toolcall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBlocks(t *testing.T) {
	output := "I'll create the page.\n\n" +
		"```tool\n{ \"name\": \"write_file\", \"args\": { \"path\": \"index.html\", \"content\": \"<h1>hi</h1>\" } }\n```\n" +
		"Then list it:\n" +
		"```tool_call\n{ \"name\": \"list_dir\", \"args\": { \"path\": \".\" } }\n```"

	cleaned, blocks := ExtractBlocks(output)

	require.Len(t, blocks, 2)
	assert.Contains(t, blocks[0], `"write_file"`)
	assert.Contains(t, blocks[1], `"list_dir"`)
	assert.Equal(t, "I'll create the page.\n\n\nThen list it:", cleaned)

	for _, block := range blocks {
		_, err := Normalize(block)
		assert.NoError(t, err)
	}
}

func TestExtractBlocks_IgnoresOtherFences(t *testing.T) {
	output := "```go\nfmt.Println(\"x\")\n```"

	cleaned, blocks := ExtractBlocks(output)
	assert.Empty(t, blocks)
	assert.Equal(t, output, cleaned)
}

func TestSplitProposals(t *testing.T) {
	t.Run("fenced blocks win", func(t *testing.T) {
		text := "noise line\n```tool\n{\"name\":\"read_file\",\"args\":{\"path\":\"a\"}}\n```"
		proposals := SplitProposals(text)
		require.Len(t, proposals, 1)
		assert.Equal(t, `{"name":"read_file","args":{"path":"a"}}`, proposals[0])
	})

	t.Run("one proposal per line", func(t *testing.T) {
		text := "{\"tool\":\"list_dir\",\"args\":{\"path\":\".\"}}\r\n\n  {\"name\":\"read_file\",\"arguments\":\"{}\"}  \n"
		proposals := SplitProposals(text)
		require.Len(t, proposals, 2)
		assert.Equal(t, `{"tool":"list_dir","args":{"path":"."}}`, proposals[0])
		assert.Equal(t, `{"name":"read_file","arguments":"{}"}`, proposals[1])
	})
}
