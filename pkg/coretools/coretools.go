package coretools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harun/toolgate/pkg/toolexecutor"
)

const (
	previewMaxChars  = 700
	truncationMarker = "\n…(truncated)"
	listingMaxShown  = 40
)

// RegisterCoreTools registers the file tools backed by access.
func RegisterCoreTools(registry *toolexecutor.Registry, access FileAccess) error {
	if registry == nil {
		return errors.New("tool registry is required")
	}
	if access == nil {
		return errors.New("file access is required")
	}

	tools := []toolexecutor.ToolDefinition{
		readFileTool(access),
		listDirTool(access),
		searchInFileTool(access),
		writeFileTool(access),
		mkdirTool(access),
	}

	for _, tool := range tools {
		if err := registry.RegisterTool(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
	}
	return nil
}

func readFileTool(access FileAccess) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "read_file",
		Description: "Read a text file and return its size and a preview.",
		Category:    toolexecutor.CategoryRead,
		Parameters: []toolexecutor.ToolParameter{
			{Name: "path", Type: "string", Description: "File path, absolute or relative to the project root", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			target, err := requirePath("read_file", access, args, "path")
			if err != nil {
				return "", err
			}

			text, err := access.ReadText(ctx, target)
			if err != nil {
				return "", fmt.Errorf("read_file: %w", err)
			}

			return fmt.Sprintf("Read %d bytes (Path: %s)\n\n--- File preview ---\n%s",
				len(text), target, previewText(text, previewMaxChars)), nil
		},
	}
}

func listDirTool(access FileAccess) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "list_dir",
		Description: "List the top level of a directory.",
		Category:    toolexecutor.CategoryRead,
		Parameters: []toolexecutor.ToolParameter{
			{Name: "path", Type: "string", Description: "Directory path, absolute or relative to the project root", Required: true},
			{Name: "dirPath", Type: "string", Description: "Alias for path", Required: false},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			target, err := requirePath("list_dir", access, args, "path", "dirPath")
			if err != nil {
				return "", err
			}

			entries, err := access.ListDirectory(ctx, target)
			if err != nil {
				return "", fmt.Errorf("list_dir: %w", err)
			}

			return renderListing(target, entries), nil
		},
	}
}

func writeFileTool(access FileAccess) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "write_file",
		Description: "Write text content to a file, replacing it.",
		Category:    toolexecutor.CategoryWrite,
		Parameters: []toolexecutor.ToolParameter{
			{Name: "path", Type: "string", Description: "File path, absolute or relative to the project root", Required: true},
			{Name: "content", Type: "string", Description: "Text to write", Required: false, Default: ""},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			target, err := requirePath("write_file", access, args, "path")
			if err != nil {
				return "", err
			}

			content, _ := args["content"].(string)
			if err := access.WriteText(ctx, target, content); err != nil {
				return "", fmt.Errorf("write_file: %w", err)
			}

			return fmt.Sprintf("Wrote %d bytes (Path: %s)", len(content), target), nil
		},
	}
}

func mkdirTool(access FileAccess) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "mkdir",
		Description: "Create a directory and any missing parents.",
		Category:    toolexecutor.CategoryWrite,
		Parameters: []toolexecutor.ToolParameter{
			{Name: "path", Type: "string", Description: "Directory path, absolute or relative to the project root", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			target, err := requirePath("mkdir", access, args, "path")
			if err != nil {
				return "", err
			}

			if err := access.MakeDir(ctx, target); err != nil {
				return "", fmt.Errorf("mkdir: %w", err)
			}

			return fmt.Sprintf("Created directory (Path: %s)", target), nil
		},
	}
}

// requirePath reads the first non-blank of keys and resolves it
func requirePath(tool string, access FileAccess, args map[string]any, keys ...string) (string, error) {
	raw := stringArg(args, keys...)
	if raw == "" {
		return "", fmt.Errorf("%s: %w: %s", tool, toolexecutor.ErrMissingArgument, keys[0])
	}

	target, err := access.Resolve(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", tool, err)
	}
	return target, nil
}

func stringArg(args map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := args[key].(string); ok {
			if value = strings.TrimSpace(value); value != "" {
				return value
			}
		}
	}
	return ""
}

// previewText keeps the first max characters and marks the cut
func previewText(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + truncationMarker
}

func renderListing(path string, entries []DirEntry) string {
	dirs := 0
	for _, entry := range entries {
		if entry.IsDir {
			dirs++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Listed %d entries (dirs: %d, files: %d) (Path: %s)", len(entries), dirs, len(entries)-dirs, path)

	if len(entries) == 0 {
		b.WriteString("\n\n(empty)")
		return b.String()
	}

	b.WriteString("\n\n--- Directory listing (top-level) ---")
	for i, entry := range entries {
		if i == listingMaxShown {
			break
		}
		kind := "file"
		if entry.IsDir {
			kind = "dir"
		}
		fmt.Fprintf(&b, "\n- [%s] %s", kind, entry.Name)
	}
	return b.String()
}
