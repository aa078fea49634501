package toolexecutor

import (
	"fmt"
	"strings"
)

// ToolCategory groups tools by the kind of effect they have
type ToolCategory string

const (
	CategoryRead    ToolCategory = "read"
	CategoryWrite   ToolCategory = "write"
	CategoryGeneral ToolCategory = "general"
)

// AllCategories returns all valid tool categories
func AllCategories() []ToolCategory {
	return []ToolCategory{
		CategoryRead,
		CategoryWrite,
		CategoryGeneral,
	}
}

// IsValidCategory checks if a category is valid
func IsValidCategory(category string) bool {
	_, err := ParseCategory(category)
	return err == nil
}

// ParseCategory parses a category name case-insensitively
func ParseCategory(category string) (ToolCategory, error) {
	cat := ToolCategory(strings.ToLower(strings.TrimSpace(category)))
	for _, valid := range AllCategories() {
		if cat == valid {
			return cat, nil
		}
	}
	return "", fmt.Errorf("invalid category: %q", category)
}

// ParseCategories parses a list of category names, failing on the first invalid one
func ParseCategories(names []string) ([]ToolCategory, error) {
	categories := make([]ToolCategory, 0, len(names))
	for _, name := range names {
		cat, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		categories = append(categories, cat)
	}
	return categories, nil
}
