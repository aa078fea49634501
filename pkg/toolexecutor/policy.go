package toolexecutor

import (
	"github.com/rs/zerolog/log"
)

// ConsentPolicy decides whether a tool call needs a human decision before it runs
type ConsentPolicy interface {
	ConsentRequired(toolName string, args map[string]any) bool
}

// ConsentPolicyFunc adapts a function to ConsentPolicy
type ConsentPolicyFunc func(toolName string, args map[string]any) bool

// ConsentRequired implements ConsentPolicy
func (f ConsentPolicyFunc) ConsentRequired(toolName string, args map[string]any) bool {
	return f(toolName, args)
}

// AlwaysRequireConsent is the default policy: every call needs approval
var AlwaysRequireConsent ConsentPolicy = ConsentPolicyFunc(func(string, map[string]any) bool { return true })

// RulePolicy waives consent for configured tools and categories.
// AlwaysRequire overrides both waivers; unknown tools always require consent.
type RulePolicy struct {
	AutoApprove           []string       `json:"auto_approve"`
	AutoApproveCategories []ToolCategory `json:"auto_approve_categories"`
	AlwaysRequire         []string       `json:"always_require"`

	registry *Registry
}

// NewRulePolicy creates a rule policy that looks tool categories up in registry
func NewRulePolicy(registry *Registry, autoApprove []string, categories []ToolCategory, alwaysRequire []string) *RulePolicy {
	policy := &RulePolicy{
		AutoApprove:           autoApprove,
		AutoApproveCategories: categories,
		AlwaysRequire:         alwaysRequire,
		registry:              registry,
	}
	policy.validate()
	return policy
}

// ConsentRequired implements ConsentPolicy
func (p *RulePolicy) ConsentRequired(toolName string, _ map[string]any) bool {
	if p == nil {
		return true
	}

	for _, name := range p.AlwaysRequire {
		if name == toolName || name == "*" {
			return true
		}
	}

	for _, name := range p.AutoApprove {
		if name == toolName || name == "*" {
			return false
		}
	}

	if p.registry == nil || len(p.AutoApproveCategories) == 0 {
		return true
	}

	tool := p.registry.GetTool(toolName)
	if tool == nil {
		return true
	}
	for _, cat := range p.AutoApproveCategories {
		if tool.Category == cat {
			return false
		}
	}

	return true
}

// validate warns about rule sets that are easy to misread
func (p *RulePolicy) validate() {
	for _, name := range p.AutoApprove {
		if name == "*" {
			log.Warn().Msg("Consent policy auto-approves every tool")
		}
	}

	if p.registry == nil {
		return
	}
	for _, name := range p.AutoApprove {
		if name != "*" && !p.registry.HasTool(name) {
			log.Warn().Str("tool", name).Msg("Consent policy auto-approves an unregistered tool")
		}
	}
}
