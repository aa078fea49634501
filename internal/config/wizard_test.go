package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWizard(input string) (*Wizard, *bytes.Buffer) {
	var out bytes.Buffer
	w := NewWizard(strings.NewReader(input), &out)
	w.generateSecret = func() (string, error) { return "generated-secret-0123456789", nil }
	return w, &out
}

func TestWizard_DefaultsOnEnter(t *testing.T) {
	w, out := newTestWizard("\n\n\n\n\n")

	cfg, err := w.Run(nil)

	require.NoError(t, err)
	assert.Empty(t, cfg.Workspace.Root)
	assert.Empty(t, cfg.Consent.AutoApproveCategories)
	assert.Zero(t, cfg.Consent.TimeoutSeconds)
	assert.False(t, cfg.Gateway.Enabled)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Contains(t, out.String(), "Configuration complete!")
	require.NoError(t, cfg.Validate())
}

func TestWizard_FullAnswers(t *testing.T) {
	input := strings.Join([]string{
		"/srv/project",
		"y",
		"120",
		"yes",
		"9001",
		"info",
	}, "\n") + "\n"
	w, _ := newTestWizard(input)

	cfg, err := w.Run(nil)

	require.NoError(t, err)
	assert.Equal(t, "/srv/project", cfg.Workspace.Root)
	assert.Equal(t, []string{"read"}, cfg.Consent.AutoApproveCategories)
	assert.Equal(t, 120, cfg.Consent.TimeoutSeconds)
	assert.True(t, cfg.Gateway.Enabled)
	assert.Equal(t, 9001, cfg.Gateway.Port)
	assert.Equal(t, "generated-secret-0123456789", cfg.Gateway.SharedSecret)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestWizard_RetriesInvalidAnswers(t *testing.T) {
	input := strings.Join([]string{
		"relative/dir", "/srv/project",
		"n",
		"-3", "soon", "0",
		"n",
		"chatty", "debug",
	}, "\n")
	w, out := newTestWizard(input)

	cfg, err := w.Run(nil)

	require.NoError(t, err)
	assert.Equal(t, "/srv/project", cfg.Workspace.Root)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 4, strings.Count(out.String(), "Error:"))
}

func TestWizard_KeepsExistingSecretAndCategories(t *testing.T) {
	base := DefaultConfig()
	base.Consent.AutoApproveCategories = []string{"write", "read"}
	base.Gateway.Enabled = true
	base.Gateway.SharedSecret = "existing-secret-0123"

	w, _ := newTestWizard("\nn\n\n\n\n\n")

	cfg, err := w.Run(base)

	require.NoError(t, err)
	assert.Equal(t, []string{"write"}, cfg.Consent.AutoApproveCategories)
	assert.Equal(t, "existing-secret-0123", cfg.Gateway.SharedSecret)
	assert.Equal(t, []string{"write", "read"}, base.Consent.AutoApproveCategories, "base is not modified")
}

func TestWizard_InputEnds(t *testing.T) {
	w, _ := newTestWizard("/srv/project\n")

	_, err := w.Run(nil)

	assert.ErrorContains(t, err, "configuration input ended")
}
