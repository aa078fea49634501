package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/harun/toolgate/internal/config"
	"github.com/harun/toolgate/pkg/toolexecutor"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entryCollector struct {
	mu      sync.Mutex
	entries []toolexecutor.TranscriptEntry
}

func (c *entryCollector) add(entry toolexecutor.TranscriptEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

func (c *entryCollector) phases() []toolexecutor.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	phases := make([]toolexecutor.Phase, 0, len(c.entries))
	for _, entry := range c.entries {
		phases = append(phases, entry.Meta.Phase)
	}
	return phases
}

func newTestFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/project", 0o755))
	return fs
}

func TestNewSession_RequiresConsentSurface(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workspace.Root = "/project"

	_, err := newSession(cfg, newTestFs(t), sessionOptions{logger: zerolog.Nop()})

	assert.ErrorIs(t, err, errNoConsentSurface)
}

func TestNewSession_RejectsUnknownCategory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Consent.AutoApproveCategories = []string{"network"}

	_, err := newSession(cfg, newTestFs(t), sessionOptions{autoApprove: true, logger: zerolog.Nop()})

	assert.Error(t, err)
}

func TestSession_GatewayOperatorApproves(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workspace.Root = "/project"
	cfg.Gateway = config.GatewayConfig{Enabled: true, Host: "127.0.0.1", Port: 0, SharedSecret: "0123456789abcdef"}
	fs := newTestFs(t)

	s, err := newSession(cfg, fs, sessionOptions{logger: zerolog.Nop()})
	require.NoError(t, err)
	require.NotNil(t, s.gateway)

	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if req, ok := s.gateway.PendingConsent(); ok {
				_ = s.gateway.ResolveConsent(req.ID, toolexecutor.DecisionApproved)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	var collected entryCollector
	results, err := s.run(context.Background(), []string{`{"name":"mkdir","args":{"path":"out"}}`}, collected.add)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].OK, results[0].Error)
	assert.Equal(t, []toolexecutor.Phase{toolexecutor.PhaseCall, toolexecutor.PhaseResult}, collected.phases())

	exists, err := afero.DirExists(fs, "/project/out")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.ToolInvocationsTotal.WithLabelValues("mkdir", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.ConsentDecisionsTotal.WithLabelValues("approved", "user")))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.metrics.ConsentPending))
}

func TestSession_ConsentTimeout(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workspace.Root = "/project"
	cfg.Gateway = config.GatewayConfig{Enabled: true, Host: "127.0.0.1", Port: 0, SharedSecret: "0123456789abcdef"}
	fs := newTestFs(t)

	s, err := newSession(cfg, fs, sessionOptions{logger: zerolog.Nop()})
	require.NoError(t, err)
	s.gate.SetTimeout(20 * time.Millisecond)

	var collected entryCollector
	results, err := s.run(context.Background(), []string{`{"name":"write_file","args":{"path":"a.txt","content":"x"}}`}, collected.add)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Cancelled)
	assert.Equal(t, []toolexecutor.Phase{toolexecutor.PhaseCall, toolexecutor.PhaseCancelled}, collected.phases())
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.ConsentDecisionsTotal.WithLabelValues("cancelled", "timeout")))

	exists, err := afero.Exists(fs, "/project/a.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSession_CancelledContextCancelsPendingConsent(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Workspace.Root = "/project"
	cfg.Gateway = config.GatewayConfig{Enabled: true, Host: "127.0.0.1", Port: 0, SharedSecret: "0123456789abcdef"}

	s, err := newSession(cfg, newTestFs(t), sessionOptions{logger: zerolog.Nop()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if _, ok := s.gateway.PendingConsent(); ok {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	var collected entryCollector
	results, err := s.run(ctx, []string{`{"name":"mkdir","args":{"path":"x"}}`}, collected.add)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Cancelled)
}

func TestServeMetrics(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "toolgate_consent_pending 0\n")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveMetrics(ctx, addr, handler, zerolog.Nop()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
