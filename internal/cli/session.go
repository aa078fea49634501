package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harun/toolgate/internal/config"
	"github.com/harun/toolgate/internal/metrics"
	"github.com/harun/toolgate/pkg/coretools"
	"github.com/harun/toolgate/pkg/gateway"
	"github.com/harun/toolgate/pkg/toolexecutor"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

var errNoConsentSurface = errors.New("no way to ask for consent: pass calls as arguments or --file so the terminal can prompt, enable the gateway, or use --yes")

// sessionOptions selects how consent is collected
type sessionOptions struct {
	// consentIn and consentOut drive the terminal prompt. A nil consentIn disables it.
	consentIn  io.Reader
	consentOut io.Writer
	// autoApprove approves every call that needs consent
	autoApprove bool
	logger      zerolog.Logger
}

// session wires one tool-calling session: registry, gate, runtime and the
// optional gateway and metrics endpoint.
type session struct {
	cfg        *config.Config
	registry   *toolexecutor.Registry
	policy     *toolexecutor.RulePolicy
	transcript *toolexecutor.Transcript
	gate       *toolexecutor.ConsentGate
	runtime    *toolexecutor.Runtime
	metrics    *metrics.Metrics
	gateway    *gateway.Server
	logger     zerolog.Logger
}

// newToolRegistry registers the core tools over fs, confined to the workspace root
func newToolRegistry(cfg *config.Config, fs afero.Fs) (*toolexecutor.Registry, *toolexecutor.RulePolicy, error) {
	registry := toolexecutor.NewRegistry()
	if err := coretools.RegisterCoreTools(registry, coretools.NewFSAccess(fs, cfg.Workspace.Root)); err != nil {
		return nil, nil, fmt.Errorf("failed to register tools: %w", err)
	}

	categories, err := toolexecutor.ParseCategories(cfg.Consent.AutoApproveCategories)
	if err != nil {
		return nil, nil, err
	}
	policy := toolexecutor.NewRulePolicy(registry, cfg.Consent.AutoApprove, categories, cfg.Consent.AlwaysRequire)

	return registry, policy, nil
}

func newSession(cfg *config.Config, fs afero.Fs, opts sessionOptions) (*session, error) {
	registry, policy, err := newToolRegistry(cfg, fs)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:        cfg,
		registry:   registry,
		policy:     policy,
		transcript: toolexecutor.NewTranscript(),
		metrics:    metrics.NewMetrics(),
		logger:     opts.logger,
	}

	var presenters toolexecutor.MultiPresenter
	switch {
	case opts.autoApprove:
		presenters = append(presenters, toolexecutor.AutoApprovePresenter{})
	default:
		if opts.consentIn != nil {
			presenters = append(presenters, toolexecutor.NewCLIConsentPresenter(opts.consentIn, opts.consentOut))
		}
		if cfg.Gateway.Enabled {
			server, err := gateway.NewServer(gateway.Config{
				Host:         cfg.Gateway.Host,
				Port:         cfg.Gateway.Port,
				SharedSecret: cfg.Gateway.SharedSecret,
				Tools:        registry,
				Transcript:   s.transcript,
				Logger:       opts.logger.With().Str("component", "gateway").Logger(),
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create gateway: %w", err)
			}
			if err := s.metrics.TrackGatewayClients(server.ClientCount); err != nil {
				return nil, err
			}
			s.gateway = server
			presenters = append(presenters, server)
		}
	}
	if len(presenters) == 0 {
		return nil, errNoConsentSurface
	}

	s.gate = toolexecutor.NewConsentGate(toolexecutor.ConsentPresenterFunc(
		func(ctx context.Context, req toolexecutor.ConsentRequest, resolver toolexecutor.ConsentResolver) {
			s.metrics.RecordConsentPresented()
			presenters.PresentConsent(ctx, req, resolver)
		},
	))
	s.gate.SetTimeout(cfg.Consent.Timeout())
	s.gate.SetRecorder(s.metrics)

	s.runtime = toolexecutor.NewRuntime(registry, s.gate, s.transcript)
	s.runtime.SetConsentPolicy(policy)
	s.runtime.SetRecorder(s.metrics)

	return s, nil
}

// run executes proposals in order while the transcript renderer, gateway and
// metrics endpoint run alongside. It returns once every proposal has settled
// and every transcript consumer has drained.
func (s *session) run(ctx context.Context, proposals []string, render func(toolexecutor.TranscriptEntry)) ([]toolexecutor.ToolResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	var consumers []<-chan struct{}
	follow := func(consume func(context.Context) error) {
		done := make(chan struct{})
		consumers = append(consumers, done)
		g.Go(func() error {
			defer close(done)
			return ignoreCanceled(consume(gctx))
		})
	}

	follow(func(ctx context.Context) error { return s.transcript.Consume(ctx, render) })

	if s.gateway != nil {
		g.Go(func() error { return s.gateway.Run(gctx) })
		follow(func(ctx context.Context) error { return s.gateway.FollowTranscript(ctx, s.transcript) })
	}

	if addr := s.cfg.Metrics.Addr; addr != "" {
		g.Go(func() error { return serveMetrics(gctx, addr, s.metrics.Handler(), s.logger) })
	}

	var results []toolexecutor.ToolResult
	g.Go(func() error {
		raws := make([]any, len(proposals))
		for i, proposal := range proposals {
			raws[i] = proposal
		}
		results = s.runtime.RunAll(gctx, raws)
		s.transcript.Close()

		for _, done := range consumers {
			select {
			case <-done:
			case <-gctx.Done():
			}
		}
		cancel()
		return nil
	})

	err := g.Wait()
	return results, err
}

// serveMetrics serves /metrics on addr until ctx is done
func serveMetrics(ctx context.Context, addr string, handler http.Handler, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
