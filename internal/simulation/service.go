// Package simulation runs complete battles from scenario references and
// produces reports.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/warsim/internal/battle"
	"github.com/cory-johannsen/warsim/internal/battlelog"
	"github.com/cory-johannsen/warsim/internal/content"
	"github.com/cory-johannsen/warsim/internal/scenario"
)

// DefaultConcurrency bounds RunBatch when no override is configured.
const DefaultConcurrency = 4

// ErrNoSource is returned by Run when the service was built without a source.
var ErrNoSource = errors.New("simulation: no scenario source")

// Report is the result of one resolved battle.
type Report struct {
	ID       uuid.UUID      `json:"id"`
	Ref      string         `json:"ref"`
	Scenario string         `json:"scenario"`
	Outcome  battle.Outcome `json:"outcome"`
	Rounds   int            `json:"rounds"`
	// Digest is the BLAKE2b-256 of Events.
	Digest    string                 `json:"digest"`
	Events    []battle.Event         `json:"events,omitempty"`
	Final     battle.Snapshot        `json:"final"`
	EffectsA  content.AppliedEffects `json:"effects_a,omitempty"`
	EffectsB  content.AppliedEffects `json:"effects_b,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// ReportStore persists reports.
type ReportStore interface {
	Save(ctx context.Context, r *Report) error
}

// Service resolves battles. It is safe for concurrent use.
type Service struct {
	cfg         battle.Config
	source      scenario.Source
	library     *content.Library
	logger      *zap.Logger
	store       ReportStore
	eventLog    *zap.Logger
	concurrency int
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithStore saves every report to store.
func WithStore(store ReportStore) Option {
	return func(s *Service) { s.store = store }
}

// WithEventLogger writes every battle event to logger through a ZapSink.
func WithEventLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.eventLog = logger }
}

// WithConcurrency bounds how many battles RunBatch resolves at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
//
// Precondition: library and logger must be non-nil; source may be nil when
// only Simulate is used.
// Postcondition: Returns a Service, or an error wrapping battle.ErrInvalidConfig.
func NewService(cfg battle.Config, source scenario.Source, library *content.Library, logger *zap.Logger, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		cfg:         cfg,
		source:      source,
		library:     library,
		logger:      logger,
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run fetches ref from the source and resolves it. observers receive every
// event as it happens.
//
// Postcondition: Returns a saved report, or the first fetch, build, battle or
// store error.
func (s *Service) Run(ctx context.Context, ref string, observers ...battle.Sink) (*Report, error) {
	if s.source == nil {
		return nil, ErrNoSource
	}
	sc, err := s.source.Fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetching scenario %q: %w", ref, err)
	}
	return s.Simulate(ctx, ref, sc, observers...)
}

// Simulate resolves an already loaded scenario. Side 0 of the scenario is
// side A.
//
// Precondition: sc must be validated.
// Postcondition: Returns a report whose Digest covers Events, or an error.
func (s *Service) Simulate(ctx context.Context, ref string, sc *scenario.Scenario, observers ...battle.Sink) (*Report, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	a, fxA, err := s.library.BuildForce(sc.Sides[0])
	if err != nil {
		return nil, fmt.Errorf("building side A of %q: %w", sc.Name, err)
	}
	b, fxB, err := s.library.BuildForce(sc.Sides[1])
	if err != nil {
		return nil, fmt.Errorf("building side B of %q: %w", sc.Name, err)
	}

	rec := &battlelog.Recorder{}
	sinks := []battle.Sink{rec}
	if s.eventLog != nil {
		sinks = append(sinks, battlelog.NewZapSink(s.eventLog.With(zap.String("scenario", sc.Name))))
	}
	sinks = append(sinks, observers...)

	session, err := battle.NewSession(s.cfg, a, b, battlelog.Multi(sinks...))
	if err != nil {
		return nil, err
	}
	out, err := session.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", sc.Name, err)
	}

	events := rec.Events()
	digest, err := battlelog.Digest(events)
	if err != nil {
		return nil, err
	}
	report := &Report{
		ID:        uuid.New(),
		Ref:       ref,
		Scenario:  sc.Name,
		Outcome:   out,
		Rounds:    out.Round,
		Digest:    digest,
		Events:    events,
		Final:     session.Snapshot(),
		EffectsA:  fxA,
		EffectsB:  fxB,
		CreatedAt: s.now().UTC(),
	}

	s.logger.Info("battle resolved",
		zap.String("id", report.ID.String()),
		zap.String("scenario", sc.Name),
		zap.Stringer("winner", out.Winner),
		zap.String("reason", string(out.Reason)),
		zap.Int("rounds", out.Round),
		zap.String("digest", digest),
		zap.Duration("elapsed", time.Since(start)),
	)

	if s.store != nil {
		if err := s.store.Save(ctx, report); err != nil {
			return nil, fmt.Errorf("saving report %s: %w", report.ID, err)
		}
	}
	return report, nil
}

// RunBatch resolves refs concurrently, at most the configured concurrency at
// a time. Results keep the order of refs.
//
// Postcondition: Returns one report per ref, or the first error; remaining
// battles are cancelled between rounds once an error occurs.
func (s *Service) RunBatch(ctx context.Context, refs []string) ([]*Report, error) {
	reports := make([]*Report, len(refs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			r, err := s.Run(ctx, ref)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
