// Package planservice compiles the application layout on demand and keeps
// the current plan and its history.
package planservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/bootplan/internal/appconfig"
	"github.com/starford/bootplan/internal/apperr"
	"github.com/starford/bootplan/internal/checksum"
	"github.com/starford/bootplan/internal/compiler"
	"github.com/starford/bootplan/internal/models"
	"github.com/starford/bootplan/internal/planstore"
)

// Event kinds delivered to a Listener.
const (
	KindCompiled = "compiled"
	KindFailed   = "failed"
)

// Event describes the outcome of one compile.
type Event struct {
	Kind    string
	Record  planstore.Record
	Changed bool
	Err     error
}

// Listener is notified after every compile.
type Listener func(Event)

// Result is a compiled plan with its history record.
type Result struct {
	Plan    *models.Plan     `json:"plan"`
	Record  planstore.Record `json:"record"`
	Changed bool             `json:"changed"`
}

// Service coordinates the compiler, configuration sources and plan history.
type Service struct {
	opts     compiler.Options
	configs  *appconfig.Loader
	store    planstore.PlanStore
	logger   *slog.Logger
	listener Listener
	now      func() time.Time

	compileMu sync.Mutex

	mu      sync.RWMutex
	current *models.Plan
	record  planstore.Record
}

// Option configures a Service.
type Option func(*Service)

// WithListener sets the compile listener.
func WithListener(l Listener) Option {
	return func(s *Service) {
		s.listener = l
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a plan service. opts is the compile template; when configs is
// non-nil, inline configuration missing from opts is loaded from the
// application root on every compile.
func New(opts compiler.Options, configs *appconfig.Loader, store planstore.PlanStore, options ...Option) *Service {
	s := &Service{
		opts:    opts,
		configs: configs,
		store:   store,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, o := range options {
		o(s)
	}
	if s.opts.Logger == nil {
		s.opts.Logger = s.logger
	}
	return s
}

// Compile compiles the layout, records the plan in the history when it
// changed and makes it the current plan. Compiles are serialized.
func (s *Service) Compile(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.compileMu.Lock()
	defer s.compileMu.Unlock()

	plan, err := s.compile()
	if err != nil {
		s.logger.Warn("planservice: compile failed",
			slog.String("code", apperr.Code(err)),
			slog.String("error", err.Error()))
		s.notify(Event{Kind: KindFailed, Err: err})
		return nil, err
	}

	body, sum, err := checksum.JSON(plan)
	if err != nil {
		return nil, err
	}
	rec, changed, err := s.store.Save(planstore.Record{
		Checksum:   sum,
		Env:        plan.Env,
		Root:       plan.Root,
		Models:     len(plan.Models),
		Mixins:     len(plan.Mixins),
		Boot:       len(plan.Files.Boot),
		CompiledAt: s.now(),
	}, body)
	if err != nil {
		return nil, fmt.Errorf("planservice: save plan: %w", err)
	}

	s.mu.Lock()
	s.current = plan
	s.record = rec
	s.mu.Unlock()

	s.logger.Info("planservice: plan compiled",
		slog.Int64("id", rec.ID),
		slog.String("checksum", rec.Checksum),
		slog.Bool("changed", changed))
	s.notify(Event{Kind: KindCompiled, Record: rec, Changed: changed})

	out, err := plan.Clone()
	if err != nil {
		return nil, err
	}
	return &Result{Plan: out, Record: rec, Changed: changed}, nil
}

func (s *Service) compile() (*models.Plan, error) {
	opts := s.opts
	if s.configs != nil {
		src, err := s.configs.Load(opts.Root, compiler.ResolveEnv(opts.Env))
		if err != nil {
			return nil, err
		}
		if opts.AppConfig == nil {
			opts.AppConfig = src.App
		}
		if opts.DataSources == nil {
			opts.DataSources = src.DataSources
		}
		if opts.ModelConfig == nil {
			opts.ModelConfig = src.ModelConfig
		}
	}
	return compiler.Compile(opts)
}

func (s *Service) notify(ev Event) {
	if s.listener != nil {
		s.listener(ev)
	}
}

// Current returns a copy of the current plan. After a restart it falls back
// to the latest plan in the history. It returns apperr.ErrNoPlan when nothing
// was ever compiled.
func (s *Service) Current(_ context.Context) (*models.Plan, planstore.Record, error) {
	s.mu.RLock()
	plan, rec := s.current, s.record
	s.mu.RUnlock()

	if plan == nil {
		latest, body, err := s.store.Latest()
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, planstore.Record{}, apperr.ErrNoPlan
		}
		if err != nil {
			return nil, planstore.Record{}, err
		}
		restored, err := decodePlan(body)
		if err != nil {
			return nil, planstore.Record{}, err
		}
		return restored, *latest, nil
	}

	out, err := plan.Clone()
	if err != nil {
		return nil, planstore.Record{}, err
	}
	return out, rec, nil
}

// History returns plan records newest first, plus the total count.
func (s *Service) History(_ context.Context, limit, offset int) ([]planstore.Record, int, error) {
	return s.store.List(limit, offset)
}

// Snapshot returns a historical plan by id.
func (s *Service) Snapshot(_ context.Context, id int64) (*models.Plan, planstore.Record, error) {
	rec, body, err := s.store.Get(id)
	if err != nil {
		return nil, planstore.Record{}, err
	}
	plan, err := decodePlan(body)
	if err != nil {
		return nil, planstore.Record{}, err
	}
	return plan, *rec, nil
}

// Root returns the application root the service compiles.
func (s *Service) Root() string { return s.opts.Root }

func decodePlan(body []byte) (*models.Plan, error) {
	var plan models.Plan
	if err := json.Unmarshal(body, &plan); err != nil {
		return nil, fmt.Errorf("planservice: decode plan: %w", err)
	}
	return &plan, nil
}
