// Package ml wraps the failure classifier: artifact loading, the synthetic
// bootstrap fallback, and the probability to RUL mapping.
package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
)

// RULHorizonDays is the remaining useful life reported at zero failure risk.
const RULHorizonDays = 30

// State is the lifecycle of a Model.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateBootstrapping
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateBootstrapping:
		return "bootstrapping"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Classifier is the read-only view of a trained artifact.
type Classifier interface {
	Probabilities(fv domain.FeatureVector) ([2]float64, error)
	Importances() []float64
}

type trainFunc func(ctx context.Context, version string, opts BootstrapOptions) (*Artifact, error)

type Options struct {
	Version   string
	Store     ArtifactStore
	Bootstrap BootstrapOptions
	Logger    zerolog.Logger
}

// Model owns the active classifier. It is safe for concurrent use; the
// classifier is never mutated after activation.
type Model struct {
	version   string
	store     ArtifactStore
	bootstrap BootstrapOptions
	train     trainFunc
	log       zerolog.Logger

	state     atomic.Int32
	active    atomic.Pointer[activeClassifier]
	group     singleflight.Group
	trainings atomic.Int32
}

type activeClassifier struct {
	c       Classifier
	version string
}

func New(opts Options) *Model {
	if opts.Bootstrap.Samples == 0 && opts.Bootstrap.Forest.Trees == 0 {
		opts.Bootstrap = DefaultBootstrapOptions()
	}
	return &Model{
		version:   opts.Version,
		store:     opts.Store,
		bootstrap: opts.Bootstrap,
		train:     Bootstrap,
		log:       opts.Logger.With().Str("component", "failure_model").Str("model_version", opts.Version).Logger(),
	}
}

// NewStatic returns a Ready model around an already built classifier.
func NewStatic(version string, c Classifier, logger zerolog.Logger) *Model {
	m := New(Options{Version: version, Logger: logger})
	m.activate(c, version)
	return m
}

// Init loads the artifact for the model version, or bootstraps one when the
// store has none. Concurrent callers share a single load/train and all
// return once it completes.
func (m *Model) Init(ctx context.Context) error {
	if m.active.Load() != nil {
		return nil
	}
	_, err, _ := m.group.Do(m.version, func() (any, error) {
		if m.active.Load() != nil {
			return nil, nil
		}
		return nil, m.initialise(ctx)
	})
	return err
}

func (m *Model) initialise(ctx context.Context) error {
	m.state.Store(int32(StateLoading))

	if m.store != nil {
		a, err := m.store.Load(ctx, m.version)
		switch {
		case err == nil:
			m.activate(a, a.Version)
			m.log.Info().Bool("bootstrapped", a.Bootstrapped).Msg("loaded classifier artifact")
			return nil
		case errors.Is(err, ErrArtifactNotFound):
			m.log.Info().Msg("no classifier artifact stored; bootstrapping")
		default:
			m.log.Warn().Err(err).Msg("artifact load failed; treating as not found")
		}
	}

	m.state.Store(int32(StateBootstrapping))
	m.trainings.Add(1)
	a, err := m.train(ctx, m.version, m.bootstrap)
	if err != nil {
		m.state.Store(int32(StateFailed))
		m.log.Error().Err(err).Msg("bootstrap training failed; predictions will degrade")
		return fmt.Errorf("bootstrap classifier %s: %w", m.version, err)
	}

	if m.store != nil {
		if err := m.store.Save(ctx, m.version, a); err != nil {
			m.log.Warn().Err(err).Msg("failed to persist bootstrapped artifact; using in-memory copy")
		}
	}

	m.activate(a, a.Version)
	m.log.Info().Str("artifact_version", a.Version).Int("trees", len(a.Forest.Trees)).Msg("bootstrapped classifier")
	return nil
}

func (m *Model) activate(c Classifier, version string) {
	m.active.Store(&activeClassifier{c: c, version: version})
	m.state.Store(int32(StateReady))
}

func (m *Model) State() State { return State(m.state.Load()) }

// Version is the version of the active artifact, which differs from the
// requested version for a bootstrapped artifact.
func (m *Model) Version() string {
	if a := m.active.Load(); a != nil {
		return a.version
	}
	return m.version
}

// Predict never fails: any fault yields the neutral outcome and an error log.
func (m *Model) Predict(fv domain.FeatureVector) (out domain.PredictionOutcome) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("prediction panicked; returning neutral outcome")
			out = Neutral()
		}
	}()

	active := m.active.Load()
	if active == nil {
		m.log.Error().Err(ErrNotReady).Str("state", m.State().String()).Msg("prediction error")
		return Neutral()
	}

	probs, err := active.c.Probabilities(fv)
	if err != nil {
		m.log.Error().Err(err).Int("features", len(fv)).Msg("prediction error")
		return Neutral()
	}

	p := clamp01(probs[1])
	return domain.PredictionOutcome{
		FailureProbability: p,
		RULDays:            RULDays(p),
		Confidence:         clamp01(math.Max(probs[0], probs[1])),
		FeatureImportance:  domain.RankImportance(active.c.Importances()),
	}
}

// BatchPredict applies Predict to each vector independently, in order.
func (m *Model) BatchPredict(fvs []domain.FeatureVector) []domain.PredictionOutcome {
	out := make([]domain.PredictionOutcome, len(fvs))
	for i, fv := range fvs {
		out[i] = m.Predict(fv)
	}
	return out
}

// Neutral is the outcome reported when no classifier result is available.
func Neutral() domain.PredictionOutcome {
	return domain.PredictionOutcome{
		FailureProbability: 0,
		RULDays:            RULHorizonDays,
		Confidence:         0,
		FeatureImportance:  domain.FeatureImportance{},
		Fallback:           true,
	}
}

// RULDays maps failure probability linearly onto the RUL horizon:
// max(1, floor(30 * (1 - p))).
func RULDays(p float64) int {
	p = clamp01(p)
	return max(1, int(math.Floor(RULHorizonDays*(1-p))))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
