package ml

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
)

var (
	// ErrArtifactNotFound is returned by an ArtifactStore when no artifact
	// exists for the requested version.
	ErrArtifactNotFound = errors.New("classifier artifact not found")
	ErrInvalidFeatures  = errors.New("invalid feature vector")
	ErrNotReady         = errors.New("classifier not initialised")
)

// ArtifactStore loads and persists classifier artifacts keyed by version.
type ArtifactStore interface {
	Load(ctx context.Context, version string) (*Artifact, error)
	Save(ctx context.Context, version string, a *Artifact) error
}

// Scaler standardises raw channel values: z = (x - mean) / std.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// ReferenceScaler is the nominal operating profile of the fleet, in channel
// order.
var ReferenceScaler = Scaler{
	Mean: []float64{55, 2.5, 8, 30, 5000},
	Std:  []float64{15, 1.5, 4, 15, 3000},
}

func (s Scaler) Transform(x []float64) ([]float64, error) {
	if len(s.Mean) != len(x) || len(s.Std) != len(x) {
		return nil, fmt.Errorf("scaler expects %d features, got %d", len(s.Mean), len(x))
	}
	z := make([]float64, len(x))
	for i := range x {
		std := s.Std[i]
		if std == 0 {
			std = 1
		}
		z[i] = (x[i] - s.Mean[i]) / std
	}
	return z, nil
}

// Artifact is a trained classifier bound to one model version.
type Artifact struct {
	Version      string    `json:"model_version"`
	Bootstrapped bool      `json:"bootstrapped"`
	TrainedAt    time.Time `json:"trained_at"`
	Channels     []string  `json:"channels"`
	Scaler       Scaler    `json:"scaler"`
	Forest       Forest    `json:"forest"`
}

// Validate checks the artifact against the pipeline's channel layout.
func (a *Artifact) Validate() error {
	if len(a.Channels) != domain.FeatureCount {
		return fmt.Errorf("artifact %s: expected %d channels, got %d", a.Version, domain.FeatureCount, len(a.Channels))
	}
	for i, c := range a.Channels {
		if c != domain.Channels[i] {
			return fmt.Errorf("artifact %s: channel %d is %q, want %q", a.Version, i, c, domain.Channels[i])
		}
	}
	if len(a.Forest.Trees) == 0 {
		return fmt.Errorf("artifact %s: no trees", a.Version)
	}
	if len(a.Forest.Importances) != domain.FeatureCount {
		return fmt.Errorf("artifact %s: importance vector has %d entries", a.Version, len(a.Forest.Importances))
	}
	return nil
}

// Probabilities returns the class probabilities [negative, positive] for a
// raw feature vector.
func (a *Artifact) Probabilities(fv domain.FeatureVector) ([2]float64, error) {
	if !fv.Valid() {
		return [2]float64{}, ErrInvalidFeatures
	}
	z, err := a.Scaler.Transform(fv)
	if err != nil {
		return [2]float64{}, err
	}
	p, err := a.Forest.PositiveProbability(z)
	if err != nil {
		return [2]float64{}, err
	}
	return [2]float64{1 - p, p}, nil
}

// Importances returns the global per-channel importance in channel order.
func (a *Artifact) Importances() []float64 {
	out := make([]float64, len(a.Forest.Importances))
	copy(out, a.Forest.Importances)
	return out
}
