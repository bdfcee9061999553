package ml

import (
	"context"
	"math/rand"
	"time"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/domain"
)

const (
	BootstrapSeed    = 42
	BootstrapSamples = 1000
	BootstrapSuffix  = "-bootstrap"
)

// bootstrapCutoffs are the standardized per-channel cutoffs of the
// synthetic label rule. Operating hours never drive the label.
var bootstrapCutoffs = map[int]float64{
	domain.IdxTemperature:      1.5,
	domain.IdxVibration:        1.2,
	domain.IdxPressure:         1.0,
	domain.IdxPowerConsumption: 1.3,
}

// BootstrapOptions controls the synthetic fallback trainer.
type BootstrapOptions struct {
	Samples int
	Forest  ForestOptions
}

func DefaultBootstrapOptions() BootstrapOptions {
	return BootstrapOptions{
		Samples: BootstrapSamples,
		Forest: ForestOptions{
			Trees:           100,
			MaxDepth:        12,
			MinSamplesSplit: 2,
			Seed:            BootstrapSeed,
		},
	}
}

// SyntheticDataset draws n standard-normal rows with a fixed seed and labels
// a row positive when any cutoff channel exceeds its cutoff.
func SyntheticDataset(n int) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(BootstrapSeed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		row := make([]float64, domain.FeatureCount)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		X[i] = row
		for idx, cut := range bootstrapCutoffs {
			if row[idx] > cut {
				y[i] = 1
				break
			}
		}
	}
	return X, y
}

// Bootstrap fits a fallback artifact on synthetic data. The artifact's
// version carries BootstrapSuffix so it cannot be mistaken for a
// production-trained one.
func Bootstrap(ctx context.Context, version string, opts BootstrapOptions) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Samples <= 0 {
		opts.Samples = BootstrapSamples
	}

	X, y := SyntheticDataset(opts.Samples)
	forest, err := FitForest(X, y, opts.Forest)
	if err != nil {
		return nil, err
	}

	channels := make([]string, domain.FeatureCount)
	copy(channels, domain.Channels[:])

	return &Artifact{
		Version:      version + BootstrapSuffix,
		Bootstrapped: true,
		TrainedAt:    time.Now().UTC(),
		Channels:     channels,
		Scaler:       ReferenceScaler,
		Forest:       forest,
	}, nil
}
