package scoring

import (
	"runtime"

	"github.com/go-playground/validator/v10"
)

// Config holds the isolation forest hyperparameters.
type Config struct {
	NumTrees      int     `json:"num_trees" validate:"min=1,max=1000"`
	MaxSamples    int     `json:"max_samples" validate:"min=2"`
	Contamination float64 `json:"contamination" validate:"gt=0,lte=0.5"`
	Seed          uint64  `json:"seed"`
	// Workers bounds parallel tree construction; 0 means GOMAXPROCS.
	Workers int `json:"workers" validate:"min=0"`
}

// DefaultConfig returns a small ensemble tuned for fast retraining.
func DefaultConfig() Config {
	return Config{
		NumTrees:      50,
		MaxSamples:    1000,
		Contamination: 0.03,
		Seed:          42,
	}
}

// Validate checks the hyperparameter bounds.
func (c Config) Validate() error {
	return validator.New().Struct(c)
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
