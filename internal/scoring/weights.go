package scoring

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v2"
)

// weightSumTolerance bounds the allowed drift of the weight sum from 1.0.
const weightSumTolerance = 0.001

// Weights allocates the composite total across the five domain scores.
// Weights are non-negative and expected to sum to 1.0.
type Weights struct {
	Social      float64 `yaml:"social_sentiment"`      // retail chatter
	Technical   float64 `yaml:"technical_analysis"`    // price action
	Fundamental float64 `yaml:"fundamental_analysis"`  // financials
	Analyst     float64 `yaml:"analyst_coverage"`      // sell-side view
	Structure   float64 `yaml:"stock_structure"`       // float and short interest
}

// DefaultWeights returns the production weight allocation.
func DefaultWeights() Weights {
	return Weights{
		Social:      0.25,
		Technical:   0.25,
		Fundamental: 0.20,
		Analyst:     0.15,
		Structure:   0.15,
	}
}

// Validate checks that every weight is non-negative and the sum stays within
// tolerance of 1.0. The aggregator itself accepts any weights; rejecting bad
// allocations is the config layer's job, done here at load time.
func (w Weights) Validate() error {
	values := map[string]float64{
		"social_sentiment":     w.Social,
		"technical_analysis":   w.Technical,
		"fundamental_analysis": w.Fundamental,
		"analyst_coverage":     w.Analyst,
		"stock_structure":      w.Structure,
	}

	for name, value := range values {
		if value < 0 {
			return fmt.Errorf("negative weight for %s: %.3f", name, value)
		}
	}

	sum := w.Social + w.Technical + w.Fundamental + w.Analyst + w.Structure
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weights sum to %.3f, expected 1.0 ± %.3f", sum, weightSumTolerance)
	}

	return nil
}

// weightsFile is the on-disk shape of config/weights.yaml.
type weightsFile struct {
	Weights Weights `yaml:"weights"`
}

// LoadWeights reads and validates a weight allocation from a YAML file.
func LoadWeights(path string) (Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("failed to read weights file %s: %w", path, err)
	}

	var file weightsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Weights{}, fmt.Errorf("failed to parse weights file: %w", err)
	}

	if err := file.Weights.Validate(); err != nil {
		return Weights{}, fmt.Errorf("weights validation failed: %w", err)
	}

	return file.Weights, nil
}
