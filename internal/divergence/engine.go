package divergence

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/stockrun/internal/domain"
)

// Fault records a recovered detector failure. The affected detector
// contributed no signals and detection proceeded with the rest.
type Fault struct {
	Detector string `json:"detector"`
	Err      error  `json:"-"`
}

// Engine runs the five divergence detectors in a fixed order. Detectors are
// pure and stateless; the engine is safe for concurrent use.
type Engine struct {
	detectors []Detector
}

// NewEngine creates a detection engine with the standard detector set.
func NewEngine() *Engine {
	// Emission order is part of the contract: the ranker's sort is stable,
	// so equal-importance signals keep this order.
	return &Engine{
		detectors: []Detector{
			RetailVsInstitutional{},
			ShortSqueeze{},
			MomentumDivergence{},
			ValueTrap{},
			HiddenGem{},
		},
	}
}

// DetectAll runs every detector against the snapshot set, concatenates the
// signals, and stamps them with the set's symbol. A panicking detector
// contributes an empty list and is reported in the fault list; detection
// never fails outright.
func (e *Engine) DetectAll(set *domain.SnapshotSet) ([]domain.DivergenceSignal, []Fault) {
	var signals []domain.DivergenceSignal
	var faults []Fault

	symbol := ""
	if set != nil {
		symbol = set.Symbol
	}

	for _, d := range e.detectors {
		out, err := runDetector(d, set)
		if err != nil {
			log.Warn().Str("symbol", symbol).Str("detector", d.Name()).
				Err(err).Msg("detector fault, no signals emitted")
			faults = append(faults, Fault{Detector: d.Name(), Err: err})
			continue
		}
		signals = append(signals, out...)
	}

	for i := range signals {
		signals[i].Symbol = symbol
	}

	return signals, faults
}

// runDetector invokes one detector, converting a panic into an error.
func runDetector(d Detector, set *domain.SnapshotSet) (out []domain.DivergenceSignal, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()
	return d.Detect(set), nil
}
