package scoring

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/stockrun/internal/domain"
)

// Fault records a recovered scorer failure. The affected component
// contributed 0 and aggregation proceeded with the rest.
type Fault struct {
	Component string `json:"component"`
	Err       error  `json:"-"`
}

// Engine runs the five domain scorers and the aggregator for one snapshot
// set. Scorers are pure and stateless; the engine is safe for concurrent use.
type Engine struct {
	social      *SocialScorer
	technical   *TechnicalScorer
	fundamental *FundamentalScorer
	analyst     *AnalystScorer
	structure   *StructureScorer
	aggregator  *Aggregator
}

// NewEngine creates a scoring engine with the given weight allocation.
func NewEngine(weights Weights) *Engine {
	return &Engine{
		social:      NewSocialScorer(),
		technical:   NewTechnicalScorer(),
		fundamental: NewFundamentalScorer(),
		analyst:     NewAnalystScorer(),
		structure:   NewStructureScorer(),
		aggregator:  NewAggregator(weights),
	}
}

// Score computes the composite score for one snapshot set. A panicking
// scorer contributes 0 for its component and is reported in the fault list;
// scoring never fails outright.
func (e *Engine) Score(set *domain.SnapshotSet) (*domain.CompositeScore, []Fault) {
	comps, faults := e.ComponentScores(set)
	return e.aggregator.Aggregate(set, comps), faults
}

// ComponentScores runs the five scorers with per-scorer fault recovery.
func (e *Engine) ComponentScores(set *domain.SnapshotSet) (Components, []Fault) {
	var comps Components
	var faults []Fault

	symbol := ""
	if set != nil {
		symbol = set.Symbol
	}

	run := func(component string, dst *float64, fn func() float64) {
		score, err := scoreComponent(fn)
		if err != nil {
			log.Warn().Str("symbol", symbol).Str("component", component).
				Err(err).Msg("scorer fault, component scored 0")
			faults = append(faults, Fault{Component: component, Err: err})
			return
		}
		*dst = score
	}

	run("social", &comps.Social, func() float64 { return e.social.Score(set.Social) })
	run("technical", &comps.Technical, func() float64 { return e.technical.Score(set.Technical) })
	run("fundamental", &comps.Fundamental, func() float64 { return e.fundamental.Score(set.Fundamental) })
	run("analyst", &comps.Analyst, func() float64 { return e.analyst.Score(set.Analyst) })
	run("structure", &comps.Structure, func() float64 { return e.structure.Score(set.Structure) })

	return comps, faults
}

// scoreComponent invokes one scorer, converting a panic into an error.
func scoreComponent(fn func() float64) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			score = 0
			err = fmt.Errorf("scorer panic: %v", r)
		}
	}()
	return fn(), nil
}
