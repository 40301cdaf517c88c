package scoring

import "github.com/sawpanic/stockrun/internal/domain"

// AnalystScorer maps an analyst snapshot to a 0-100 score: consensus rating
// (0-40), price-target upside (0-30), coverage breadth (0-15), and recent
// rating revisions (-5 to 15).
type AnalystScorer struct{}

// NewAnalystScorer creates an analyst coverage scorer.
func NewAnalystScorer() *AnalystScorer {
	return &AnalystScorer{}
}

// Score computes the analyst coverage score, clamped to [0, 100].
func (a *AnalystScorer) Score(snap *domain.AnalystSnapshot) float64 {
	var score float64

	score += a.scoreRating(snap.ConsensusRating)
	score += a.scoreUpside(snap.PriceTargetUpside)
	score += a.scoreBreadth(snap.AnalystCount)
	score += a.scoreRevisions(snap.RecentUpgrades, snap.RecentDowngrades)

	return clampScore(score)
}

// scoreRating awards 0-40 points for the consensus rating. An unrecognized
// rating scores like a hold.
func (a *AnalystScorer) scoreRating(rating domain.AnalystRating) float64 {
	switch rating {
	case domain.RatingStrongBuy:
		return 40
	case domain.RatingBuy:
		return 30
	case domain.RatingHold:
		return 15
	case domain.RatingSell:
		return 5
	case domain.RatingStrongSell:
		return 0
	}
	return 15
}

// scoreUpside awards 0-30 points by signed price-target upside percent.
func (a *AnalystScorer) scoreUpside(upside float64) float64 {
	switch {
	case upside > 50:
		return 30
	case upside > 25:
		return 25
	case upside > 15:
		return 20
	case upside > 5:
		return 15
	case upside > 0:
		return 10
	case upside > -10:
		return 5
	}
	return 0
}

// scoreBreadth awards 0-15 points by number of covering analysts.
func (a *AnalystScorer) scoreBreadth(count int) float64 {
	switch {
	case count > 20:
		return 15
	case count > 15:
		return 12
	case count > 10:
		return 10
	case count > 5:
		return 7
	case count > 2:
		return 5
	}
	return 0
}

// scoreRevisions awards -5 to 15 points by net recent upgrades minus
// downgrades.
func (a *AnalystScorer) scoreRevisions(upgrades, downgrades int) float64 {
	net := upgrades - downgrades
	switch {
	case net > 3:
		return 15
	case net > 1:
		return 10
	case net == 1:
		return 5
	case net == 0:
		return 3
	case net < -1:
		return -5
	}
	return 0
}
