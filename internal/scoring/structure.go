package scoring

import "github.com/sawpanic/stockrun/internal/domain"

// StructureScorer maps a structure snapshot to a 0-100 score: the precomputed
// squeeze sub-score (0-40), short-interest tier (0-25), float size (0-15),
// utilization (0-10), and cost to borrow (0-10).
type StructureScorer struct{}

// NewStructureScorer creates a share structure scorer.
func NewStructureScorer() *StructureScorer {
	return &StructureScorer{}
}

// Score computes the structure score, clamped to [0, 100].
func (s *StructureScorer) Score(snap *domain.StructureSnapshot) float64 {
	var score float64

	// Short squeeze potential (0-40 points), precomputed upstream on 0-100.
	score += snap.ShortSqueezeScore * 0.4

	score += s.scoreShortInterest(snap.ShortInterest)
	score += s.scoreFloat(snap.FloatShares, snap.SharesOutstanding)

	if snap.Utilization != nil {
		score += s.scoreUtilization(*snap.Utilization)
	}
	if snap.CostToBorrow != nil {
		score += s.scoreCostToBorrow(*snap.CostToBorrow)
	}

	return clampScore(score)
}

// scoreShortInterest awards 0-25 points by short-interest percent tier.
func (s *StructureScorer) scoreShortInterest(shortInterest float64) float64 {
	switch {
	case shortInterest > 30:
		return 25
	case shortInterest > 20:
		return 20
	case shortInterest > 15:
		return 15
	case shortInterest > 10:
		return 10
	case shortInterest > 5:
		return 5
	}
	return 0
}

// scoreFloat awards 0-15 points; a smaller tradable float moves harder.
func (s *StructureScorer) scoreFloat(floatShares, outstanding float64) float64 {
	if outstanding <= 0 || floatShares <= 0 {
		return 0
	}

	ratio := floatShares / outstanding
	switch {
	case ratio < 0.3:
		return 15 // very small float
	case ratio < 0.5:
		return 12
	case ratio < 0.7:
		return 8
	}
	return 5
}

// scoreUtilization awards 0-10 points by share-lending utilization percent.
func (s *StructureScorer) scoreUtilization(utilization float64) float64 {
	switch {
	case utilization > 90:
		return 10
	case utilization > 80:
		return 8
	case utilization > 70:
		return 6
	case utilization > 60:
		return 4
	}
	return 0
}

// scoreCostToBorrow awards 0-10 points by borrow-fee percent.
func (s *StructureScorer) scoreCostToBorrow(cost float64) float64 {
	switch {
	case cost > 50:
		return 10
	case cost > 25:
		return 8
	case cost > 10:
		return 6
	case cost > 5:
		return 4
	}
	return 0
}
