package scoring

import (
	"math"
	"strings"

	"github.com/sawpanic/stockrun/internal/domain"
)

// Keyword lists applied to the snapshot's top keywords. Matching is
// case-insensitive and exact per keyword.
var (
	bullishKeywords = []string{"moon", "rocket", "diamond", "hodl", "squeeze", "buy", "calls"}
	bearishKeywords = []string{"sell", "puts", "crash", "dump"}
)

// SocialScorer maps a social snapshot to a 0-100 score: sentiment level
// (0-40), mention volume (0-30), volume trend (0-15), influencer activity
// (0-15), and a keyword quality adjustment clamped to ±10.
type SocialScorer struct{}

// NewSocialScorer creates a social sentiment scorer.
func NewSocialScorer() *SocialScorer {
	return &SocialScorer{}
}

// Score computes the social sentiment score, clamped to [0, 100].
func (s *SocialScorer) Score(snap *domain.SocialSnapshot) float64 {
	var score float64

	score += s.scoreSentiment(snap.SentimentScore)
	score += s.scoreMentions(snap.Mentions)
	score += s.scoreTrend(snap.VolumeTrend)
	score += s.scoreInfluencers(snap.InfluencerMentions)
	score += s.scoreKeywords(snap.TopKeywords)

	return clampScore(score)
}

// scoreSentiment converts [-1, 1] sentiment to 0-40 points.
func (s *SocialScorer) scoreSentiment(sentiment float64) float64 {
	return math.Min((sentiment+1)*20, 40)
}

// scoreMentions awards 0-30 points by mention-volume tier.
func (s *SocialScorer) scoreMentions(mentions int) float64 {
	switch {
	case mentions > 1000:
		return 30
	case mentions > 500:
		return 25
	case mentions > 200:
		return 20
	case mentions > 100:
		return 15
	case mentions > 50:
		return 10
	case mentions > 10:
		return 5
	}
	return 0
}

// scoreTrend awards 0-15 points for the volume trend direction.
func (s *SocialScorer) scoreTrend(trend domain.TrendDirection) float64 {
	switch trend {
	case domain.TrendBullish:
		return 15
	case domain.TrendNeutral:
		return 7
	}
	return 0
}

// scoreInfluencers awards 0-15 points by influencer-mention tier.
func (s *SocialScorer) scoreInfluencers(mentions int) float64 {
	switch {
	case mentions > 20:
		return 15
	case mentions > 10:
		return 10
	case mentions > 5:
		return 5
	}
	return 0
}

// scoreKeywords awards ±2 per bullish/bearish keyword, clamped to [-10, 10].
func (s *SocialScorer) scoreKeywords(keywords []string) float64 {
	var bonus float64
	for _, kw := range keywords {
		lower := strings.ToLower(kw)
		if containsWord(bullishKeywords, lower) {
			bonus += 2
		} else if containsWord(bearishKeywords, lower) {
			bonus -= 2
		}
	}
	return math.Max(-10, math.Min(bonus, 10))
}

func containsWord(list []string, word string) bool {
	for _, w := range list {
		if w == word {
			return true
		}
	}
	return false
}

// clampScore bounds a component score to [0, 100].
func clampScore(score float64) float64 {
	return math.Max(0, math.Min(score, 100))
}
