package providers

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/sawpanic/stockrun/internal/domain"
)

// Offline synthesizes snapshots from the symbol alone so the full pipeline
// runs without upstream credentials. The same symbol always yields the same
// values; only timestamps differ between calls.
type Offline struct{}

// NewOfflineSet returns a provider set backed entirely by Offline.
func NewOfflineSet() Set {
	off := Offline{}
	return Set{
		Social:      off,
		Technical:   off,
		Fundamental: off,
		Analyst:     off,
		Structure:   off,
	}
}

// seeded derives a reproducible source from the symbol plus a per-domain
// salt so the five domains decorrelate.
func seeded(symbol, salt string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(strings.ToUpper(symbol)))
	h.Write([]byte{'/'})
	h.Write([]byte(salt))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

var bullishWords = []string{"moon", "rocket", "diamond", "hodl", "squeeze", "buy", "calls", "yolo"}
var bearishWords = []string{"sell", "puts", "crash", "dump", "bagholder"}

var chartPatterns = []string{"cup_and_handle", "bull_flag", "ascending_triangle", "double_bottom", "head_and_shoulders"}

var sellSideFirms = []string{
	"Goldman Sachs", "Morgan Stanley", "JP Morgan", "Bank of America",
	"Citigroup", "Wedbush", "Jefferies", "Barclays",
}

func (Offline) FetchSocial(ctx context.Context, symbol string) (*domain.SocialSnapshot, error) {
	r := seeded(symbol, NameSocial)

	sentiment := round2(r.Float64()*1.4 - 0.4)
	trend := domain.TrendNeutral
	roll := r.Float64()
	switch {
	case sentiment > 0.25 && roll < 0.75:
		trend = domain.TrendBullish
	case sentiment < -0.15 && roll < 0.6:
		trend = domain.TrendBearish
	}

	return &domain.SocialSnapshot{
		Platform:           "aggregated",
		Mentions:           r.Intn(1500),
		SentimentScore:     sentiment,
		VolumeTrend:        trend,
		TopKeywords:        pickKeywords(r, sentiment),
		InfluencerMentions: r.Intn(25),
		SourceScores: map[string]float64{
			"reddit":     jitterSentiment(r, sentiment),
			"twitter":    jitterSentiment(r, sentiment),
			"stocktwits": jitterSentiment(r, sentiment),
		},
		Timestamp: time.Now().UTC(),
	}, nil
}

func (Offline) FetchTechnical(ctx context.Context, symbol string) (*domain.TechnicalSnapshot, error) {
	r := seeded(symbol, NameTechnical)

	price := round2(2 + r.Float64()*398)
	pattern := ""
	patternConfidence := 0.0
	if r.Float64() < 0.35 {
		pattern = chartPatterns[r.Intn(len(chartPatterns))]
		patternConfidence = round2(0.5 + r.Float64()*0.45)
	}

	return &domain.TechnicalSnapshot{
		Price:             price,
		Volume:            float64(1_000_000 + r.Intn(80_000_000)),
		RSI:               round1(15 + r.Float64()*75),
		MACDSignal:        pickTrend(r),
		BollingerPosition: round2(r.Float64()),
		MovingAverages: map[string]float64{
			"sma_20": round2(price * (0.88 + r.Float64()*0.24)),
			"sma_50": round2(price * (0.80 + r.Float64()*0.40)),
		},
		SupportResistance: map[string]float64{
			"support":    round2(price * (0.85 + r.Float64()*0.10)),
			"resistance": round2(price * (1.05 + r.Float64()*0.10)),
		},
		ChartPattern:      pattern,
		PatternConfidence: patternConfidence,
		TrendDirection:    pickTrend(r),
		VolumeSpike:       r.Float64() < 0.30,
		Timestamp:         time.Now().UTC(),
	}, nil
}

func (Offline) FetchFundamental(ctx context.Context, symbol string) (*domain.FundamentalSnapshot, error) {
	r := seeded(symbol, NameFundamental)

	marketCap := round2((0.15 + r.Float64()*120) * 1e9)
	snap := &domain.FundamentalSnapshot{
		MarketCap: marketCap,
		Timestamp: time.Now().UTC(),
	}

	// Unprofitable names report no P/E; other fields go missing at realistic
	// rates so the scorers' absent-field paths get exercised.
	if r.Float64() < 0.60 {
		snap.PERatio = f64(round1(4 + r.Float64()*90))
	}
	if r.Float64() < 0.85 {
		snap.PSRatio = f64(round2(0.4 + r.Float64()*18))
	}
	if r.Float64() < 0.85 {
		snap.RevenueGrowthYoY = f64(round1(-35 + r.Float64()*95))
	}
	if r.Float64() < 0.85 {
		snap.ProfitMargin = f64(round1(-25 + r.Float64()*50))
	}
	if r.Float64() < 0.90 {
		snap.DebtToEquity = f64(round2(0.05 + r.Float64()*2.8))
	}
	if r.Float64() < 0.90 {
		snap.CurrentRatio = f64(round2(0.4 + r.Float64()*2.8))
	}
	if r.Float64() < 0.80 {
		snap.ROE = f64(round1(-12 + r.Float64()*40))
	}
	if r.Float64() < 0.70 {
		snap.FreeCashFlow = f64(round2((-0.5 + r.Float64()*4) * 1e8))
	}
	snap.EnterpriseValue = f64(round2(marketCap * (0.95 + r.Float64()*0.35)))
	snap.BookValue = f64(round2(marketCap * (0.10 + r.Float64()*0.50)))

	return snap, nil
}

func (Offline) FetchAnalyst(ctx context.Context, symbol string) (*domain.AnalystSnapshot, error) {
	r := seeded(symbol, NameAnalyst)

	count := r.Intn(28)
	avg := round2(5 + r.Float64()*250)
	return &domain.AnalystSnapshot{
		ConsensusRating:   pickRating(r),
		AnalystCount:      count,
		PriceTargetAvg:    avg,
		PriceTargetHigh:   round2(avg * (1.1 + r.Float64()*0.5)),
		PriceTargetLow:    round2(avg * (0.5 + r.Float64()*0.4)),
		PriceTargetUpside: round1(-30 + r.Float64()*110),
		RecentUpgrades:    r.Intn(4),
		RecentDowngrades:  r.Intn(4),
		CoveringFirms:     pickFirms(r, count),
		Timestamp:         time.Now().UTC(),
	}, nil
}

func (Offline) FetchStructure(ctx context.Context, symbol string) (*domain.StructureSnapshot, error) {
	r := seeded(symbol, NameStructure)

	outstanding := math.Round(50+r.Float64()*950) * 1e6
	shortInterest := round1(r.Float64() * 45)
	shortRatio := round2(0.2 + r.Float64()*7.8)

	snap := &domain.StructureSnapshot{
		SharesOutstanding:      outstanding,
		FloatShares:            math.Round(outstanding * (0.45 + r.Float64()*0.50)),
		ShortInterest:          shortInterest,
		ShortRatio:             shortRatio,
		DaysToCover:            f64(shortRatio),
		InstitutionalOwnership: round1(5 + r.Float64()*75),
		InsiderOwnership:       round1(r.Float64() * 20),
		ShortSqueezeScore:      round1(math.Min(shortInterest*2+r.Float64()*15, 100)),
		Timestamp:              time.Now().UTC(),
	}

	// Borrow metrics only surface for heavily shorted names.
	if shortInterest > 15 {
		snap.Utilization = f64(round1(55 + r.Float64()*44))
	}
	if shortInterest > 20 {
		snap.CostToBorrow = f64(round1(shortInterest*0.6 + r.Float64()*20))
	}

	return snap, nil
}

func pickTrend(r *rand.Rand) domain.TrendDirection {
	switch p := r.Float64(); {
	case p < 0.40:
		return domain.TrendBullish
	case p < 0.75:
		return domain.TrendNeutral
	default:
		return domain.TrendBearish
	}
}

func pickRating(r *rand.Rand) domain.AnalystRating {
	switch p := r.Float64(); {
	case p < 0.15:
		return domain.RatingStrongBuy
	case p < 0.45:
		return domain.RatingBuy
	case p < 0.75:
		return domain.RatingHold
	case p < 0.90:
		return domain.RatingSell
	default:
		return domain.RatingStrongSell
	}
}

func pickKeywords(r *rand.Rand, sentiment float64) []string {
	pool := make([]string, 0, len(bullishWords)+len(bearishWords))
	switch {
	case sentiment > 0.15:
		pool = append(pool, bullishWords...)
	case sentiment < -0.15:
		pool = append(pool, bearishWords...)
	default:
		pool = append(pool, bullishWords...)
		pool = append(pool, bearishWords...)
	}
	r.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	n := 3 + r.Intn(3)
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n]
}

func pickFirms(r *rand.Rand, analystCount int) []string {
	n := analystCount
	if n > 6 {
		n = 6
	}
	if n > len(sellSideFirms) {
		n = len(sellSideFirms)
	}
	pool := append([]string{}, sellSideFirms...)
	r.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:n]
}

func jitterSentiment(r *rand.Rand, base float64) float64 {
	v := base + r.Float64()*0.4 - 0.2
	return round2(math.Max(-1, math.Min(v, 1)))
}

func f64(v float64) *float64 { return &v }

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
