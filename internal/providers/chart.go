package providers

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/sawpanic/stockrun/internal/domain"
)

const chartBaseURL = "https://chart-img.com/chart"

// chartSpec picks the indicator overlay and timeframe for one signal kind.
type chartSpec struct {
	indicators []string
	timeframe  string
}

var alertChartSpecs = map[domain.DivergenceType]chartSpec{
	domain.DivergenceShortSqueezeSetup:        {[]string{"volume", "short_interest", "bollinger_bands", "rsi"}, "daily"},
	domain.DivergenceMomentum:                 {[]string{"sma20", "sma50", "volume", "rsi", "macd"}, "daily"},
	domain.DivergenceValueTrap:                {[]string{"price", "volume", "sma200"}, "weekly"},
	domain.DivergenceHiddenGem:                {[]string{"price", "volume", "sma200"}, "weekly"},
	domain.DivergenceRetailBullishInstBearish: {[]string{"rsi", "macd", "volume", "price"}, "daily"},
	domain.DivergenceRetailBearishInstBullish: {[]string{"rsi", "macd", "volume", "price"}, "daily"},
}

var defaultChartSpec = chartSpec{[]string{"sma20", "sma50", "volume", "rsi"}, "daily"}

// ChartImages builds chart-img.com URLs with per-signal-kind indicator
// overlays. Construction is local and never fails; the error return
// satisfies the alert synthesizer's chart source contract.
type ChartImages struct {
	baseURL string
	apiKey  string
	width   int
	height  int
}

// NewChartImages creates the chart URL builder. The API key is optional and
// appended as a query parameter when present.
func NewChartImages(apiKey string) *ChartImages {
	return &ChartImages{
		baseURL: chartBaseURL,
		apiKey:  apiKey,
		width:   1000,
		height:  600,
	}
}

// NewChartImagesAt is NewChartImages against a different base URL, for
// deployments fronting the chart service with a proxy.
func NewChartImagesAt(baseURL, apiKey string) *ChartImages {
	c := NewChartImages(apiKey)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// AlertChart returns the chart URL for one symbol and signal kind.
func (c *ChartImages) AlertChart(symbol string, kind domain.DivergenceType) (string, error) {
	spec, ok := alertChartSpecs[kind]
	if !ok {
		spec = defaultChartSpec
	}
	return c.build(symbol, spec), nil
}

// TechnicalChart returns a general-purpose chart with the standard overlay.
func (c *ChartImages) TechnicalChart(symbol string) string {
	return c.build(symbol, defaultChartSpec)
}

func (c *ChartImages) build(symbol string, spec chartSpec) string {
	upper := strings.ToUpper(symbol)
	params := url.Values{}
	params.Set("symbol", upper)
	params.Set("timeframe", spec.timeframe)
	params.Set("width", strconv.Itoa(c.width))
	params.Set("height", strconv.Itoa(c.height))
	params.Set("indicators", strings.Join(spec.indicators, ","))
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	return c.baseURL + "/" + upper + "?" + params.Encode()
}
