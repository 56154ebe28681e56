package digest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/market-digest/internal/lib/apperr"
	"github.com/magabrotheeeer/market-digest/internal/models"
)

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		AsOf:           time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC),
		SentimentScore: 62,
		IndexName:      "S&P 500",
		IndexValue:     5123.4,
		ChangePercent:  0.85,
		Volatility:     14.2,
		Indicators:     []models.Indicator{{Name: "RSI", Value: 58.1, Signal: "neutral"}},
		TopMovers: []models.Mover{
			{Symbol: "NVDA", Price: 912.5, ChangePercent: 4.1},
			{Symbol: "TSLA", Price: 180, ChangePercent: -3.25},
		},
		Headlines: []models.Headline{
			{Title: "Fed holds rates", Source: "Reuters", URL: "https://example.com/fed"},
			{Title: "Chips <rally>"},
		},
	}
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer("Market Digest")
	require.NoError(t, err)
	return r
}

func TestRenderer_Digest(t *testing.T) {
	r := newTestRenderer(t)

	c, err := r.Digest(testSnapshot(), "Stocks rose.\n\nTech led the gains.")
	require.NoError(t, err)

	assert.Equal(t, "Market Digest: market digest for Mar 2, 2026", c.Subject)

	assert.Contains(t, c.Text, "Sentiment: 62/100 (greed)")
	assert.Contains(t, c.Text, "S&P 500: 5123.40 (+0.85%), volatility 14.20")
	assert.Contains(t, c.Text, "Stocks rose.")
	assert.Contains(t, c.Text, "Tech led the gains.")
	assert.Contains(t, c.Text, "- RSI: 58.10 (neutral)")
	assert.Contains(t, c.Text, "- NVDA 912.50 (+4.10%)")
	assert.Contains(t, c.Text, "- TSLA 180.00 (-3.25%)")
	assert.Contains(t, c.Text, "- Fed holds rates (Reuters)")

	assert.Contains(t, c.HTML, "<p>Stocks rose.</p>")
	assert.Contains(t, c.HTML, `<a href="https://example.com/fed">Fed holds rates</a>`)
	assert.Contains(t, c.HTML, "Chips &lt;rally&gt;")
	assert.Contains(t, c.HTML, "S&amp;P 500")
}

func TestRenderer_DigestIsDeterministic(t *testing.T) {
	r := newTestRenderer(t)

	first, err := r.Digest(testSnapshot(), "same")
	require.NoError(t, err)
	second, err := r.Digest(testSnapshot(), "same")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRenderer_DigestWithoutOptionalSections(t *testing.T) {
	r := newTestRenderer(t)
	snap := &models.Snapshot{AsOf: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), SentimentScore: 10}

	c, err := r.Digest(snap, "")
	require.NoError(t, err)

	assert.Contains(t, c.Text, "Sentiment: 10/100 (extreme fear)")
	assert.NotContains(t, c.Text, "Indicators:")
	assert.NotContains(t, c.Text, "Top movers:")
	assert.NotContains(t, c.Text, "Headlines:")
	assert.NotContains(t, c.HTML, "<ul>")
}

func TestRenderer_DigestRejectsMalformedSnapshot(t *testing.T) {
	r := newTestRenderer(t)

	tests := []struct {
		name string
		snap *models.Snapshot
	}{
		{"nil", nil},
		{"missing date", &models.Snapshot{SentimentScore: 50}},
		{"score out of range", &models.Snapshot{AsOf: time.Now(), SentimentScore: 101}},
		{"nan", &models.Snapshot{AsOf: time.Now(), IndexValue: math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Digest(tt.snap, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestRenderer_Welcome(t *testing.T) {
	r := newTestRenderer(t)

	t.Run("full data", func(t *testing.T) {
		c, err := r.Welcome(WelcomeData{
			Name:      "Alice <3",
			Topics:    []string{"crypto", "equities"},
			Sources:   []string{"reuters"},
			Frequency: models.FrequencyWeekly,
		})
		require.NoError(t, err)

		assert.Equal(t, "Welcome to Market Digest", c.Subject)
		assert.Contains(t, c.Text, "Hello, Alice <3!")
		assert.Contains(t, c.Text, "Market Digest weekly market digest")
		assert.Contains(t, c.Text, "Topics: crypto, equities")
		assert.Contains(t, c.Text, "Sources: reuters")
		assert.Contains(t, c.HTML, "Hello, Alice &lt;3!")
	})

	t.Run("minimal data", func(t *testing.T) {
		c, err := r.Welcome(WelcomeData{})
		require.NoError(t, err)

		assert.Contains(t, c.Text, "Hello!")
		assert.Contains(t, c.Text, "daily market digest")
		assert.NotContains(t, c.Text, "Topics:")
	})
}

func TestWelcomeDataFromJob(t *testing.T) {
	job := models.WelcomeJob{Email: "a@example.com", Name: "A", Topics: []string{"fx"}, Frequency: "daily"}
	data := WelcomeDataFromJob(job)
	assert.Equal(t, WelcomeData{Name: "A", Topics: []string{"fx"}, Frequency: "daily"}, data)
}

func TestSentimentLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0, "extreme fear"},
		{24.9, "extreme fear"},
		{25, "fear"},
		{50, "neutral"},
		{55, "neutral"},
		{60, "greed"},
		{76, "extreme greed"},
		{100, "extreme greed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SentimentLabel(tt.score), "score %v", tt.score)
	}
}
