package models

import (
	"fmt"
	"math"
	"time"

	"github.com/magabrotheeeer/market-digest/internal/lib/apperr"
)

// Snapshot — рыночный снимок, из которого рендерится дайджест.
// Формируется внешним источником рыночных данных.
type Snapshot struct {
	AsOf           time.Time   `json:"as_of"`
	SentimentScore float64     `json:"sentiment_score"` // 0..100
	IndexName      string      `json:"index_name"`
	IndexValue     float64     `json:"index_value"`
	ChangePercent  float64     `json:"change_percent"`
	Volatility     float64     `json:"volatility"`
	Indicators     []Indicator `json:"indicators"`
	TopMovers      []Mover     `json:"top_movers"`
	Headlines      []Headline  `json:"headlines"`
}

// Indicator — сводка по техническому индикатору (RSI, MACD и т.п.).
type Indicator struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Signal string  `json:"signal"`
}

// Mover — бумага с наибольшим изменением цены.
type Mover struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
}

// Headline — заголовок новости.
type Headline struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	URL    string `json:"url"`
}

// Validate отклоняет некорректный снимок до рендеринга.
func (s *Snapshot) Validate() error {
	const op = "models.Snapshot.Validate"
	if s == nil {
		return fmt.Errorf("%s: %w: snapshot is nil", op, apperr.ErrValidation)
	}
	if s.AsOf.IsZero() {
		return fmt.Errorf("%s: %w: as_of is required", op, apperr.ErrValidation)
	}
	numbers := map[string]float64{
		"sentiment_score": s.SentimentScore,
		"index_value":     s.IndexValue,
		"change_percent":  s.ChangePercent,
		"volatility":      s.Volatility,
	}
	for name, v := range numbers {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s: %w: %s is not a finite number", op, apperr.ErrValidation, name)
		}
	}
	if s.SentimentScore < 0 || s.SentimentScore > 100 {
		return fmt.Errorf("%s: %w: sentiment_score must be within 0..100", op, apperr.ErrValidation)
	}
	if s.Volatility < 0 {
		return fmt.Errorf("%s: %w: volatility must not be negative", op, apperr.ErrValidation)
	}
	for i, m := range s.TopMovers {
		if m.Symbol == "" {
			return fmt.Errorf("%s: %w: top_movers[%d].symbol is required", op, apperr.ErrValidation, i)
		}
		if math.IsNaN(m.ChangePercent) || math.IsInf(m.ChangePercent, 0) {
			return fmt.Errorf("%s: %w: top_movers[%d].change_percent is not a finite number", op, apperr.ErrValidation, i)
		}
	}
	for i, h := range s.Headlines {
		if h.Title == "" {
			return fmt.Errorf("%s: %w: headlines[%d].title is required", op, apperr.ErrValidation, i)
		}
	}
	return nil
}
