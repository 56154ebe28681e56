// Package digest рендерит письма рассылки: приветственное и дайджест по
// рыночному снимку. Шаблоны Liquid разбираются один раз при создании
// Renderer, рендеринг не зависит от времени и окружения.
package digest

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/osteele/liquid"

	"github.com/magabrotheeeer/market-digest/internal/models"
)

//go:embed templates/*.liquid
var templatesFS embed.FS

const (
	welcomeSubject = "Welcome to {{ brand }}"
	digestSubject  = "{{ brand }}: market digest for {{ date }}"
)

// Narrator превращает снимок в связный текст (внешняя языковая модель).
type Narrator interface {
	Narrate(ctx context.Context, snap *models.Snapshot) (string, error)
}

// SnapshotSource возвращает актуальный рыночный снимок.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
}

// WelcomeData — данные для приветственного письма.
type WelcomeData struct {
	Name      string
	Topics    []string
	Sources   []string
	Frequency string
}

// WelcomeDataFromJob собирает WelcomeData из задания очереди.
func WelcomeDataFromJob(job models.WelcomeJob) WelcomeData {
	return WelcomeData{
		Name:      job.Name,
		Topics:    job.Topics,
		Sources:   job.Sources,
		Frequency: job.Frequency,
	}
}

type template struct {
	subject, text, html *liquid.Template
}

// Renderer рендерит письма из встроенных шаблонов.
type Renderer struct {
	brand   string
	welcome template
	digest  template
}

// NewRenderer разбирает шаблоны. brand подставляется в тему и текст писем.
func NewRenderer(brand string) (*Renderer, error) {
	const op = "digest.NewRenderer"
	engine := newEngine()

	welcome, err := parseTemplate(engine, welcomeSubject, "welcome")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	dg, err := parseTemplate(engine, digestSubject, "digest")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Renderer{brand: brand, welcome: welcome, digest: dg}, nil
}

func parseTemplate(engine *liquid.Engine, subject, name string) (template, error) {
	var t template
	var err error
	if t.subject, err = engine.ParseString(subject); err != nil {
		return t, fmt.Errorf("parse %s subject: %w", name, err)
	}
	for _, part := range []struct {
		ext string
		dst **liquid.Template
	}{
		{"txt", &t.text},
		{"html", &t.html},
	} {
		src, err := templatesFS.ReadFile("templates/" + name + "." + part.ext + ".liquid")
		if err != nil {
			return t, fmt.Errorf("read %s.%s: %w", name, part.ext, err)
		}
		tpl, perr := engine.ParseString(string(src))
		if perr != nil {
			return t, fmt.Errorf("parse %s.%s: %w", name, part.ext, perr)
		}
		*part.dst = tpl
	}
	return t, nil
}

func (t template) render(b liquid.Bindings) (models.Content, error) {
	subject, err := t.subject.RenderString(b)
	if err != nil {
		return models.Content{}, fmt.Errorf("subject: %w", err)
	}
	text, err := t.text.RenderString(b)
	if err != nil {
		return models.Content{}, fmt.Errorf("text: %w", err)
	}
	html, err := t.html.RenderString(b)
	if err != nil {
		return models.Content{}, fmt.Errorf("html: %w", err)
	}
	return models.Content{
		Subject: strings.TrimSpace(subject),
		Text:    strings.TrimSpace(text) + "\n",
		HTML:    html,
	}, nil
}

// Welcome рендерит приветственное письмо.
func (r *Renderer) Welcome(data WelcomeData) (models.Content, error) {
	const op = "digest.Welcome"
	frequency := data.Frequency
	if frequency == "" {
		frequency = models.FrequencyDaily
	}
	b := liquid.Bindings{
		"brand":       r.brand,
		"name":        data.Name,
		"has_name":    data.Name != "",
		"frequency":   frequency,
		"topics":      data.Topics,
		"has_topics":  len(data.Topics) > 0,
		"sources":     data.Sources,
		"has_sources": len(data.Sources) > 0,
	}
	c, err := r.welcome.render(b)
	if err != nil {
		return models.Content{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// Digest рендерит дайджест. Некорректный снимок отклоняется до рендеринга.
// Пустой narrative означает письмо без текстового комментария.
func (r *Renderer) Digest(snap *models.Snapshot, narrative string) (models.Content, error) {
	const op = "digest.Digest"
	if err := snap.Validate(); err != nil {
		return models.Content{}, fmt.Errorf("%s: %w", op, err)
	}
	c, err := r.digest.render(r.digestBindings(snap, narrative))
	if err != nil {
		return models.Content{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (r *Renderer) digestBindings(snap *models.Snapshot, narrative string) liquid.Bindings {
	indicators := make([]map[string]any, 0, len(snap.Indicators))
	for _, i := range snap.Indicators {
		indicators = append(indicators, map[string]any{"name": i.Name, "value": i.Value, "signal": i.Signal})
	}
	movers := make([]map[string]any, 0, len(snap.TopMovers))
	for _, m := range snap.TopMovers {
		movers = append(movers, map[string]any{"symbol": m.Symbol, "price": m.Price, "change_percent": m.ChangePercent})
	}
	headlines := make([]map[string]any, 0, len(snap.Headlines))
	for _, h := range snap.Headlines {
		headlines = append(headlines, map[string]any{
			"title":      h.Title,
			"source":     h.Source,
			"has_source": h.Source != "",
			"url":        h.URL,
			"has_url":    h.URL != "",
		})
	}

	return liquid.Bindings{
		"brand":           r.brand,
		"date":            snap.AsOf.UTC().Format("Jan 2, 2006"),
		"sentiment":       snap.SentimentScore,
		"sentiment_label": SentimentLabel(snap.SentimentScore),
		"has_index":       snap.IndexName != "",
		"index_name":      snap.IndexName,
		"index_value":     snap.IndexValue,
		"change_percent":  snap.ChangePercent,
		"volatility":      snap.Volatility,
		"narrative":       paragraphs(narrative),
		"indicators":      indicators,
		"movers":          movers,
		"headlines":       headlines,
		"has_indicators":  len(indicators) > 0,
		"has_movers":      len(movers) > 0,
		"has_headlines":   len(headlines) > 0,
	}
}

// SentimentLabel переводит индекс настроений 0..100 в словесную оценку.
func SentimentLabel(score float64) string {
	switch {
	case score < 25:
		return "extreme fear"
	case score < 45:
		return "fear"
	case score <= 55:
		return "neutral"
	case score <= 75:
		return "greed"
	default:
		return "extreme greed"
	}
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
