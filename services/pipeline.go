package services

import (
	"sync/atomic"
	"time"

	"leilao-scraper/extractor"
	"leilao-scraper/models"
	"leilao-scraper/utils"
)

// Pipeline turns raw payloads into canonical listings:
// extract → classify (drop invalid/test) → normalize.
// It is safe to share between concurrent provider runs.
type Pipeline struct {
	logger     *utils.Logger
	category   models.Category
	classifier *Classifier
	normalizer *Normalizer
	skips      *utils.Tally
	extracted  atomic.Int64
}

// NewPipeline wires a pipeline for one category. filtered receives classifier
// reasons, skips receives extractor skip/error reasons.
func NewPipeline(cat models.Category, logger *utils.Logger, filtered, skips *utils.Tally) *Pipeline {
	return &Pipeline{
		logger:     logger,
		category:   cat,
		classifier: NewClassifier(filtered),
		normalizer: NewNormalizer(cat, logger),
		skips:      skips,
	}
}

// Process runs every payload through the pipeline. Bad payloads are counted
// and dropped; they never abort the batch.
func (p *Pipeline) Process(payloads []models.RawPayload, now time.Time) []*models.Listing {
	out := make([]*models.Listing, 0, len(payloads))

	for _, raw := range payloads {
		res := extractor.Extract(raw, p.category, now)
		if res.Outcome != models.OutcomeOK {
			p.skips.Inc(res.Reason)
			if res.Outcome == models.OutcomeError {
				p.logger.Debug("[pipeline] %s payload dropped: %s", raw.Source, res.Reason)
			}
			continue
		}
		p.extracted.Add(1)

		l := res.Listing
		if c := p.classifier.Classify(l); c.Verdict != VerdictValid {
			p.logger.Debug("[pipeline] %s %q dropped as %s (%s)", l.Source, l.ExternalID, c.Verdict, c.Reason)
			continue
		}

		p.normalizer.Apply(l)
		out = append(out, l)
	}
	return out
}

// Extracted is the number of payloads that produced a provisional listing.
func (p *Pipeline) Extracted() int {
	return int(p.extracted.Load())
}
