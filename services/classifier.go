package services

import (
	"regexp"
	"strings"

	"leilao-scraper/models"
	"leilao-scraper/utils"
)

// Verdict is the classifier's decision for one listing.
type Verdict string

const (
	VerdictValid   Verdict = "valid"
	VerdictTest    Verdict = "test"
	VerdictInvalid Verdict = "invalid"
)

// Classification reasons, in precedence order for test/demo items.
const (
	ReasonNoStore        = "no_store"
	ReasonDemoSeller     = "demo_seller"
	ReasonDemoAuctioneer = "demo_auctioneer"
	ReasonDeployText     = "deploy_text"
	ReasonTestText       = "test_text"

	ReasonMissingID    = "missing_external_id"
	ReasonMissingTitle = "missing_title"
)

var testPatterns = []*regexp.Regexp{
	wordPattern("demo"),
	wordPattern("teste"),
	wordPattern("test"),
	wordPattern("deploy"),
	regexp.MustCompile(`(?i)^teste`),
	regexp.MustCompile(`(?i)demonstra[cç][aã]o`),
}

// wordPattern matches w as a whole word. RE2's \b is ASCII-only, so accented
// letters are treated as word characters explicitly.
func wordPattern(w string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(w) + `(?:$|[^\p{L}\p{N}_])`)
}

// Classification is the verdict plus the rule that produced it.
type Classification struct {
	Verdict Verdict
	Reason  string
}

// Classifier rejects incomplete listings and flags test/demo items.
// Every non-valid verdict is counted in the run tally.
type Classifier struct {
	tally *utils.Tally
}

// NewClassifier creates a Classifier recording into tally (may be nil).
func NewClassifier(tally *utils.Tally) *Classifier {
	return &Classifier{tally: tally}
}

// Classify applies the rules in precedence order; the first match wins.
func (c *Classifier) Classify(l *models.Listing) Classification {
	res := classify(l)
	if res.Verdict != VerdictValid && c.tally != nil {
		c.tally.Inc(res.Reason)
	}
	return res
}

func classify(l *models.Listing) Classification {
	if strings.TrimSpace(l.ExternalID) == "" {
		return Classification{VerdictInvalid, ReasonMissingID}
	}
	if strings.TrimSpace(l.Title) == "" {
		return Classification{VerdictInvalid, ReasonMissingTitle}
	}

	// nil means the provider does not report a seller at all
	if l.StoreName != nil {
		store := strings.ToLower(strings.TrimSpace(*l.StoreName))
		if store == "" {
			return Classification{VerdictTest, ReasonNoStore}
		}
		if strings.Contains(store, "demo") {
			return Classification{VerdictTest, ReasonDemoSeller}
		}
	}

	if l.AuctionName != nil && strings.Contains(strings.ToLower(*l.AuctionName), "demo") {
		return Classification{VerdictTest, ReasonDemoAuctioneer}
	}

	title := strings.ToLower(l.Title)
	desc := ""
	if l.DescriptionPreview != nil {
		desc = strings.ToLower(*l.DescriptionPreview)
	}
	for _, p := range testPatterns {
		if p.MatchString(title) || p.MatchString(desc) {
			if strings.Contains(title, "deploy") || strings.Contains(desc, "deploy") {
				return Classification{VerdictTest, ReasonDeployText}
			}
			return Classification{VerdictTest, ReasonTestText}
		}
	}

	return Classification{Verdict: VerdictValid}
}
