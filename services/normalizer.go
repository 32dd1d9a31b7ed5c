package services

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"leilao-scraper/extractor"
	"leilao-scraper/models"
	"leilao-scraper/utils"
)

const (
	maxNormalizedTitle = 100
	maxDescription     = 3000
	maxPreview         = 255
	maxModelTokens     = 3
)

var (
	// lotRegexp captures "LOTE 42" / "lote42"
	lotRegexp = regexp.MustCompile(`(?i)\blote\s*\d+`)
	// plateRegexp captures "PLACA FINAL 7 (SP)" and "placa ABC-1234" / "placa ABC1D23"
	plateRegexp = regexp.MustCompile(`(?i)\bplaca\s*:?\s*(?:final\s*\d+(?:\s*\([a-z]{2}\))?|[a-z]{3}[-\s]?\d[a-z0-9]\d{2})`)
	// kmRegexp captures mileage like "KM 120.000"
	kmRegexp = regexp.MustCompile(`(?i)\bkm\s*:?\s*\d[\d.,]*`)
	tagRegexp = regexp.MustCompile(`<[^>]+>`)
)

const edgePunct = " -–:;,.|/"

// CleanTitle removes lot, plate and mileage noise and collapses whitespace.
// Glued markers like "LOTE 1LOTE 2" only expose the second one once the first
// is gone, so passes repeat until nothing changes.
func CleanTitle(s string) string {
	s = tagRegexp.ReplaceAllString(s, " ")
	for {
		next := lotRegexp.ReplaceAllString(s, " ")
		next = plateRegexp.ReplaceAllString(next, " ")
		next = kmRegexp.ReplaceAllString(next, " ")
		next = strings.Trim(normaliseText(next), edgePunct)
		if next == s {
			return next
		}
		s = next
	}
}

// TitleNormalizer derives the display/search title of a listing. It is a
// pure function of its inputs and safe for concurrent use.
type TitleNormalizer struct {
	single map[string]struct{}
	multi  [][]string
	empty  string
}

// NewTitleNormalizer builds a normalizer for the category's brand set and
// empty-title sentinel.
func NewTitleNormalizer(cat models.Category) *TitleNormalizer {
	n := &TitleNormalizer{
		single: make(map[string]struct{}),
		empty:  cat.EmptyTitle,
	}
	if n.empty == "" {
		n.empty = "Sem título"
	}
	for _, b := range cat.Brands {
		parts := strings.Fields(strings.ToUpper(b))
		switch len(parts) {
		case 0:
		case 1:
			n.single[parts[0]] = struct{}{}
		default:
			n.multi = append(n.multi, parts)
		}
	}
	return n
}

// Normalize returns a non-empty title of at most 100 characters.
// Structured brand/model metadata wins over free text; otherwise a known
// brand plus up to three following words is used; otherwise the cleaned text.
func (n *TitleNormalizer) Normalize(title string, metadata map[string]any) string {
	if strings.TrimSpace(title) == "" {
		return n.empty
	}

	brand, model := metaString(metadata, "brand"), metaString(metadata, "model")
	if brand != "" && model != "" {
		composed := brand + " " + model
		if year := metaString(metadata, "year"); year != "" {
			composed += " " + year
		}
		if out := limit(titleCase(normaliseText(composed))); out != "" {
			return out
		}
	}

	clean := CleanTitle(title)
	if clean == "" {
		return n.empty
	}

	tokens := strings.Fields(clean)
	if start, width, ok := n.findBrand(tokens); ok {
		end := start + width + maxModelTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		return limit(titleCase(strings.Join(tokens[start:end], " ")))
	}

	out := limit(clean)
	if out == "" {
		return n.empty
	}
	return out
}

func (n *TitleNormalizer) findBrand(tokens []string) (start, width int, ok bool) {
	upper := make([]string, len(tokens))
	for i, t := range tokens {
		upper[i] = strings.ToUpper(strings.Trim(t, ",.;:()[]"))
	}
	for i := range upper {
		for _, m := range n.multi {
			if i+len(m) <= len(upper) && equalTokens(upper[i:i+len(m)], m) {
				return i, len(m), true
			}
		}
		if _, found := n.single[upper[i]]; found {
			return i, 1, true
		}
	}
	return 0, 0, false
}

func equalTokens(a, b []string) bool {
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func metaString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%.0f", x))
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func titleCase(s string) string {
	// a Caser is stateful, so each call gets its own
	return cases.Title(language.BrazilianPortuguese).String(s)
}

func limit(s string) string {
	return strings.Trim(extractor.Truncate(s, maxNormalizedTitle), edgePunct)
}

// CleanDescription converts provider HTML to plain text, dropping scripts and
// styles, collapsing whitespace and capping the length.
func CleanDescription(raw string) string {
	z := html.NewTokenizer(strings.NewReader(raw))
	var b strings.Builder
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			text := normaliseText(b.String())
			if len([]rune(text)) > maxDescription {
				text = extractor.Truncate(text, maxDescription-3) + "..."
			}
			return text
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// Normalizer fills the derived text fields of provisional listings.
type Normalizer struct {
	logger *utils.Logger
	titles *TitleNormalizer
}

// NewNormalizer creates a Normalizer for one category.
func NewNormalizer(cat models.Category, logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger, titles: NewTitleNormalizer(cat)}
}

// Apply sets normalized_title, cleans description/preview and formats city.
func (n *Normalizer) Apply(l *models.Listing) {
	l.NormalizedTitle = n.titles.Normalize(l.Title, l.Metadata)

	if l.Description != nil {
		l.Description = extractor.StringPtr(CleanDescription(*l.Description))
	}
	switch {
	case l.Description != nil:
		l.DescriptionPreview = extractor.StringPtr(extractor.Truncate(*l.Description, maxPreview))
	case l.DescriptionPreview != nil:
		l.DescriptionPreview = extractor.StringPtr(extractor.Truncate(CleanDescription(*l.DescriptionPreview), maxPreview))
	}

	if l.City != nil {
		city := titleCase(normaliseText(*l.City))
		l.City = &city
	}
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
