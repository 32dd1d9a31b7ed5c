package extractor

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxTitleLen   = 255
	maxPreviewLen = 255
)

// ValidStates is the fixed set of Brazilian federative unit codes.
var ValidStates = map[string]struct{}{
	"AC": {}, "AL": {}, "AP": {}, "AM": {}, "BA": {}, "CE": {}, "DF": {}, "ES": {}, "GO": {},
	"MA": {}, "MT": {}, "MS": {}, "MG": {}, "PA": {}, "PB": {}, "PR": {}, "PE": {}, "PI": {},
	"RJ": {}, "RN": {}, "RS": {}, "RO": {}, "RR": {}, "SC": {}, "SP": {}, "SE": {}, "TO": {},
}

// saoPaulo is used for timestamps that arrive without a zone.
var saoPaulo = loadSaoPaulo()

func loadSaoPaulo() *time.Location {
	if loc, err := time.LoadLocation("America/Sao_Paulo"); err == nil {
		return loc
	}
	return time.FixedZone("BRT", -3*60*60)
}

var brl = message.NewPrinter(language.BrazilianPortuguese)

// flexString accepts a JSON string, number or null. Providers are not
// consistent about quoting identifiers. Booleans keep their literal text and
// objects or arrays read as empty so one odd field never sinks a record.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*f = ""
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	case 't', 'f':
		*f = flexString(b)
	case 'n', '{', '[':
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*f = flexString(n.String())
	}
	return nil
}

func (f flexString) String() string { return string(f) }

// flexFloat accepts a JSON number, a numeric string or null.
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*f = flexFloat{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// unparseable amounts become null rather than failing the payload
		return nil
	}
	*f = flexFloat{Value: v, Valid: true}
	return nil
}

// Int returns the value truncated to an int, or 0 when absent.
func (f flexFloat) Int() int {
	if !f.Valid {
		return 0
	}
	return int(f.Value)
}

// optString records whether a field was present at all, null included.
type optString struct {
	Value string
	Set   bool
}

func (o *optString) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	*o = optString{Value: string(s), Set: true}
	return nil
}

// flexList accepts a JSON array of anything; any other value reads as empty.
type flexList []any

func (f *flexList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*f = nil
	if len(b) == 0 || b[0] != '[' {
		return nil
	}
	var items []any
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*f = items
	return nil
}

// CentsToReais converts an integer-cents amount to currency base units.
// Callers must apply it exactly once per raw amount.
func CentsToReais(cents float64) float64 {
	return cents / 100
}

// PositiveValue returns nil for absent, zero or negative amounts.
func PositiveValue(v float64, ok bool) *float64 {
	if !ok || v <= 0 {
		return nil
	}
	return &v
}

// FormatBRL renders a value as pt-BR currency text, e.g. "R$ 80.000,00".
func FormatBRL(v *float64) *string {
	if v == nil {
		return nil
	}
	s := brl.Sprintf("R$ %.2f", *v)
	return &s
}

// ValidState normalizes a state token, returning nil if it is not one of the
// 27 federative unit codes.
func ValidState(s string) *string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if _, ok := ValidStates[s]; !ok {
		return nil
	}
	return &s
}

// ParseLocation splits "City/UF" or "City - UF" on the first delimiter.
// An invalid state nulls both parts; a string without a delimiter is a bare city.
func ParseLocation(raw string) (city, state *string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	idx, width := -1, 0
	if i := strings.Index(raw, "/"); i >= 0 {
		idx, width = i, 1
	}
	if i := strings.Index(raw, " - "); i >= 0 && (idx < 0 || i < idx) {
		idx, width = i, 3
	}
	if idx < 0 {
		return StringPtr(raw), nil
	}

	return CityState(raw[:idx], raw[idx+width:])
}

// CityState validates a separately reported city/state pair with the same
// all-or-nothing rule as ParseLocation.
func CityState(city, state string) (*string, *string) {
	if strings.TrimSpace(state) == "" {
		return StringPtr(city), nil
	}
	st := ValidState(state)
	if st == nil {
		return nil, nil
	}
	c := StringPtr(city)
	if c == nil {
		return nil, nil
	}
	return c, st
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate parses an ISO8601 timestamp (a trailing Z included). Zone-less
// values are read as São Paulo time. Anything unparseable yields nil.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for i, layout := range dateLayouts {
		var (
			t   time.Time
			err error
		)
		if i == 0 {
			t, err = time.Parse(layout, raw)
		} else {
			t, err = time.ParseInLocation(layout, raw, saoPaulo)
		}
		if err == nil {
			return &t
		}
	}
	return nil
}

// DaysRemaining returns whole days from now until t, never negative.
func DaysRemaining(t *time.Time, now time.Time) *int {
	if t == nil {
		return nil
	}
	d := int(t.Sub(now).Hours() / 24)
	if d < 0 {
		d = 0
	}
	return &d
}

// Expired reports whether an end date is known and already past.
func Expired(end *time.Time, now time.Time) bool {
	return end != nil && !end.After(now)
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and strips diacritics so "Calçado" matches "calcado".
func Fold(s string) string {
	out, _, err := transform.String(foldAccents, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// IsRelevant is the category predicate for mixed feeds: any keyword appearing
// as a substring of any text, ignoring case and accents. No keywords accepts all.
func IsRelevant(keywords []string, texts ...string) bool {
	if len(keywords) == 0 {
		return true
	}
	folded := make([]string, 0, len(texts))
	for _, t := range texts {
		if t != "" {
			folded = append(folded, Fold(t))
		}
	}
	for _, k := range keywords {
		k = Fold(k)
		for _, t := range folded {
			if strings.Contains(t, k) {
				return true
			}
		}
	}
	return false
}

// StringPtr returns nil for blank strings and a trimmed copy otherwise.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func setIfPresent(m map[string]any, key string, v any) {
	switch x := v.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return
		}
	case flexString:
		if x == "" {
			return
		}
		v = string(x)
	case nil:
		return
	}
	m[key] = v
}
