package extractor

import (
	"encoding/json"
	"testing"
	"time"

	"leilao-scraper/models"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func payload(src models.Source, v any) models.RawPayload {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return models.RawPayload{Source: src, Category: "veiculos", Body: b}
}

func mustOK(t *testing.T, r models.ExtractResult) *models.Listing {
	t.Helper()
	if r.Outcome != models.OutcomeOK {
		t.Fatalf("outcome: got %s (%s), want ok", r.Outcome, r.Reason)
	}
	return r.Listing
}

func TestSodreConvertsCentsOnce(t *testing.T) {
	for _, cents := range []float64{8000000, 1, 99, 123456} {
		r := Sodre(payload(models.SourceSodre, map[string]any{
			"lot_id": 42, "lot_title": "LOTE 42 HONDA CIVIC 2020/2020", "bid_actual": cents,
		}), models.Veiculos, testNow)
		l := mustOK(t, r)

		if l.Value == nil {
			t.Fatalf("value for %v cents should not be nil", cents)
		}
		if *l.Value != cents/100 {
			t.Errorf("value: got %v, want %v", *l.Value, cents/100)
		}
		if *l.Value == cents/10000 && cents != 0 {
			t.Errorf("value %v looks double-converted", *l.Value)
		}
	}
}

func TestSodreScenarioLot42(t *testing.T) {
	r := Sodre(payload(models.SourceSodre, map[string]any{
		"lot_id": 42, "lot_title": "LOTE 42 HONDA CIVIC 2020/2020", "bid_actual": 8000000,
	}), models.Veiculos, testNow)
	l := mustOK(t, r)

	if *l.Value != 80000.0 {
		t.Errorf("value: got %v, want 80000", *l.Value)
	}
	if l.ExternalID != "sodre_42" {
		t.Errorf("external_id: got %q", l.ExternalID)
	}
	if l.StoreName != nil {
		t.Errorf("store_name should be unreported, got %q", *l.StoreName)
	}
	if l.ValueText == nil || *l.ValueText != "R$ 80.000,00" {
		t.Errorf("value_text: got %v, want R$ 80.000,00", l.ValueText)
	}
	if !l.IsActive {
		t.Error("is_active must be true")
	}
}

func TestSodreFallsBackToInitialBid(t *testing.T) {
	r := Sodre(payload(models.SourceSodre, map[string]any{
		"lot_id": "7", "lot_title": "Moto", "bid_actual": 0, "bid_initial": "150000",
	}), models.Veiculos, testNow)
	l := mustOK(t, r)
	if l.Value == nil || *l.Value != 1500 {
		t.Errorf("value: got %v, want 1500", l.Value)
	}
}

func TestSodreMetadataAndLink(t *testing.T) {
	r := Sodre(payload(models.SourceSodre, map[string]any{
		"lot_id": 9, "auction_id": 300, "lot_title": "Carro",
		"lot_brand": "FORD", "lot_model": "RANGER XL", "lot_year": 2014, "lot_plate": "FINAL 7",
		"lot_location": "Campinas/SP", "store_name": "Banco X",
	}), models.Veiculos, testNow)
	l := mustOK(t, r)

	if l.Metadata["brand"] != "FORD" || l.Metadata["model"] != "RANGER XL" || l.Metadata["year"] != "2014" {
		t.Errorf("metadata: got %v", l.Metadata)
	}
	if l.Link == nil || *l.Link != "https://leilao.sodresantoro.com.br/leilao/300/lote/9/" {
		t.Errorf("link: got %v", l.Link)
	}
	if l.City == nil || *l.City != "Campinas" || l.State == nil || *l.State != "SP" {
		t.Errorf("location: got %v/%v", l.City, l.State)
	}
	if l.StoreName == nil || *l.StoreName != "Banco X" {
		t.Errorf("store_name: got %v", l.StoreName)
	}
}

func TestSodreKeywordFilter(t *testing.T) {
	r := Sodre(payload(models.SourceSodre, map[string]any{
		"lot_id": 1, "lot_title": "Mesa de escritório", "lot_category": "Móveis",
	}), models.Tecnologia, testNow)
	if r.Outcome != models.OutcomeSkip || r.Reason != models.SkipIrrelevant {
		t.Errorf("expected irrelevant skip, got %s/%s", r.Outcome, r.Reason)
	}

	r = Sodre(payload(models.SourceSodre, map[string]any{
		"lot_id": 2, "lot_title": "NOTEBOOK DELL INSPIRON",
	}), models.Tecnologia, testNow)
	mustOK(t, r)
}

func TestSodreZeroBidHasNoValueText(t *testing.T) {
	r := Sodre(payload(models.SourceSodre, map[string]any{
		"lot_id": 3, "lot_title": "Sucata", "bid_actual": 0,
	}), models.Veiculos, testNow)
	l := mustOK(t, r)
	if l.Value != nil || l.ValueText != nil {
		t.Errorf("zero bid: got value %v, value_text %v", l.Value, l.ValueText)
	}
}

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{80000, "R$ 80.000,00"},
		{1234567.891, "R$ 1.234.567,89"},
		{0.5, "R$ 0,50"},
	}
	for _, tt := range tests {
		v := tt.in
		if got := FormatBRL(&v); got == nil || *got != tt.want {
			t.Errorf("FormatBRL(%v): got %v, want %q", tt.in, got, tt.want)
		}
	}
	if FormatBRL(nil) != nil {
		t.Error("FormatBRL(nil) should be nil")
	}
}

func TestSodreToleratesOddFieldTypes(t *testing.T) {
	r := Sodre(payload(models.SourceSodre, map[string]any{
		"lot_id":       1,
		"lot_title":    "HONDA CIVIC",
		"lot_status":   3,
		"lot_category": map[string]any{"id": 1},
		"lot_pictures": []any{map[string]any{"url": "a"}},
		"lot_brand":    true,
		"auction_name": []any{"x"},
	}), models.Veiculos, testNow)
	l := mustOK(t, r)

	if l.Title != "HONDA CIVIC" {
		t.Errorf("title: got %q", l.Title)
	}
	if l.Metadata["status"] != "3" {
		t.Errorf("status: got %v", l.Metadata["status"])
	}
	if _, ok := l.Metadata["category"]; ok {
		t.Errorf("object category should be dropped, got %v", l.Metadata["category"])
	}
	if imgs, ok := l.Metadata["images"].([]any); !ok || len(imgs) != 1 {
		t.Errorf("images: got %v", l.Metadata["images"])
	}
	if l.AuctionName != nil {
		t.Errorf("auction_name: got %q", *l.AuctionName)
	}
}

func TestSodreStoreNamePresence(t *testing.T) {
	r := Sodre(payload(models.SourceSodre, map[string]any{
		"lot_id": 1, "lot_title": "Carro", "store_name": nil,
	}), models.Veiculos, testNow)
	l := mustOK(t, r)
	if l.StoreName == nil || *l.StoreName != "" {
		t.Errorf("null store_name should be reported blank, got %v", l.StoreName)
	}

	r = Sodre(payload(models.SourceSodre, map[string]any{
		"lot_id": 1, "lot_title": "Carro",
	}), models.Veiculos, testNow)
	if l = mustOK(t, r); l.StoreName != nil {
		t.Errorf("absent store_name should be unreported, got %q", *l.StoreName)
	}
}

func TestMegaleiloesToleratesOddFieldTypes(t *testing.T) {
	r := Megaleiloes(payload(models.SourceMegaleiloes, map[string]any{
		"id":       8,
		"name":     "Fiat Strada",
		"value":    map[string]any{"amount": 1},
		"images":   "https://img/1.jpg",
		"location": map[string]any{"city": "Santos", "state": 35},
		"vehicle":  map[string]any{"brand": "FIAT", "model": 500, "year": "2019"},
	}), models.Veiculos, testNow)
	l := mustOK(t, r)

	if l.Value != nil {
		t.Errorf("object value should be nil, got %v", *l.Value)
	}
	if _, ok := l.Metadata["images"]; ok {
		t.Errorf("non-array images should be dropped, got %v", l.Metadata["images"])
	}
	if l.City != nil || l.State != nil {
		t.Errorf("numeric state is invalid, got %v/%v", l.City, l.State)
	}
	if l.Metadata["model"] != "500" {
		t.Errorf("model: got %v", l.Metadata["model"])
	}
}

func TestSuperbidToleratesOddFieldTypes(t *testing.T) {
	r := Superbid(payload(models.SourceSuperbid, map[string]any{
		"id": 2,
		"product": map[string]any{
			"shortDesc":     "Trator",
			"videoUrlCount": "2",
			"galleryJson":   []any{"a", map[string]any{"link": "b"}, map[string]any{"link": 3}},
		},
		"seller":  map[string]any{"name": 12, "city": "Curitiba/PR"},
		"auction": map[string]any{"auctioneer": map[string]any{"name": "X"}},
	}), models.Veiculos, testNow)
	l := mustOK(t, r)

	midia := l.Metadata["midia"].(map[string]any)
	if midia["total_videos"] != 2 || midia["total_fotos"] != 1 {
		t.Errorf("midia: got %v", midia)
	}
	if v := l.Metadata["vendedor"].(map[string]any); v["nome"] != "12" {
		t.Errorf("vendedor: got %v", v)
	}
	if _, ok := l.Metadata["leiloeiro"]; ok {
		t.Errorf("object auctioneer should be dropped, got %v", l.Metadata["leiloeiro"])
	}
}

func TestMalformedPayloadIsAnError(t *testing.T) {
	p := models.RawPayload{Source: models.SourceSuperbid, Body: json.RawMessage(`{"id": [}`)}
	for _, fn := range []Func{Sodre, Megaleiloes, Superbid} {
		r := fn(p, models.Veiculos, testNow)
		if r.Outcome != models.OutcomeError || r.Reason != models.ErrMalformed {
			t.Errorf("expected malformed error, got %s/%s", r.Outcome, r.Reason)
		}
	}
}

func TestMegaleiloesBadDateIsNull(t *testing.T) {
	r := Megaleiloes(payload(models.SourceMegaleiloes, map[string]any{
		"id": 5, "name": "Caminhonete Ford Ranger", "value": "45000.50",
		"auction": map[string]any{"date": "not-a-date"},
		"store":   map[string]any{"name": "Loja"},
	}), models.Veiculos, testNow)
	l := mustOK(t, r)

	if l.AuctionDate != nil {
		t.Errorf("auction_date should be nil, got %v", l.AuctionDate)
	}
	if l.DaysRemaining != nil {
		t.Errorf("days_remaining should be nil, got %v", *l.DaysRemaining)
	}
	if l.Value == nil || *l.Value != 45000.50 {
		t.Errorf("value: got %v", l.Value)
	}
	if l.Link == nil || *l.Link != "https://www.megaleiloes.com.br/5" {
		t.Errorf("link: got %v", l.Link)
	}
}

func TestMegaleiloesInvalidStateNullsBoth(t *testing.T) {
	r := Megaleiloes(payload(models.SourceMegaleiloes, map[string]any{
		"id": 6, "name": "Moto", "location": map[string]any{"city": "Springfield", "state": "XX"},
	}), models.Veiculos, testNow)
	l := mustOK(t, r)
	if l.City != nil || l.State != nil {
		t.Errorf("expected nil city and state, got %v/%v", l.City, l.State)
	}
}

func TestSuperbidOffer(t *testing.T) {
	end := testNow.Add(72 * time.Hour).Format(time.RFC3339)
	r := Superbid(payload(models.SourceSuperbid, map[string]any{
		"id":          777,
		"endDate":     end,
		"product":     map[string]any{"shortDesc": "Fiat Uno 2010", "galleryJson": []any{map[string]any{"link": "a"}, map[string]any{}}},
		"offerDetail": map[string]any{"currentMinBid": 12500.0},
		"seller":      map[string]any{"city": "Rio de Janeiro - RJ", "name": "Seguradora"},
		"store":       map[string]any{"name": "Loja Oficial"},
		"auction":     map[string]any{"modalityDesc": "Leilão Online", "auctioneer": "Fulano"},
	}), models.Veiculos, testNow)
	l := mustOK(t, r)

	if l.ExternalID != "superbid_777" {
		t.Errorf("external_id: got %q", l.ExternalID)
	}
	if *l.Value != 12500 {
		t.Errorf("value: got %v", *l.Value)
	}
	if *l.City != "Rio de Janeiro" || *l.State != "RJ" {
		t.Errorf("location: got %s/%s", *l.City, *l.State)
	}
	if l.DaysRemaining == nil || *l.DaysRemaining != 3 {
		t.Errorf("days_remaining: got %v", l.DaysRemaining)
	}
	if l.AuctionType != "Leilão Online" {
		t.Errorf("auction_type: got %q", l.AuctionType)
	}
	if *l.DescriptionPreview != "Fiat Uno 2010" {
		t.Errorf("preview should fall back to title, got %q", *l.DescriptionPreview)
	}
	midia := l.Metadata["midia"].(map[string]any)
	if midia["total_fotos"] != 1 {
		t.Errorf("total_fotos: got %v", midia["total_fotos"])
	}
}

func TestSuperbidMissingStoreIsBlank(t *testing.T) {
	r := Superbid(payload(models.SourceSuperbid, map[string]any{
		"id": 1, "product": map[string]any{"shortDesc": "Item"},
	}), models.Veiculos, testNow)
	l := mustOK(t, r)
	if l.StoreName == nil || *l.StoreName != "" {
		t.Errorf("store_name should be reported blank, got %v", l.StoreName)
	}
}

func TestExpiredOfferIsSkipped(t *testing.T) {
	r := Superbid(payload(models.SourceSuperbid, map[string]any{
		"id": 1, "endDate": "2020-01-01T00:00:00Z", "product": map[string]any{"shortDesc": "Item"},
	}), models.Veiculos, testNow)
	if r.Outcome != models.OutcomeSkip || r.Reason != models.SkipExpired {
		t.Errorf("expected expired skip, got %s/%s", r.Outcome, r.Reason)
	}
}

func TestExtractUnknownSource(t *testing.T) {
	r := Extract(models.RawPayload{Source: "olx"}, models.Veiculos, testNow)
	if r.Outcome != models.OutcomeError {
		t.Errorf("expected error outcome, got %s", r.Outcome)
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		raw       string
		city      string
		state     string
		nilCity   bool
		nilState  bool
	}{
		{raw: "São Paulo/SP", city: "São Paulo", state: "SP"},
		{raw: "Belo Horizonte - mg", city: "Belo Horizonte", state: "MG"},
		{raw: "Curitiba / PR / Brasil", city: "Curitiba", nilCity: true, nilState: true},
		{raw: "Nowhere/ZZ", nilCity: true, nilState: true},
		{raw: "Recife", city: "Recife", nilState: true},
		{raw: "", nilCity: true, nilState: true},
	}
	for _, tt := range tests {
		city, state := ParseLocation(tt.raw)
		if tt.nilCity != (city == nil) || (city != nil && *city != tt.city) {
			t.Errorf("ParseLocation(%q) city = %v; want %q (nil=%v)", tt.raw, city, tt.city, tt.nilCity)
		}
		if tt.nilState != (state == nil) || (state != nil && *state != tt.state) {
			t.Errorf("ParseLocation(%q) state = %v; want %q (nil=%v)", tt.raw, state, tt.state, tt.nilState)
		}
	}
}

func TestStatesAlwaysInSet(t *testing.T) {
	inputs := []string{"SP", "sp", "S", "SPX", "XX", "", " rj ", "12", "Df"}
	for _, in := range inputs {
		st := ValidState(in)
		if st == nil {
			continue
		}
		if _, ok := ValidStates[*st]; !ok {
			t.Errorf("ValidState(%q) = %q is outside the state set", in, *st)
		}
	}
	if len(ValidStates) != 27 {
		t.Errorf("state set size: got %d, want 27", len(ValidStates))
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2026-11-01T10:00:00Z", "2026-11-01T10:00:00Z"},
		{"2026-11-01T10:00:00.123-03:00", "2026-11-01T13:00:00.123Z"},
		{"2026-11-01T10:00:00", "2026-11-01T13:00:00Z"},
		{"not-a-date", ""},
		{"", ""},
	}
	for _, tt := range tests {
		got := ParseDate(tt.raw)
		if tt.want == "" {
			if got != nil {
				t.Errorf("ParseDate(%q) = %v; want nil", tt.raw, got)
			}
			continue
		}
		if got == nil {
			t.Errorf("ParseDate(%q) = nil; want %s", tt.raw, tt.want)
			continue
		}
		if s := got.UTC().Format(time.RFC3339Nano); s != tt.want {
			t.Errorf("ParseDate(%q) = %s; want %s", tt.raw, s, tt.want)
		}
	}
}

func TestIsRelevantFoldsAccents(t *testing.T) {
	if !IsRelevant([]string{"calcado"}, "Lote de CALÇADOS") {
		t.Error("accented text should match unaccented keyword")
	}
	if IsRelevant([]string{"geladeira"}, "Fogão", "") {
		t.Error("unrelated text should not match")
	}
	if !IsRelevant(nil, "anything") {
		t.Error("no keywords accepts everything")
	}
}

func TestPositiveValue(t *testing.T) {
	if PositiveValue(0, true) != nil || PositiveValue(-5, true) != nil || PositiveValue(10, false) != nil {
		t.Error("zero, negative and absent values must be nil")
	}
	if v := PositiveValue(10, true); v == nil || *v != 10 {
		t.Errorf("PositiveValue(10): got %v", v)
	}
}
