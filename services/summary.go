package services

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"leilao-scraper/models"
	"leilao-scraper/utils"
)

type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

// Generate fills the price and location statistics of s from the final,
// deduplicated listings.
func (svc *SummaryService) Generate(s *models.RunSummary, listings []*models.Listing) {
	s.ListingsByState = make(map[string]int)
	s.AveragePrice, s.MinPrice, s.MaxPrice, s.MostExpensive = 0, 0, 0, nil

	var priced []*models.Listing
	for _, l := range listings {
		if l.Value != nil && *l.Value > 0 {
			priced = append(priced, l)
		}
		if l.State != nil {
			s.ListingsByState[*l.State]++
		}
	}

	if len(priced) == 0 {
		return
	}

	s.MinPrice = *priced[0].Value
	s.MaxPrice = *priced[0].Value
	s.MostExpensive = priced[0]
	var total float64
	for _, l := range priced {
		v := *l.Value
		total += v
		if v < s.MinPrice {
			s.MinPrice = v
		}
		if v > s.MaxPrice {
			s.MaxPrice = v
			s.MostExpensive = l
		}
	}
	s.AveragePrice = round2(total / float64(len(priced)))
	s.MinPrice = round2(s.MinPrice)
	s.MaxPrice = round2(s.MaxPrice)
}

func (svc *SummaryService) Print(w io.Writer, s *models.RunSummary) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 %s RUN SUMMARY\033[0m\n", strings.ToUpper(s.Category))
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Run ID                 : %s\n", s.RunID)
	if !s.FinishedAt.IsZero() {
		fmt.Fprintf(w, "  Duration               : %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Second))
	}
	fmt.Fprintf(w, "  Extracted              : \033[1m%d\033[0m\n", s.Extracted)
	fmt.Fprintf(w, "  Filtered (test/demo)   : \033[1m%d\033[0m\n", s.TotalFiltered())
	fmt.Fprintf(w, "  Invalid                : \033[1m%d\033[0m\n", s.Invalid)
	fmt.Fprintf(w, "  Duplicates             : \033[1m%d\033[0m\n", s.Duplicates)
	fmt.Fprintf(w, "  Final listings         : \033[1m%d\033[0m\n", s.Total)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Providers\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, src := range models.AllSources {
		n, ran := s.PerProvider[src]
		if !ran {
			continue
		}
		line := fmt.Sprintf("  %-22s : %d", src, n)
		if msg, failed := s.ProviderErrors[src]; failed {
			line += fmt.Sprintf("  \033[1;31m(error: %s)\033[0m", truncate(msg, 60))
		}
		fmt.Fprintln(w, line)
	}
	printCounts(w, "  Filter reasons", s.Filtered)
	printCounts(w, "  Skip reasons", s.Skipped)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if s.AveragePrice > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32mR$ %.2f\033[0m\n", s.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : \033[1;32mR$ %.2f\033[0m\n", s.MinPrice)
		fmt.Fprintf(w, "  Maximum price : \033[1;32mR$ %.2f\033[0m\n", s.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if s.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Lot\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(s.MostExpensive.NormalizedTitle, 50))
		fmt.Fprintf(w, "  Source : %s (%s)\n", s.MostExpensive.Source, s.MostExpensive.ExternalID)
		if s.MostExpensive.ValueText != nil {
			fmt.Fprintf(w, "  Value  : \033[1;31m%s\033[0m\n", *s.MostExpensive.ValueText)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Listings by State\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(s.ListingsByState) == 0 {
		fmt.Fprintf(w, "  No location data\n")
	} else {
		type stateCount struct {
			state string
			count int
		}
		var states []stateCount
		for st, n := range s.ListingsByState {
			states = append(states, stateCount{st, n})
		}
		sort.Slice(states, func(i, j int) bool {
			if states[i].count == states[j].count {
				return states[i].state < states[j].state
			}
			return states[i].count > states[j].count
		})
		for _, sc := range states {
			bar := strings.Repeat("█", min(sc.count, 40))
			fmt.Fprintf(w, "  %-4s %s (%d)\n", sc.state, bar, sc.count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Upload\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if s.OutputPath != "" {
		fmt.Fprintf(w, "  Snapshot : %s\n", s.OutputPath)
	}
	fmt.Fprintf(w, "  Inserted : %d  Updated : %d  Errors : %d  Skipped : %d\n",
		s.Upsert.Inserted, s.Upsert.Updated, s.Upsert.Errors, s.Upsert.Skipped)
	if s.UpsertErr != "" {
		fmt.Fprintf(w, "  \033[1;31m%s\033[0m\n", truncate(s.UpsertErr, 80))
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func printCounts(w io.Writer, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	fmt.Fprintf(w, "%-24s : %s\n", label, strings.Join(parts, " "))
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
