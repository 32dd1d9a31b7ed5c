package services

import "leilao-scraper/models"

// Dedupe collapses listings sharing a (source, external_id) key.
//
// The surviving record for a key sits at the position where that key was
// first seen, but carries the values of the last occurrence (last write
// wins, position is never re-ordered on overwrite). It returns the number of
// records that were folded into an earlier position.
func Dedupe(listings []*models.Listing) ([]*models.Listing, int) {
	index := make(map[models.Key]int, len(listings))
	out := make([]*models.Listing, 0, len(listings))

	for _, l := range listings {
		k := l.Key()
		if i, seen := index[k]; seen {
			out[i] = l
			continue
		}
		index[k] = len(out)
		out = append(out, l)
	}
	return out, len(listings) - len(out)
}
