package aggregator

import (
	"imagesvc/internal/domain"
	"imagesvc/internal/providers/search"
)

// priority is the round-robin order of the interleave. Sources not listed
// follow in the order they were first seen.
var priority = []domain.Source{
	domain.SourceUnsplash,
	domain.SourcePexels,
	domain.SourceWikimedia,
	domain.SourcePixabay,
}

// Interleave groups candidates by source and takes one from each source per
// round, so no single provider dominates the head of the list. Failed
// results contribute nothing.
func Interleave(results []search.Result) []domain.ImageCandidate {
	bySource := map[domain.Source][]domain.ImageCandidate{}
	var seen []domain.Source
	total := 0
	for _, r := range results {
		for _, c := range r.OrEmpty() {
			if c.Validate() != nil {
				continue
			}
			if _, ok := bySource[c.Source]; !ok {
				seen = append(seen, c.Source)
			}
			bySource[c.Source] = append(bySource[c.Source], c)
			total++
		}
	}
	if total == 0 {
		return nil
	}

	order := make([]domain.Source, 0, len(seen))
	ranked := map[domain.Source]bool{}
	for _, s := range priority {
		ranked[s] = true
		if _, ok := bySource[s]; ok {
			order = append(order, s)
		}
	}
	for _, s := range seen {
		if !ranked[s] {
			order = append(order, s)
		}
	}

	out := make([]domain.ImageCandidate, 0, total)
	for round := 0; len(out) < total; round++ {
		for _, s := range order {
			if list := bySource[s]; round < len(list) {
				out = append(out, list[round])
			}
		}
	}
	return out
}

// dedupeURLs drops repeated URLs, keeping the first occurrence.
func dedupeURLs(list []domain.ImageCandidate) []domain.ImageCandidate {
	seen := make(map[string]struct{}, len(list))
	out := list[:0:0]
	for _, c := range list {
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out
}
