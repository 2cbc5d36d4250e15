package screening

import (
	"github.com/banking/sanctions-screening/internal/domain"
)

// MatchResult is the output of one matcher pass
type MatchResult struct {
	// MatchedKeys holds each matched identity key once, in order of first hit
	MatchedKeys []string
	// Matches is the full evidence ledger; duplicates per (client, identity) are kept
	Matches []domain.MatchRecord
}

// KeySet returns the matched identity keys as a set
func (r *MatchResult) KeySet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.MatchedKeys))
	for _, k := range r.MatchedKeys {
		set[k] = struct{}{}
	}
	return set
}

// FindMatches probes the index with every candidate of every client. Clients are visited
// in roster order and candidates in set order, so the ledger is reproducible.
// A nil index is a programming error and panics.
func FindMatches(combos *ClientCombinations, index *IdentityIndex) *MatchResult {
	if index == nil {
		panic("screening: FindMatches called with nil index")
	}

	result := &MatchResult{
		MatchedKeys: make([]string, 0),
		Matches:     make([]domain.MatchRecord, 0),
	}
	if combos == nil {
		return result
	}

	seen := make(map[string]struct{})
	for _, sn := range combos.order {
		entry := combos.entries[sn]
		for _, candidate := range entry.Candidates {
			for _, key := range index.Lookup(candidate) {
				if _, ok := seen[key]; !ok {
					seen[key] = struct{}{}
					result.MatchedKeys = append(result.MatchedKeys, key)
				}
				result.Matches = append(result.Matches, domain.MatchRecord{
					ClientSN:     sn,
					ClientName:   entry.Officer,
					MatchedCombo: candidate,
					IdentityKey:  key,
				})
			}
		}
	}
	return result
}
