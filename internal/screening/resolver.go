package screening

import (
	"sort"

	"github.com/banking/sanctions-screening/internal/domain"
)

// IdentityResolver turns matched identity keys into full detail joined with their evidence
type IdentityResolver interface {
	Resolve(keys []string, matches []domain.MatchRecord) []domain.SuspiciousIdentity
}

// WatchlistResolver resolves identities from a parsed watchlist held in memory
type WatchlistResolver struct {
	records []domain.IdentityRecord
	byKey   map[string]int
}

// NewWatchlistResolver indexes records by identity key. When a key repeats, the first
// record wins, matching how list order is reported.
func NewWatchlistResolver(records []domain.IdentityRecord) *WatchlistResolver {
	byKey := make(map[string]int, len(records))
	for i := range records {
		if _, ok := byKey[records[i].DataID]; !ok {
			byKey[records[i].DataID] = i
		}
	}
	return &WatchlistResolver{records: records, byKey: byKey}
}

// Resolve returns one SuspiciousIdentity per known key, in watchlist order, each carrying
// every match whose identity key equals its own. Unknown keys are dropped.
func (r *WatchlistResolver) Resolve(keys []string, matches []domain.MatchRecord) []domain.SuspiciousIdentity {
	if len(keys) == 0 {
		return []domain.SuspiciousIdentity{}
	}

	linked := make(map[string][]domain.MatchRecord, len(keys))
	for _, m := range matches {
		linked[m.IdentityKey] = append(linked[m.IdentityKey], m)
	}

	positions := make([]int, 0, len(keys))
	seen := make(map[int]struct{}, len(keys))
	for _, k := range keys {
		pos, ok := r.byKey[k]
		if !ok {
			continue
		}
		if _, dup := seen[pos]; dup {
			continue
		}
		seen[pos] = struct{}{}
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	out := make([]domain.SuspiciousIdentity, 0, len(positions))
	for _, pos := range positions {
		rec := r.records[pos]
		clientMatches := linked[rec.DataID]
		if clientMatches == nil {
			clientMatches = []domain.MatchRecord{}
		}
		out = append(out, domain.SuspiciousIdentity{
			IdentityRecord: rec,
			ClientMatches:  clientMatches,
		})
	}
	return out
}
