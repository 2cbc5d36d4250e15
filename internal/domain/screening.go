package domain

import (
	"time"

	"github.com/google/uuid"
)

// MatchRecord is one piece of evidence linking a client to a watchlist identity.
// The same (client, identity) pair may appear once per matching candidate.
type MatchRecord struct {
	ClientSN     string `json:"client_sn"`
	ClientName   string `json:"client_name"`
	MatchedCombo string `json:"matched_combo"`
	IdentityKey  string `json:"un_dataid"`
}

// SkipReason explains why a roster row was not screened
type SkipReason string

const (
	SkipReasonNameTooComplex SkipReason = "NAME_TOO_COMPLEX"
)

// SkippedName records a roster officer name that was not expanded into candidates
type SkippedName struct {
	ClientSN   string     `json:"client_sn"`
	Officer    string     `json:"officer"`
	TokenCount int        `json:"token_count"`
	Reason     SkipReason `json:"reason"`
}

// SuspiciousIdentity is a watchlist identity joined with every match that points at it
type SuspiciousIdentity struct {
	IdentityRecord
	ClientMatches []MatchRecord `json:"client_matches"`
}

// ScreeningRun represents the outcome of screening one roster against one watchlist
type ScreeningRun struct {
	ID            uuid.UUID `json:"id"`
	WatchlistHash string    `json:"watchlist_hash,omitempty"`

	ClientsScreened  int `json:"clients_screened"`
	CandidatesTested int `json:"candidates_tested"`
	IndexSize        int `json:"index_size"`

	MatchedIdentityKeys  []string             `json:"matched_identity_keys"`
	Matches              []MatchRecord        `json:"matches"`
	SuspiciousIdentities []SuspiciousIdentity `json:"suspicious_identities"`
	SuspiciousClients    []ClientRecord       `json:"suspicious_clients"`
	Skipped              []SkippedName        `json:"skipped,omitempty"`

	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasMatches returns true if any client matched the watchlist
func (r *ScreeningRun) HasMatches() bool {
	return len(r.Matches) > 0
}

// SuspiciousSerials returns the distinct client serial numbers that matched, in ledger order
func (r *ScreeningRun) SuspiciousSerials() []string {
	seen := make(map[string]struct{}, len(r.Matches))
	serials := make([]string, 0)
	for _, m := range r.Matches {
		if _, ok := seen[m.ClientSN]; ok {
			continue
		}
		seen[m.ClientSN] = struct{}{}
		serials = append(serials, m.ClientSN)
	}
	return serials
}
