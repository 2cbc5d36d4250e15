package screening

import (
	"strings"

	"github.com/banking/sanctions-screening/internal/domain"
)

// IdentityIndex maps a lower-cased name to every identity key indexed under it.
// It is read-only once built and safe for concurrent lookups.
type IdentityIndex struct {
	names map[string][]string
}

// BuildIndex indexes, per record, the first name, the second name, the full name and
// every alias. Empty strings are skipped. Homonyms accumulate; nothing is overwritten.
func BuildIndex(records []domain.IdentityRecord) *IdentityIndex {
	idx := &IdentityIndex{names: make(map[string][]string, len(records)*4)}
	for i := range records {
		r := &records[i]
		idx.add(r.FirstName, r.DataID)
		idx.add(r.SecondName, r.DataID)
		idx.add(r.FullName, r.DataID)
		for _, alias := range r.AliasNames {
			idx.add(alias, r.DataID)
		}
	}
	return idx
}

// add appends key under name. A record that repeats a string across its own
// fields is indexed once for that string.
func (idx *IdentityIndex) add(name, key string) {
	if name == "" {
		return
	}
	normalized := strings.ToLower(name)
	keys := idx.names[normalized]
	for _, k := range keys {
		if k == key {
			return
		}
	}
	idx.names[normalized] = append(keys, key)
}

// Lookup returns the identity keys indexed under name, compared case-insensitively.
// The returned slice must not be modified.
func (idx *IdentityIndex) Lookup(name string) []string {
	return idx.names[strings.ToLower(name)]
}

// Len returns the number of distinct normalized names
func (idx *IdentityIndex) Len() int {
	return len(idx.names)
}
