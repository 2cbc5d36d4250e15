package screening

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxNameTokens bounds permutation expansion when no limit is configured
	DefaultMaxNameTokens = 6
	// HardMaxNameTokens is the largest configurable limit (8 tokens yields 109,600 candidates)
	HardMaxNameTokens = 8
)

// ErrNameTooComplex is returned when a name has more distinct tokens than the permutation bound
var ErrNameTooComplex = errors.New("name too complex to fully permute")

// CandidateSet is the ordered set of name strings generated from one raw name.
// Order is longest first, then lexicographic; it carries no matching semantics.
type CandidateSet []string

// CandidateGenerator expands raw names into candidate sets
type CandidateGenerator struct {
	maxTokens int
}

// NewCandidateGenerator creates a generator that refuses names above maxTokens distinct tokens.
// Values outside 1..HardMaxNameTokens are clamped.
func NewCandidateGenerator(maxTokens int) *CandidateGenerator {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxNameTokens
	}
	if maxTokens > HardMaxNameTokens {
		maxTokens = HardMaxNameTokens
	}
	return &CandidateGenerator{maxTokens: maxTokens}
}

// MaxTokens returns the configured permutation bound
func (g *CandidateGenerator) MaxTokens() int {
	return g.maxTokens
}

// TooComplexError carries the token count of a refused name
type TooComplexError struct {
	Tokens int
	Limit  int
}

func (e *TooComplexError) Error() string {
	return fmt.Sprintf("%s: %d distinct tokens exceeds limit of %d", ErrNameTooComplex, e.Tokens, e.Limit)
}

func (e *TooComplexError) Unwrap() error {
	return ErrNameTooComplex
}

// Generate returns every candidate for rawName: each token, every ordered arrangement
// of every multi-token subset, and the named first/middle/last variations.
// Empty or whitespace-only input yields an empty set.
func (g *CandidateGenerator) Generate(rawName string) (CandidateSet, error) {
	tokens := Tokenize(rawName)
	if len(tokens) == 0 {
		return CandidateSet{}, nil
	}
	if len(tokens) == 1 {
		return CandidateSet{tokens[0]}, nil
	}
	if len(tokens) > g.maxTokens {
		return nil, &TooComplexError{Tokens: len(tokens), Limit: g.maxTokens}
	}

	seen := make(map[string]struct{}, permutationCount(len(tokens)))
	permute(tokens, seen)
	for _, v := range namedVariations(tokens) {
		seen[v] = struct{}{}
	}

	out := make(CandidateSet, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sortCandidates(out)
	return out, nil
}

// Tokenize splits on whitespace and drops repeated tokens, keeping first-seen order
func Tokenize(rawName string) []string {
	fields := strings.Fields(rawName)
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	tokens := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

// permute adds every arrangement of length 1..k of distinct tokens to out
func permute(tokens []string, out map[string]struct{}) {
	used := make([]bool, len(tokens))
	path := make([]string, 0, len(tokens))

	var walk func()
	walk = func() {
		for i, t := range tokens {
			if used[i] {
				continue
			}
			used[i] = true
			path = append(path, t)
			out[strings.Join(path, " ")] = struct{}{}
			walk()
			path = path[:len(path)-1]
			used[i] = false
		}
	}
	walk()
}

func namedVariations(tokens []string) []string {
	first, last := tokens[0], tokens[len(tokens)-1]
	variations := []string{
		first + " " + last,
		last + " " + first,
	}
	if len(tokens) >= 3 {
		middle := tokens[1]
		variations = append(variations,
			first+" "+middle,
			middle+" "+last,
			first+" "+middle+" "+last,
			last+" "+first+" "+middle,
			last+" "+middle+" "+first,
		)
	}
	return variations
}

// permutationCount returns sum over r=1..k of k!/(k-r)!
func permutationCount(k int) int {
	total, term := 0, 1
	for r := 1; r <= k; r++ {
		term *= k - r + 1
		total += term
	}
	return total
}

func sortCandidates(c CandidateSet) {
	sort.Slice(c, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(c[i]), utf8.RuneCountInString(c[j])
		if li != lj {
			return li > lj
		}
		return c[i] < c[j]
	})
}
