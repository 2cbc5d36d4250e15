package screening

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/banking/sanctions-screening/internal/domain"
)

// ClientCombination holds the trimmed officer name of one client and its candidates
type ClientCombination struct {
	ClientSN   string
	Officer    string
	Candidates CandidateSet
}

// ClientCombinations is keyed by client serial number and iterates in the order
// each serial first appeared in the roster.
type ClientCombinations struct {
	order   []string
	entries map[string]ClientCombination
}

// Len returns the number of clients with candidates
func (c *ClientCombinations) Len() int {
	return len(c.order)
}

// Get returns the entry for a client serial number
func (c *ClientCombinations) Get(sn string) (ClientCombination, bool) {
	e, ok := c.entries[sn]
	return e, ok
}

// Entries returns all entries in roster order
func (c *ClientCombinations) Entries() []ClientCombination {
	out := make([]ClientCombination, 0, len(c.order))
	for _, sn := range c.order {
		out = append(out, c.entries[sn])
	}
	return out
}

// CandidateCount returns the total number of candidates across all clients
func (c *ClientCombinations) CandidateCount() int {
	n := 0
	for _, e := range c.entries {
		n += len(e.Candidates)
	}
	return n
}

// BuildClientCombinations generates candidates for every keyed roster row sequentially
func BuildClientCombinations(gen *CandidateGenerator, rows []domain.ClientRecord) (*ClientCombinations, []domain.SkippedName) {
	combos, skipped, _ := BuildClientCombinationsParallel(context.Background(), gen, rows, 1)
	return combos, skipped
}

// BuildClientCombinationsParallel is BuildClientCombinations with candidate generation spread
// over up to workers goroutines. Output is identical to the sequential form.
func BuildClientCombinationsParallel(
	ctx context.Context,
	gen *CandidateGenerator,
	rows []domain.ClientRecord,
	workers int,
) (*ClientCombinations, []domain.SkippedName, error) {
	// Last row wins per serial, first appearance fixes the position
	order := make([]string, 0, len(rows))
	officers := make(map[string]string, len(rows))
	for _, row := range rows {
		sn := row.Key()
		if sn == "" {
			continue
		}
		officer := strings.TrimSpace(row.Officer)
		if officer == "" {
			continue
		}
		if _, ok := officers[sn]; !ok {
			order = append(order, sn)
		}
		officers[sn] = officer
	}

	candidates := make([]CandidateSet, len(order))
	failures := make([]error, len(order))

	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, sn := range order {
		i, officer := i, officers[sn]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			candidates[i], failures[i] = gen.Generate(officer)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	combos := &ClientCombinations{
		order:   make([]string, 0, len(order)),
		entries: make(map[string]ClientCombination, len(order)),
	}
	var skipped []domain.SkippedName
	for i, sn := range order {
		officer := officers[sn]
		if failures[i] != nil {
			skipped = append(skipped, skippedName(sn, officer, failures[i]))
			continue
		}
		combos.order = append(combos.order, sn)
		combos.entries[sn] = ClientCombination{
			ClientSN:   sn,
			Officer:    officer,
			Candidates: candidates[i],
		}
	}
	return combos, skipped, nil
}

func skippedName(sn, officer string, err error) domain.SkippedName {
	s := domain.SkippedName{
		ClientSN: sn,
		Officer:  officer,
		Reason:   domain.SkipReasonNameTooComplex,
	}
	var tc *TooComplexError
	if errors.As(err, &tc) {
		s.TokenCount = tc.Tokens
	}
	return s
}

// CandidateBudget returns an upper bound on the candidates gen would produce for rows.
// Names above the token bound cost nothing since they are skipped.
func CandidateBudget(gen *CandidateGenerator, rows []domain.ClientRecord) int {
	total := 0
	for _, row := range rows {
		if !row.HasKey() {
			continue
		}
		n := len(Tokenize(row.Officer))
		if n > gen.MaxTokens() {
			continue
		}
		total += permutationCount(n)
	}
	return total
}
