// Package swap computes the anonymous assignment of submissions to
// recipients: a derangement over the set of submitting authors, plus the
// transposition operations used for teacher reassignment and student
// re-swap requests.
package swap

import (
	"errors"
	"math/rand"
	"sort"
)

// maxRetries bounds rejection sampling before falling back to the
// deterministic fix-up sweep. Keeps the result close to uniform over
// derangements while guaranteeing termination.
const maxRetries = 16

var (
	// ErrTooFewAuthors: a pool of size < 2 cannot form a derangement
	// without self-assignment.
	ErrTooFewAuthors = errors.New("derangement requires at least 2 authors")

	// ErrNoSwapPartner: no transposition partner keeps both entries
	// free of self-assignment.
	ErrNoSwapPartner = errors.New("no eligible swap partner")
)

// Derange returns a mapping author -> recipient over the given set with no
// fixed points. Both sides of the mapping range over the same set: every
// author is also a recipient exactly once. Input order is irrelevant.
func Derange(authors []string, rng *rand.Rand) (map[string]string, error) {
	n := len(authors)
	if n < 2 {
		return nil, ErrTooFewAuthors
	}

	// Sort for determinism under a seeded source; the shuffle below is the
	// only randomness.
	pool := make([]string, n)
	copy(pool, authors)
	sort.Strings(pool)

	if n == 2 {
		// The only derangement of 2 elements is the swap.
		return map[string]string{
			pool[0]: pool[1],
			pool[1]: pool[0],
		}, nil
	}

	var fallback []int
	for attempt := 0; attempt < maxRetries; attempt++ {
		perm := rng.Perm(n)
		if hasFixedPoint(perm) {
			continue
		}
		if !hasReciprocalPair(perm) {
			return buildMapping(pool, perm), nil
		}
		// Fixed-point-free but contains an A<->B pair; keep as fallback and
		// try for a cleaner sample. Reciprocal avoidance is best-effort only.
		if fallback == nil {
			fallback = perm
		}
	}
	if fallback != nil {
		return buildMapping(pool, fallback), nil
	}

	// Deterministic fix-up: swap each fixed point with another position.
	// Each swap strictly reduces the fixed-point count, so this terminates.
	perm := rng.Perm(n)
	for {
		i := firstFixedPoint(perm)
		if i < 0 {
			break
		}
		j := rng.Intn(n - 1)
		if j >= i {
			j++
		}
		perm[i], perm[j] = perm[j], perm[i]
	}
	return buildMapping(pool, perm), nil
}

// Pair is one distribution entry in recipient-identity space, used by the
// transposition search.
type Pair struct {
	Recipient string
	Author    string
	Content   string
}

// FindSwapPartner picks an index j != i such that exchanging the authors of
// pairs[i] and pairs[j] leaves both entries free of self-assignment.
// Candidates are tried in random order. When avoidContent is non-empty,
// partners whose content equals it are preferred against but not excluded:
// if the only valid partners carry that content, the constraint is waived.
func FindSwapPartner(pairs []Pair, i int, avoidContent string, rng *rand.Rand) (int, error) {
	if i < 0 || i >= len(pairs) || len(pairs) < 2 {
		return -1, ErrNoSwapPartner
	}

	waived := -1
	for _, j := range rng.Perm(len(pairs)) {
		if j == i {
			continue
		}
		// Both post-swap entries must be checked explicitly: a transposition
		// of a derangement stays a derangement only if neither element ends
		// up mapped to itself.
		if pairs[j].Author == pairs[i].Recipient || pairs[i].Author == pairs[j].Recipient {
			continue
		}
		if avoidContent != "" && pairs[j].Content == avoidContent {
			if waived < 0 {
				waived = j
			}
			continue
		}
		return j, nil
	}
	if waived >= 0 {
		return waived, nil
	}
	return -1, ErrNoSwapPartner
}

// Transpose exchanges the authors and contents of pairs[i] and pairs[j]
// in place. Recipients stay put; what moves is what they received.
func Transpose(pairs []Pair, i, j int) {
	pairs[i].Author, pairs[j].Author = pairs[j].Author, pairs[i].Author
	pairs[i].Content, pairs[j].Content = pairs[j].Content, pairs[i].Content
}

func buildMapping(pool []string, perm []int) map[string]string {
	m := make(map[string]string, len(pool))
	for i, p := range perm {
		m[pool[i]] = pool[p]
	}
	return m
}

func hasFixedPoint(perm []int) bool {
	return firstFixedPoint(perm) >= 0
}

func firstFixedPoint(perm []int) int {
	for i, p := range perm {
		if i == p {
			return i
		}
	}
	return -1
}

func hasReciprocalPair(perm []int) bool {
	for i, p := range perm {
		if perm[p] == i {
			return true
		}
	}
	return false
}
