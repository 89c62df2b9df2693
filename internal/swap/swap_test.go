package swap

import (
	"math/rand"
	"testing"
)

func newRng(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestDerange_TooFewAuthors(t *testing.T) {
	tests := []struct {
		name    string
		authors []string
	}{
		{"empty", nil},
		{"single author", []string{"s1@school.edu"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Derange(tt.authors, newRng(1)); err != ErrTooFewAuthors {
				t.Errorf("Derange() error = %v, want %v", err, ErrTooFewAuthors)
			}
		})
	}
}

func TestDerange_TwoAuthorsIsSwap(t *testing.T) {
	// n=2 has exactly one derangement; no randomness involved.
	for seed := int64(0); seed < 5; seed++ {
		m, err := Derange([]string{"a", "b"}, newRng(seed))
		if err != nil {
			t.Fatalf("Derange() error = %v", err)
		}
		if m["a"] != "b" || m["b"] != "a" {
			t.Errorf("Derange() = %v, want a<->b swap", m)
		}
	}
}

func TestDerange_NoFixedPoints(t *testing.T) {
	authors := []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7"}
	for seed := int64(0); seed < 200; seed++ {
		m, err := Derange(authors, newRng(seed))
		if err != nil {
			t.Fatalf("seed %d: Derange() error = %v", seed, err)
		}
		for author, recipient := range m {
			if author == recipient {
				t.Fatalf("seed %d: author %q mapped to self", seed, author)
			}
		}
	}
}

func TestDerange_Totality(t *testing.T) {
	// Every author appears exactly once on each side of the mapping.
	authors := []string{"s1", "s2", "s3", "s4"}
	m, err := Derange(authors, newRng(42))
	if err != nil {
		t.Fatalf("Derange() error = %v", err)
	}
	if len(m) != len(authors) {
		t.Fatalf("Derange() produced %d entries, want %d", len(m), len(authors))
	}

	recipients := make(map[string]int)
	for _, r := range m {
		recipients[r]++
	}
	for _, a := range authors {
		if _, ok := m[a]; !ok {
			t.Errorf("author %q missing from mapping", a)
		}
		if recipients[a] != 1 {
			t.Errorf("recipient %q appears %d times, want 1", a, recipients[a])
		}
	}
}

func TestDerange_InputOrderIrrelevant(t *testing.T) {
	a := []string{"x", "y", "z"}
	b := []string{"z", "x", "y"}

	ma, err := Derange(a, newRng(7))
	if err != nil {
		t.Fatalf("Derange() error = %v", err)
	}
	mb, err := Derange(b, newRng(7))
	if err != nil {
		t.Fatalf("Derange() error = %v", err)
	}
	for k, v := range ma {
		if mb[k] != v {
			t.Errorf("mapping differs by input order: %q -> %q vs %q", k, v, mb[k])
		}
	}
}

func TestFindSwapPartner_PreservesDerangement(t *testing.T) {
	pairs := []Pair{
		{Recipient: "s1", Author: "s2", Content: "b"},
		{Recipient: "s2", Author: "s3", Content: "c"},
		{Recipient: "s3", Author: "s4", Content: "d"},
		{Recipient: "s4", Author: "s1", Content: "a"},
	}

	for i := range pairs {
		for seed := int64(0); seed < 50; seed++ {
			cp := make([]Pair, len(pairs))
			copy(cp, pairs)

			j, err := FindSwapPartner(cp, i, "", newRng(seed))
			if err != nil {
				t.Fatalf("i=%d seed=%d: FindSwapPartner() error = %v", i, seed, err)
			}
			if j == i {
				t.Fatalf("i=%d: partner is self", i)
			}
			Transpose(cp, i, j)
			for _, p := range cp {
				if p.Author == p.Recipient {
					t.Fatalf("i=%d j=%d: transposition created self-assignment: %+v", i, j, p)
				}
			}
		}
	}
}

func TestFindSwapPartner_SwapChangesExactlyTwoEntries(t *testing.T) {
	pairs := []Pair{
		{Recipient: "s1", Author: "s2", Content: "b"},
		{Recipient: "s2", Author: "s3", Content: "c"},
		{Recipient: "s3", Author: "s4", Content: "d"},
		{Recipient: "s4", Author: "s1", Content: "a"},
	}
	before := make([]Pair, len(pairs))
	copy(before, pairs)

	j, err := FindSwapPartner(pairs, 0, "", newRng(3))
	if err != nil {
		t.Fatalf("FindSwapPartner() error = %v", err)
	}
	Transpose(pairs, 0, j)

	changed := 0
	for k := range pairs {
		if pairs[k] != before[k] {
			changed++
		}
	}
	if changed != 2 {
		t.Errorf("transposition changed %d entries, want 2", changed)
	}
}

func TestFindSwapPartner_AvoidContentPreferred(t *testing.T) {
	// Partner s3 carries the relinquished content; s4's entry is preferred.
	pairs := []Pair{
		{Recipient: "s1", Author: "s2", Content: "dup"},
		{Recipient: "s2", Author: "s3", Content: "dup"},
		{Recipient: "s3", Author: "s4", Content: "fresh"},
		{Recipient: "s4", Author: "s1", Content: "a"},
	}
	for seed := int64(0); seed < 50; seed++ {
		j, err := FindSwapPartner(pairs, 0, "dup", newRng(seed))
		if err != nil {
			t.Fatalf("FindSwapPartner() error = %v", err)
		}
		if pairs[j].Content == "dup" {
			t.Errorf("seed %d: picked partner with avoided content", seed)
		}
	}
}

func TestFindSwapPartner_AvoidContentWaived(t *testing.T) {
	// Every eligible partner carries the avoided content; the constraint is
	// waived rather than failing the request.
	pairs := []Pair{
		{Recipient: "s1", Author: "s2", Content: "dup"},
		{Recipient: "s2", Author: "s3", Content: "dup"},
		{Recipient: "s3", Author: "s1", Content: "dup"},
	}
	j, err := FindSwapPartner(pairs, 0, "dup", newRng(1))
	if err != nil {
		t.Fatalf("FindSwapPartner() error = %v, want waived success", err)
	}
	if j == 0 {
		t.Errorf("partner is self")
	}
}

func TestFindSwapPartner_NoEligiblePartner(t *testing.T) {
	tests := []struct {
		name  string
		pairs []Pair
		i     int
	}{
		{
			name:  "single entry",
			pairs: []Pair{{Recipient: "s1", Author: "s2"}},
			i:     0,
		},
		{
			name: "only partner would self-assign",
			// Swapping the pair's authors hands each their own submission.
			pairs: []Pair{
				{Recipient: "s1", Author: "s2"},
				{Recipient: "s2", Author: "s1"},
			},
			i: 0,
		},
		{
			name:  "index out of range",
			pairs: []Pair{{Recipient: "s1", Author: "s2"}, {Recipient: "s2", Author: "s1"}},
			i:     5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FindSwapPartner(tt.pairs, tt.i, "", newRng(1)); err != ErrNoSwapPartner {
				t.Errorf("FindSwapPartner() error = %v, want %v", err, ErrNoSwapPartner)
			}
		})
	}
}
