package utils

import (
	"sync"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Wheat", "wheat"},
		{"  WHEAT ", "wheat"},
		{"Muzaffarnagar", "muzaffarnagar"},
		{"Bāgpat", "bagpat"},
		{"Navi Mumbai", "navi mumbai"},
		{"Navi   Mumbai", "navi mumbai"},
		{"K.U.M. Samiti, Meerut", "kum samiti meerut"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeName(c.in); got != c.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeNameConcurrent(t *testing.T) {
	// Folding must be safe under parallel callers; concurrent price
	// queries normalize names on independent goroutines.
	inputs := []struct{ in, want string }{
		{"मुजफ्फरनगर", NormalizeName("मुजफ्फरनगर")},
		{"गेहूं", NormalizeName("गेहूं")},
		{"Bāgpat", "bagpat"},
		{"K.U.M. Samiti, Meerut", "kum samiti meerut"},
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c := inputs[i%len(inputs)]
				if got := NormalizeName(c.in); got != c.want {
					t.Errorf("NormalizeName(%q) = %q, want %q", c.in, got, c.want)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestNormalizeNameHindi(t *testing.T) {
	// Devanagari aliases must survive normalization well enough to match
	// themselves after the same treatment.
	a := NormalizeName("गेहूं")
	b := NormalizeName(" गेहूं ")
	if a == "" {
		t.Fatal("Hindi alias normalized to empty string")
	}
	if a != b {
		t.Errorf("normalization not stable for Hindi alias: %q vs %q", a, b)
	}
}
