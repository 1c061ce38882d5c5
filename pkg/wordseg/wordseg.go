// Package wordseg segments concatenated lowercase text ("thetemplarlegacy")
// into probable words using a unigram cost model over an embedded
// frequency-ranked wordlist. Splitting is best effort and total: text that
// cannot be segmented comes back as a single word.
package wordseg

import (
	_ "embed"
	"math"
	"strings"
	"sync"
)

//go:embed words.txt
var wordData string

// unknownRuneCost bridges out-of-vocabulary runes. It dwarfs every word
// cost so known words always win, and adjacent unknown runes are merged
// back into one token during backtracking.
const unknownRuneCost = 1e3

// Splitter holds per-word costs derived from wordlist rank. Common words
// are cheap, rare words expensive, so a Viterbi pass over the costs picks
// the most plausible segmentation.
type Splitter struct {
	costs   map[string]float64
	maxWord int
}

var (
	defaultOnce     sync.Once
	defaultSplitter *Splitter
)

// New returns the Splitter backed by the embedded wordlist, built once
// per process.
func New() *Splitter {
	defaultOnce.Do(func() {
		defaultSplitter = NewFromWords(strings.Fields(wordData))
	})
	return defaultSplitter
}

// NewFromWords builds a Splitter from a frequency-ranked wordlist, most
// common word first.
func NewFromWords(words []string) *Splitter {
	s := &Splitter{costs: make(map[string]float64, len(words))}
	logN := math.Log(float64(len(words)) + 1)
	rank := 0
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := s.costs[w]; ok {
			continue
		}
		rank++
		s.costs[w] = math.Log(float64(rank) * logN)
		if n := len([]rune(w)); n > s.maxWord {
			s.maxWord = n
		}
	}
	return s
}

// Split segments text into probable words. The input is lowercased;
// unknown spans survive as single words rather than failing.
func (s *Splitter) Split(text string) []string {
	runes := []rune(strings.ToLower(text))
	n := len(runes)
	if n == 0 {
		return nil
	}

	costs := make([]float64, n+1)
	lens := make([]int, n+1)
	known := make([]bool, n+1)
	for i := 1; i <= n; i++ {
		// Single-rune bridge keeps the pass total for any input.
		costs[i] = costs[i-1] + unknownRuneCost
		lens[i] = 1
		known[i] = false

		maxLen := s.maxWord
		if maxLen > i {
			maxLen = i
		}
		for l := 1; l <= maxLen; l++ {
			wc, ok := s.costs[string(runes[i-l:i])]
			if !ok {
				continue
			}
			if c := costs[i-l] + wc; c < costs[i] {
				costs[i] = c
				lens[i] = l
				known[i] = true
			}
		}
	}

	var parts []string
	for i := n; i > 0; {
		if known[i] {
			l := lens[i]
			parts = append(parts, string(runes[i-l:i]))
			i -= l
			continue
		}
		// Merge a run of unknown single runes into one token.
		j := i
		for j > 0 && !known[j] {
			j -= lens[j]
		}
		parts = append(parts, string(runes[j:i]))
		i = j
	}

	for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
		parts[l], parts[r] = parts[r], parts[l]
	}
	return parts
}
