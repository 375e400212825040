// Package correlate links each creator to its most similar peers by category
// and shared vocabulary.
package correlate

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/elonfeng/playaura/pkg/creator"
)

// Scoring constants.
const (
	sameCategoryScore = 5
	sharedTokenScore  = 2
	minTokenRunes     = 3
)

// Config bounds a correlation run.
type Config struct {
	// MaxCreators skips correlation entirely above this set size.
	MaxCreators int `yaml:"max_creators"`
	// MaxRelated is the number of related ids kept per creator.
	MaxRelated int `yaml:"max_related"`
	// MinScore discards candidates scoring at or below it.
	MinScore int `yaml:"min_score"`
}

// DefaultConfig returns 500 creators, 3 related ids and a cutoff of 3.
func DefaultConfig() Config {
	return Config{MaxCreators: 500, MaxRelated: 3, MinScore: 3}
}

// Candidate is another creator with its similarity to the subject.
type Candidate struct {
	ID    string
	Score int
}

// Index holds the token sets of one creator snapshot, built once per run.
type Index struct {
	creators []creator.Creator
	tokens   []map[string]struct{}
}

// NewIndex tokenizes every creator's name and description.
func NewIndex(creators []creator.Creator) *Index {
	idx := &Index{
		creators: creators,
		tokens:   make([]map[string]struct{}, len(creators)),
	}
	for i, c := range creators {
		idx.tokens[i] = Tokenize(c.Name + " " + c.Description)
	}
	return idx
}

// Len returns the number of indexed creators.
func (idx *Index) Len() int { return len(idx.creators) }

// Similarity scores the pair (i, j). The formula is symmetric.
func (idx *Index) Similarity(i, j int) int {
	score := 0
	if idx.creators[i].CategoryID == idx.creators[j].CategoryID {
		score += sameCategoryScore
	}

	a, b := idx.tokens[i], idx.tokens[j]
	if len(b) < len(a) {
		a, b = b, a
	}
	overlap := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			overlap++
		}
	}
	return score + overlap*sharedTokenScore
}

// Candidates returns every other creator ranked by descending similarity to
// creator i, before any cutoff. Ties keep input order.
func (idx *Index) Candidates(i int) []Candidate {
	out := make([]Candidate, 0, len(idx.creators))
	for j, other := range idx.creators {
		if j == i || other.ID == idx.creators[i].ID {
			continue
		}
		out = append(out, Candidate{ID: other.ID, Score: idx.Similarity(i, j)})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

// Correlator assigns related ids.
type Correlator struct {
	cfg Config
}

// New creates a correlator. A zero Config means DefaultConfig; otherwise
// non-positive MaxCreators and MaxRelated fall back to their defaults while
// MinScore is taken as given, so zero relates any creators that share a token.
func New(cfg Config) *Correlator {
	def := DefaultConfig()
	if cfg == (Config{}) {
		cfg = def
	}
	if cfg.MaxCreators <= 0 {
		cfg.MaxCreators = def.MaxCreators
	}
	if cfg.MaxRelated <= 0 {
		cfg.MaxRelated = def.MaxRelated
	}
	cfg.MinScore = max(cfg.MinScore, 0)
	return &Correlator{cfg: cfg}
}

// Skips reports whether a set of n creators exceeds the size guard.
func (c *Correlator) Skips(n int) bool { return n > c.cfg.MaxCreators }

// Correlate returns copies of creators with RelatedIDs filled in. Above the
// size guard every creator gets an empty, non-nil list.
func (c *Correlator) Correlate(creators []creator.Creator) []creator.Creator {
	out := make([]creator.Creator, len(creators))
	copy(out, creators)

	if c.Skips(len(creators)) {
		for i := range out {
			out[i].RelatedIDs = []string{}
		}
		return out
	}

	idx := NewIndex(creators)
	for i := range out {
		related := make([]string, 0, c.cfg.MaxRelated)
		for _, cand := range idx.Candidates(i) {
			if len(related) == c.cfg.MaxRelated {
				break
			}
			if cand.Score <= c.cfg.MinScore {
				break
			}
			related = append(related, cand.ID)
		}
		out[i].RelatedIDs = related
	}
	return out
}

// Tokenize returns the set of lowercase letter/digit runs of at least three
// runes in s, after NFKC normalization.
func Tokenize(s string) map[string]struct{} {
	s = strings.ToLower(norm.NFKC.String(s))
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) >= minTokenRunes {
			set[w] = struct{}{}
		}
	}
	return set
}
