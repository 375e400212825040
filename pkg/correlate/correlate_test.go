package correlate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/playaura/pkg/creator"
)

func sampleCreators() []creator.Creator {
	return []creator.Creator{
		{ID: "a", CategoryID: "gaming", Name: "Pixel Pals", Description: "speedrun minecraft builds"},
		{ID: "b", CategoryID: "gaming", Name: "Block Lords", Description: "minecraft speedrun tutorials"},
		{ID: "c", CategoryID: "music", Name: "Lo Fi Cafe", Description: "lofi beats to study"},
		{ID: "d", CategoryID: "gaming", Name: "Retro Den", Description: "classic consoles"},
		{ID: "e", CategoryID: "music", Name: "Minecraft Music", Description: "minecraft soundtrack covers"},
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("The BEST   vlog-ASMR! 먹방 브이로그 go 2024 ｆｕｌｌｗｉｄｔｈ")
	assert.Equal(t, map[string]struct{}{
		"the":       {},
		"best":      {},
		"vlog":      {},
		"asmr":      {},
		"브이로그":      {},
		"2024":      {},
		"fullwidth": {},
	}, got)
}

func TestCorrelate(t *testing.T) {
	out := New(DefaultConfig()).Correlate(sampleCreators())
	require.Len(t, out, 5)

	related := map[string][]string{}
	for _, c := range out {
		related[c.ID] = c.RelatedIDs
	}

	// a-b: same category +5, "speedrun" and "minecraft" +4; a-e shares one
	// token only and falls under the cutoff
	assert.Equal(t, []string{"b", "d"}, related["a"])
	assert.Equal(t, []string{"a", "d"}, related["b"])
	// c-e: same category only
	assert.Equal(t, []string{"e"}, related["c"])
	assert.Equal(t, []string{"a", "b"}, related["d"])
	assert.Equal(t, []string{"c"}, related["e"])
}

func TestCorrelate_Invariants(t *testing.T) {
	var creators []creator.Creator
	for i := 0; i < 60; i++ {
		creators = append(creators, creator.Creator{
			ID:          fmt.Sprintf("c%02d", i),
			CategoryID:  []string{"gaming", "music", "tech"}[i%3],
			Name:        fmt.Sprintf("Channel %d", i%7),
			Description: "weekly reviews and highlights",
		})
	}

	for _, c := range New(Config{}).Correlate(creators) {
		assert.LessOrEqual(t, len(c.RelatedIDs), 3)
		assert.NotContains(t, c.RelatedIDs, c.ID)
	}
}

func TestCorrelate_DoesNotMutateInput(t *testing.T) {
	in := sampleCreators()
	_ = New(DefaultConfig()).Correlate(in)
	for _, c := range in {
		assert.Nil(t, c.RelatedIDs)
	}
}

func TestCorrelate_SizeGuard(t *testing.T) {
	creators := make([]creator.Creator, 501)
	for i := range creators {
		creators[i] = creator.Creator{ID: fmt.Sprintf("c%d", i), CategoryID: "gaming", Name: "same name here"}
	}

	c := New(DefaultConfig())
	require.True(t, c.Skips(len(creators)))

	out := c.Correlate(creators)
	require.Len(t, out, 501)
	for _, cr := range out {
		assert.NotNil(t, cr.RelatedIDs)
		assert.Empty(t, cr.RelatedIDs)
	}

	assert.False(t, c.Skips(500))
}

func TestCorrelate_CutoffDropsWeakPairs(t *testing.T) {
	out := New(DefaultConfig()).Correlate([]creator.Creator{
		{ID: "x", CategoryID: "tech", Name: "alpha"},
		{ID: "y", CategoryID: "music", Name: "alpha beta"},
	})
	// one shared token scores 2, at or below the cutoff
	assert.Empty(t, out[0].RelatedIDs)
	assert.Empty(t, out[1].RelatedIDs)
}

func TestIndex_NearDuplicatesAreMutualCandidates(t *testing.T) {
	creators := []creator.Creator{
		{ID: "p", CategoryID: "tech", Name: "Gadget Guru", Description: "honest smartphone reviews every week"},
		{ID: "q", CategoryID: "tech", Name: "Gadget Guide", Description: "honest smartphone reviews every weekend"},
		{ID: "r", CategoryID: "music", Name: "Piano Hour"},
	}
	idx := NewIndex(creators)

	assert.Equal(t, idx.Similarity(0, 1), idx.Similarity(1, 0))
	assert.Equal(t, "q", idx.Candidates(0)[0].ID)
	assert.Equal(t, "p", idx.Candidates(1)[0].ID)
	assert.Len(t, idx.Candidates(2), 2)
}

func TestNew_ZeroMinScoreIsHonoured(t *testing.T) {
	pair := []creator.Creator{
		{ID: "x", CategoryID: "tech", Name: "alpha"},
		{ID: "y", CategoryID: "music", Name: "alpha beta"},
	}

	out := New(Config{MaxCreators: 500, MaxRelated: 3, MinScore: 0}).Correlate(pair)
	assert.Equal(t, []string{"y"}, out[0].RelatedIDs)
	assert.Equal(t, []string{"x"}, out[1].RelatedIDs)

	assert.Equal(t, DefaultConfig(), New(Config{}).cfg)
	assert.Equal(t, 0, New(Config{MaxRelated: 1, MinScore: -4}).cfg.MinScore)
}
