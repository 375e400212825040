// Package graph positions the creator correlation graph with a damped
// force-directed relaxation.
package graph

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/elonfeng/playaura/pkg/creator"
)

// Node is a creator with its layout state.
type Node struct {
	creator.Creator
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	VX   float64 `json:"vx"`
	VY   float64 `json:"vy"`
	Size float64 `json:"size"`
}

// Link is an unordered pair of creator ids.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Params tune the simulation.
type Params struct {
	MaxNodes      int     `yaml:"max_nodes"`
	MinSize       float64 `yaml:"min_size"`
	MaxSize       float64 `yaml:"max_size"`
	BaseRadius    float64 `yaml:"base_radius"`
	RadiusStep    float64 `yaml:"radius_step"`
	Centering     float64 `yaml:"centering"`
	RepelScale    float64 `yaml:"repel_scale"`
	RepelPadding  float64 `yaml:"repel_padding"`
	RepelStrength float64 `yaml:"repel_strength"`
	LinkDistance  float64 `yaml:"link_distance"`
	LinkStrength  float64 `yaml:"link_strength"`
	MaxStep       float64 `yaml:"max_step"`
	Damping       float64 `yaml:"damping"`
	// Jitter perturbs initial positions by up to ±Jitter using the layout's
	// random source. Zero keeps the pure spiral.
	Jitter float64 `yaml:"jitter"`
}

// DefaultParams returns the stock simulation constants.
func DefaultParams() Params {
	return Params{
		MaxNodes:      50,
		MinSize:       60,
		MaxSize:       180,
		BaseRadius:    350,
		RadiusStep:    20,
		Centering:     0.005,
		RepelScale:    0.7,
		RepelPadding:  60,
		RepelStrength: 0.04,
		LinkDistance:  200,
		LinkStrength:  0.01,
		MaxStep:       10,
		Damping:       0.9,
	}
}

// Layout is one simulation. Ticks must not run concurrently.
type Layout struct {
	p     Params
	nodes []Node
	links []Link
	// adj[i] lists node indices linked to i.
	adj   [][]int
	ticks int
}

// New seeds a layout with the top creators by hot score. rng may be nil when
// Params.Jitter is zero.
func New(creators []creator.Creator, p Params, rng *rand.Rand) *Layout {
	p = withDefaults(p)

	top := make([]creator.Creator, len(creators))
	copy(top, creators)
	sort.SliceStable(top, func(i, j int) bool { return top[i].HotScore > top[j].HotScore })
	if len(top) > p.MaxNodes {
		top = top[:p.MaxNodes]
	}

	l := &Layout{p: p, nodes: make([]Node, len(top)), adj: make([][]int, len(top))}
	if len(top) == 0 {
		return l
	}

	minS, maxS := top[0].HotScore, top[0].HotScore
	for _, c := range top {
		minS = min(minS, c.HotScore)
		maxS = max(maxS, c.HotScore)
	}
	scoreRange := float64(maxS - minS)
	if scoreRange == 0 {
		scoreRange = 1
	}

	n := float64(len(top))
	pos := make(map[string]int, len(top))
	for i, c := range top {
		angle := float64(i) / n * 2 * math.Pi
		radius := p.BaseRadius + float64(i)*p.RadiusStep
		rel := float64(c.HotScore-minS) / scoreRange
		node := Node{
			Creator: c,
			X:       math.Cos(angle) * radius,
			Y:       math.Sin(angle) * radius,
			Size:    p.MinSize + rel*(p.MaxSize-p.MinSize),
		}
		if p.Jitter > 0 && rng != nil {
			node.X += (rng.Float64()*2 - 1) * p.Jitter
			node.Y += (rng.Float64()*2 - 1) * p.Jitter
		}
		l.nodes[i] = node
		pos[c.ID] = i
	}

	seen := make(map[[2]int]bool)
	for i, c := range top {
		for _, rel := range c.RelatedIDs {
			j, ok := pos[rel]
			if !ok || j == i {
				continue
			}
			key := [2]int{min(i, j), max(i, j)}
			if seen[key] {
				continue
			}
			seen[key] = true
			l.links = append(l.links, Link{Source: c.ID, Target: rel})
			l.adj[i] = append(l.adj[i], j)
			l.adj[j] = append(l.adj[j], i)
		}
	}
	return l
}

// Tick advances the simulation by one step. Forces are computed from the
// previous tick's positions, then every node is integrated.
func (l *Layout) Tick() {
	p := l.p
	prev := make([]Node, len(l.nodes))
	copy(prev, l.nodes)

	for i := range l.nodes {
		cur := prev[i]
		vx, vy := cur.VX, cur.VY

		vx += -cur.X * p.Centering
		vy += -cur.Y * p.Centering

		for j, other := range prev {
			if i == j {
				continue
			}
			dx, dy := other.X-cur.X, other.Y-cur.Y
			if dx == 0 && dy == 0 {
				// coincident: separate along x by index order
				dx = float64(j - i)
			}
			dist := math.Hypot(dx, dy)
			minDist := (cur.Size+other.Size)*p.RepelScale + p.RepelPadding
			if dist < minDist {
				force := (minDist - dist) * p.RepelStrength
				vx -= dx / dist * force
				vy -= dy / dist * force
			}
		}

		for _, j := range l.adj[i] {
			other := prev[j]
			dx, dy := other.X-cur.X, other.Y-cur.Y
			if math.Hypot(dx, dy) > p.LinkDistance {
				vx += dx * p.LinkStrength
				vy += dy * p.LinkStrength
			}
		}

		vx = clamp(vx, -p.MaxStep, p.MaxStep)
		vy = clamp(vy, -p.MaxStep, p.MaxStep)

		n := &l.nodes[i]
		n.X = cur.X + vx
		n.Y = cur.Y + vy
		n.VX = vx * p.Damping
		n.VY = vy * p.Damping
	}
	l.ticks++
}

// Step runs n ticks synchronously.
func (l *Layout) Step(n int) {
	for i := 0; i < n; i++ {
		l.Tick()
	}
}

// Run ticks every interval until ctx is done, handing each frame to onTick.
// onTick receives a copy and may retain it.
func (l *Layout) Run(ctx context.Context, interval time.Duration, onTick func([]Node)) error {
	if interval <= 0 {
		interval = time.Second / 60
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			l.Tick()
			if onTick != nil {
				onTick(l.Nodes())
			}
		}
	}
}

// Nodes returns a copy of the current node states.
func (l *Layout) Nodes() []Node {
	out := make([]Node, len(l.nodes))
	copy(out, l.nodes)
	return out
}

// Links returns the deduplicated links among the active nodes.
func (l *Layout) Links() []Link {
	out := make([]Link, len(l.links))
	copy(out, l.links)
	return out
}

// Ticks returns how many ticks have run.
func (l *Layout) Ticks() int { return l.ticks }

// withDefaults fills unusable values from DefaultParams. A zero Params is
// DefaultParams. Force strengths, spacing and damping accept zero, which
// switches that force off; only negative values are replaced.
func withDefaults(p Params) Params {
	d := DefaultParams()
	if p == (Params{}) {
		return d
	}
	if p.MaxNodes <= 0 {
		p.MaxNodes = d.MaxNodes
	}
	if p.MinSize <= 0 {
		p.MinSize = d.MinSize
	}
	if p.MaxSize <= p.MinSize {
		p.MaxSize = p.MinSize + (d.MaxSize - d.MinSize)
	}
	if p.BaseRadius <= 0 {
		p.BaseRadius = d.BaseRadius
	}
	if p.MaxStep <= 0 || math.IsInf(p.MaxStep, 0) {
		p.MaxStep = d.MaxStep
	}
	for _, f := range []struct{ v, def *float64 }{
		{&p.RadiusStep, &d.RadiusStep},
		{&p.Centering, &d.Centering},
		{&p.RepelScale, &d.RepelScale},
		{&p.RepelPadding, &d.RepelPadding},
		{&p.RepelStrength, &d.RepelStrength},
		{&p.LinkDistance, &d.LinkDistance},
		{&p.LinkStrength, &d.LinkStrength},
	} {
		if *f.v < 0 || math.IsNaN(*f.v) {
			*f.v = *f.def
		}
	}
	if p.Damping < 0 || p.Damping >= 1 || math.IsNaN(p.Damping) {
		p.Damping = d.Damping
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}
