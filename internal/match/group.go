package match

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/clinic-pipeline/internal/model"
)

// Group is a connected component of duplicate clinics.
type Group struct {
	IDs   []int64  `json:"ids"`
	Pairs []Result `json:"pairs"`
}

// Matcher finds duplicate groups among active clinics.
type Matcher struct {
	cfg Config
}

// NewMatcher creates a Matcher with the given config.
func NewMatcher(cfg Config) *Matcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Matcher{cfg: cfg}
}

// Config returns the matcher configuration.
func (m *Matcher) Config() Config { return m.cfg }

// FindGroups scores every pair of active clinics and returns the connected
// components of the match graph with at least two members. Groups are
// ordered by their smallest ID and each group's IDs are ascending.
// Inactive clinics are ignored.
func (m *Matcher) FindGroups(ctx context.Context, clinics []*model.Clinic) ([]Group, error) {
	var active []features
	for _, c := range clinics {
		if c.IsActive {
			active = append(active, extract(c))
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].id < active[j].id })

	n := len(active)
	if n < 2 {
		return nil, nil
	}

	// Row i holds matches (i, j) for j > i; rows are written by one worker each.
	rows := make([][]Result, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for i := 0; i < n-1; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j := i + 1; j < n; j++ {
				r := scoreFeatures(active[i], active[j], m.cfg)
				if r.IsMatch(m.cfg.Threshold) {
					rows[i] = append(rows[i], r)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "match: score pairs")
	}

	index := make(map[int64]int, n)
	for i, f := range active {
		index[f.id] = i
	}

	uf := newUnionFind(n)
	var matches []Result
	for _, row := range rows {
		for _, r := range row {
			uf.union(index[r.LeftID], index[r.RightID])
			matches = append(matches, r)
		}
	}

	byRoot := make(map[int]*Group)
	var roots []int
	for i, f := range active {
		root := uf.find(i)
		grp, ok := byRoot[root]
		if !ok {
			grp = &Group{}
			byRoot[root] = grp
			roots = append(roots, root)
		}
		grp.IDs = append(grp.IDs, f.id)
	}
	for _, r := range matches {
		grp := byRoot[uf.find(index[r.LeftID])]
		grp.Pairs = append(grp.Pairs, r)
	}

	var groups []Group
	for _, root := range roots {
		if grp := byRoot[root]; len(grp.IDs) > 1 {
			groups = append(groups, *grp)
		}
	}

	zap.L().Info("match: duplicate groups found",
		zap.Int("active_clinics", n),
		zap.Int("matched_pairs", len(matches)),
		zap.Int("groups", len(groups)),
	)
	return groups, nil
}

// unionFind is a disjoint-set forest with path compression. The smaller
// index always becomes the root so component roots are stable.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
