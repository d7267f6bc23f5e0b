package geo

import "sort"

// Candidate is a clinic position eligible for a neighbour search.
type Candidate struct {
	ID    int64
	Point Point
}

// Neighbor is a candidate with its distance from the search target.
type Neighbor struct {
	ID             int64
	DistanceMeters float64
}

// Nearest returns up to k candidates closest to target, ordered by distance
// and then by ID so equal distances resolve the same way on every run.
// Candidates with invalid coordinates are skipped.
func Nearest(target Point, candidates []Candidate, k int) []Neighbor {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	all := make([]Neighbor, 0, len(candidates))
	for _, c := range candidates {
		if !c.Point.Valid() {
			continue
		}
		all = append(all, Neighbor{ID: c.ID, DistanceMeters: Haversine(target, c.Point)})
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].DistanceMeters != all[j].DistanceMeters {
			return all[i].DistanceMeters < all[j].DistanceMeters
		}
		return all[i].ID < all[j].ID
	})

	if len(all) > k {
		all = all[:k]
	}
	return all
}
