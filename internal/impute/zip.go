package impute

import (
	"github.com/sells-group/clinic-pipeline/internal/geo"
)

// ZipChain is the geography-only chain for postal codes.
func ZipChain() Chain {
	return Chain{
		{Method: MethodNeighborVote, Run: zipNeighborVote},
	}
}

// zipNeighborVote takes the modal ZIP of the k nearest active clinics that
// have one. The nearest neighbour must lie within the configured range.
func zipNeighborVote(t Record, s *Snapshot) (Proposal, error) {
	if !t.HasGeo {
		return Proposal{}, MissNoCoordinates
	}
	cands, byID := s.candidates(t.ID, func(r Record) bool {
		return r.Active && r.Zip != ""
	})
	nb := geo.Nearest(t.Point, cands, s.cfg.ZipK)
	if len(nb) == 0 {
		return Proposal{}, MissNoNeighbors
	}
	if nb[0].DistanceMeters > s.cfg.ZipMaxDistanceMeters {
		return Proposal{}, MissNoNeighborsInRange
	}

	ballots := make([]ballot, len(nb))
	for i, n := range nb {
		ballots[i] = ballot{label: byID[n.ID].Zip, distance: n.DistanceMeters}
	}
	zip, votes := modalVote(ballots)
	nearest := nb[0].DistanceMeters

	return Proposal{
		Value:          zip,
		DistanceMeters: &nearest,
		NeighborCount:  len(nb),
		Confidence:     float64(votes) / float64(len(nb)),
	}, nil
}
