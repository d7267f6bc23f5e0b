package impute

import (
	"math"

	"github.com/sells-group/clinic-pipeline/internal/geo"
	"github.com/sells-group/clinic-pipeline/internal/model"
)

// RatingPrecision is the number of decimals imputed ratings are rounded to.
const RatingPrecision = 1

// RatingChain is the chain for the rating of the given source system.
func RatingChain(source string) Chain {
	return Chain{
		{Method: MethodCrossSourceProxy, Run: crossSourceProxy(source)},
		{Method: MethodPeerTypeZip, Run: peerTypeZip(source)},
		{Method: MethodNearestNeighbors, Run: nearestNeighbors(source)},
		{Method: MethodPeerTypeCity, Run: peerTypeCity(source)},
		{Method: MethodGlobalMean, Run: globalMean(source)},
	}
}

func otherSource(source string) string {
	if source == model.SourceGoogle {
		return model.SourceYelp
	}
	return model.SourceGoogle
}

// crossSourceProxy derives the rating from the other source's observed
// rating: Google runs offset above Yelp, so Google = Yelp + offset capped at
// the maximum and Yelp = Google - offset floored at the minimum.
func crossSourceProxy(source string) func(Record, *Snapshot) (Proposal, error) {
	return func(t Record, s *Snapshot) (Proposal, error) {
		other := otherSource(source)
		v := t.Rating(other)
		if v == nil || !t.Observed(other) {
			return Proposal{}, MissNoOtherRating
		}
		var r float64
		if source == model.SourceGoogle {
			r = math.Min(model.MaxRating, *v+s.cfg.RatingOffset)
		} else {
			r = math.Max(model.MinRating, *v-s.cfg.RatingOffset)
		}
		return Proposal{Rating: model.Round(r, RatingPrecision), Confidence: 0.85}, nil
	}
}

// peerTypeZip averages peers with the same type and ZIP.
func peerTypeZip(source string) func(Record, *Snapshot) (Proposal, error) {
	return func(t Record, s *Snapshot) (Proposal, error) {
		if t.Type == "" {
			return Proposal{}, MissNoType
		}
		if t.Zip == "" {
			return Proposal{}, MissNoZip
		}
		return peerMean(t, s, source, 0.7, func(r Record) bool {
			return r.Type == t.Type && r.Zip == t.Zip
		})
	}
}

// nearestNeighbors averages the k nearest clinics that have the rating,
// regardless of type or ZIP.
func nearestNeighbors(source string) func(Record, *Snapshot) (Proposal, error) {
	return func(t Record, s *Snapshot) (Proposal, error) {
		if !t.HasGeo {
			return Proposal{}, MissNoCoordinates
		}
		cands, byID := s.candidates(t.ID, func(r Record) bool {
			return r.Rating(source) != nil
		})
		nb := geo.Nearest(t.Point, cands, s.cfg.RatingK)
		if len(nb) == 0 {
			return Proposal{}, MissNoNeighbors
		}
		var sum float64
		for _, n := range nb {
			sum += *byID[n.ID].Rating(source)
		}
		farthest := nb[len(nb)-1].DistanceMeters
		return Proposal{
			Rating:         model.Round(sum/float64(len(nb)), RatingPrecision),
			DistanceMeters: &farthest,
			NeighborCount:  len(nb),
			Confidence:     0.6,
		}, nil
	}
}

// peerTypeCity averages peers of the same type, restricted to the target's
// city when it has one.
func peerTypeCity(source string) func(Record, *Snapshot) (Proposal, error) {
	return func(t Record, s *Snapshot) (Proposal, error) {
		if t.Type == "" {
			return Proposal{}, MissNoType
		}
		return peerMean(t, s, source, 0.5, func(r Record) bool {
			return r.Type == t.Type && (t.City == "" || r.City == t.City)
		})
	}
}

// globalMean averages every clinic that has the rating.
func globalMean(source string) func(Record, *Snapshot) (Proposal, error) {
	return func(t Record, s *Snapshot) (Proposal, error) {
		return peerMean(t, s, source, 0.3, func(Record) bool { return true })
	}
}

func peerMean(t Record, s *Snapshot, source string, confidence float64, keep func(Record) bool) (Proposal, error) {
	var sum float64
	var n int
	for _, r := range s.records {
		if r.ID == t.ID {
			continue
		}
		v := r.Rating(source)
		if v == nil || !keep(r) {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return Proposal{}, MissNoPeers
	}
	return Proposal{
		Rating:        model.Round(sum/float64(n), RatingPrecision),
		NeighborCount: n,
		Confidence:    confidence,
	}, nil
}
