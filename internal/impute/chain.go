// Package impute fills missing clinic fields through ordered strategy
// chains and records which strategy produced each value.
package impute

import (
	"strings"
)

// Method tags recorded in provenance.
const (
	MethodNeighborVote     = "neighbor-vote"
	MethodNameKeyword      = "name-keyword"
	MethodCategoryMap      = "category-map"
	MethodZipNeighborVote  = "zip-neighbor-vote"
	MethodDefault          = "default"
	MethodCrossSourceProxy = "cross-source-proxy"
	MethodPeerTypeZip      = "peer-type-zip"
	MethodNearestNeighbors = "nearest-neighbors"
	MethodPeerTypeCity     = "peer-type-city"
	MethodGlobalMean       = "global-mean"
)

// Miss explains why a strategy produced no value.
type Miss string

func (m Miss) Error() string { return string(m) }

// Miss reasons.
const (
	MissNoCoordinates      Miss = "no-coordinates"
	MissNoNeighbors        Miss = "no-neighbors"
	MissNoNeighborsInRange Miss = "no-neighbors-in-range"
	MissNoKeyword          Miss = "no-keyword"
	MissNoCategory         Miss = "no-category"
	MissNoZip              Miss = "no-zip"
	MissNoType             Miss = "no-type"
	MissNoOtherRating      Miss = "no-observed-other-rating"
	MissNoPeers            Miss = "no-peers"
	MissNoDefault          Miss = "no-default"
)

// Proposal is a candidate value for one field of one clinic.
type Proposal struct {
	Method         string
	Value          string  // text value for zip and type
	Rating         float64 // numeric value for ratings
	DistanceMeters *float64
	NeighborCount  int
	Confidence     float64
}

// Strategy is one stage of a chain. Run returns a Miss when it has no
// qualifying inputs for the target.
type Strategy struct {
	Method string
	Run    func(target Record, snap *Snapshot) (Proposal, error)
}

// Chain is an ordered list of strategies; the first hit wins.
type Chain []Strategy

// Attempt records a strategy that missed.
type Attempt struct {
	Method string `json:"method" yaml:"method"`
	Reason string `json:"reason" yaml:"reason"`
}

// Resolve runs the chain for target. ok is false when every stage missed,
// in which case attempts lists each miss in order.
func (c Chain) Resolve(target Record, snap *Snapshot) (p Proposal, attempts []Attempt, ok bool) {
	for _, s := range c {
		prop, err := s.Run(target, snap)
		if err != nil {
			attempts = append(attempts, Attempt{Method: s.Method, Reason: err.Error()})
			continue
		}
		prop.Method = s.Method
		return prop, attempts, true
	}
	return Proposal{}, attempts, false
}

// Methods lists the chain's method tags in order.
func (c Chain) Methods() []string {
	out := make([]string, len(c))
	for i, s := range c {
		out[i] = s.Method
	}
	return out
}

func (c Chain) String() string {
	return strings.Join(c.Methods(), " -> ")
}
