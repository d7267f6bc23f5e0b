package impute

import "sort"

// ballot is one neighbour's vote.
type ballot struct {
	label    string
	distance float64
}

// modalVote returns the most frequent label. Ties go to the label whose
// voters have the smallest mean distance, then to the lexically smaller
// label. count is the winner's number of votes.
func modalVote(ballots []ballot) (winner string, count int) {
	type tally struct {
		label string
		votes int
		sum   float64
	}
	byLabel := make(map[string]*tally)
	var order []*tally
	for _, b := range ballots {
		t, ok := byLabel[b.label]
		if !ok {
			t = &tally{label: b.label}
			byLabel[b.label] = t
			order = append(order, t)
		}
		t.votes++
		t.sum += b.distance
	}
	if len(order) == 0 {
		return "", 0
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.votes != b.votes {
			return a.votes > b.votes
		}
		ma, mb := a.sum/float64(a.votes), b.sum/float64(b.votes)
		if ma != mb {
			return ma < mb
		}
		return a.label < b.label
	})
	return order[0].label, order[0].votes
}
