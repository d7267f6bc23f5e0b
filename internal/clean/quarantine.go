package clean

import (
	"sort"

	"github.com/sells-group/clinic-pipeline/internal/model"
)

func sortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].ClinicID != issues[j].ClinicID {
			return issues[i].ClinicID < issues[j].ClinicID
		}
		if issues[i].ReviewID != issues[j].ReviewID {
			return issues[i].ReviewID < issues[j].ReviewID
		}
		return issues[i].Field < issues[j].Field
	})
}

// Quarantine splits ds into the records a run may touch and the clinics
// held back because of clinic-level issues. Children of a held clinic are
// held with it; a review with its own issue is held alone. ds is not
// modified.
func Quarantine(ds *model.Dataset, issues []Issue) (runnable *model.Dataset, held []int64) {
	badClinic := make(map[int64]bool)
	badReview := make(map[int64]bool)
	for _, is := range issues {
		if is.ReviewID != 0 {
			badReview[is.ReviewID] = true
			continue
		}
		badClinic[is.ClinicID] = true
	}

	runnable = &model.Dataset{}
	for _, c := range ds.Clinics {
		if badClinic[c.ID] {
			held = append(held, c.ID)
			continue
		}
		runnable.Clinics = append(runnable.Clinics, c)
	}
	for _, r := range ds.Reviews {
		if badClinic[r.ClinicID] || badReview[r.ID] {
			continue
		}
		runnable.Reviews = append(runnable.Reviews, r)
	}
	for _, v := range ds.Visibility {
		if badClinic[v.ClinicID] {
			continue
		}
		runnable.Visibility = append(runnable.Visibility, v)
	}
	sort.Slice(held, func(i, j int) bool { return held[i] < held[j] })
	return runnable, held
}
