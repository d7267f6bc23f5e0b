package merge

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/clinic-pipeline/internal/match"
	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
)

// GroupResult describes how one group was resolved.
type GroupResult struct {
	IDs                  []int64   `json:"ids"`
	PrimaryID            int64     `json:"primary_id,omitempty"`
	Deactivated          []int64   `json:"deactivated,omitempty"`
	ReviewsReassigned    int       `json:"reviews_reassigned"`
	VisibilityReassigned int       `json:"visibility_reassigned"`
	FieldsFilled         []string  `json:"fields_filled,omitempty"`
	Conflict             *Conflict `json:"conflict,omitempty"`
}

// Report summarizes a merge pass.
type Report struct {
	GroupsMerged         int           `json:"groups_merged"`
	RecordsDeactivated   int           `json:"records_deactivated"`
	ReviewsReassigned    int           `json:"reviews_reassigned"`
	VisibilityReassigned int           `json:"visibility_reassigned"`
	Conflicts            []Conflict    `json:"conflicts,omitempty"`
	Groups               []GroupResult `json:"groups,omitempty"`
}

// ChildrenReassigned is the total number of child records moved.
func (r Report) ChildrenReassigned() int {
	return r.ReviewsReassigned + r.VisibilityReassigned
}

// Resolver merges duplicate groups in a dataset.
type Resolver struct {
	now func() time.Time
}

// NewResolver creates a Resolver stamping UpdatedAt with the current time.
func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// children indexes child records by owning clinic.
type children struct {
	reviews    map[int64][]*model.Review
	visibility map[int64][]*model.VisibilityScore
}

func indexChildren(ds *model.Dataset) children {
	ch := children{
		reviews:    make(map[int64][]*model.Review),
		visibility: make(map[int64][]*model.VisibilityScore),
	}
	for _, rv := range ds.Reviews {
		ch.reviews[rv.ClinicID] = append(ch.reviews[rv.ClinicID], rv)
	}
	for _, v := range ds.Visibility {
		ch.visibility[v.ClinicID] = append(ch.visibility[v.ClinicID], v)
	}
	return ch
}

// Resolve merges each group into its primary. A group with conflicting
// source identifiers is flagged and left untouched; other groups proceed.
// Each group is applied all-or-nothing, ledger changes included.
//
// ds must hold every clinic and child record, not only the ones that were
// matched, so children of a deactivated record never keep a dangling owner.
// A nil ledger treats every value as observed.
func (r *Resolver) Resolve(ds *model.Dataset, groups []match.Group, ledger *provenance.Ledger) Report {
	var rep Report
	if ledger == nil {
		ledger = provenance.NewLedger()
	}
	byID := ds.ByID()
	ch := indexChildren(ds)
	active := activeSourceIndex(ds)

	for _, g := range groups {
		res := r.resolveGroup(byID, ch, active, ledger, g)
		rep.Groups = append(rep.Groups, res)
		if res.Conflict != nil {
			rep.Conflicts = append(rep.Conflicts, *res.Conflict)
			zap.L().Warn("merge: group flagged for review",
				zap.Int64s("clinic_ids", res.Conflict.ClinicIDs),
				zap.String("source", res.Conflict.Source),
				zap.String("reason", res.Conflict.Reason),
			)
			continue
		}
		rep.GroupsMerged++
		rep.RecordsDeactivated += len(res.Deactivated)
		rep.ReviewsReassigned += res.ReviewsReassigned
		rep.VisibilityReassigned += res.VisibilityReassigned
	}

	zap.L().Info("merge: groups resolved",
		zap.Int("groups", len(groups)),
		zap.Int("merged", rep.GroupsMerged),
		zap.Int("deactivated", rep.RecordsDeactivated),
		zap.Int("children_reassigned", rep.ChildrenReassigned()),
		zap.Int("conflicts", len(rep.Conflicts)),
	)
	return rep
}

func (r *Resolver) resolveGroup(byID map[int64]*model.Clinic, ch children, active sourceIndex, ledger *provenance.Ledger, g match.Group) GroupResult {
	res := GroupResult{IDs: g.IDs}

	members := make([]*model.Clinic, 0, len(g.IDs))
	for _, id := range g.IDs {
		c, ok := byID[id]
		if !ok || !c.IsActive {
			res.Conflict = &Conflict{ClinicIDs: g.IDs, Reason: ReasonMissingMember}
			return res
		}
		members = append(members, c)
	}

	if c := DetectConflicts(members); c != nil {
		res.Conflict = c
		return res
	}

	primary := SelectPrimary(members)
	now := r.now()

	// Stage every change on copies so a rejected group leaves no trace.
	staged := primary.Clone()
	prov := newLedgerStage(ledger, primary.ID)
	var retired []*model.Clinic
	for _, m := range members {
		if m.ID == primary.ID {
			continue
		}
		res.FieldsFilled = append(res.FieldsFilled, absorb(staged, m, prov)...)

		d := m.Clone()
		for _, src := range model.Sources() {
			d.SetSourceID(src, "")
		}
		d.IsActive = false
		pid := primary.ID
		d.MergedInto = &pid
		d.UpdatedAt = now
		retired = append(retired, d)
	}
	staged.UpdatedAt = now

	if c := active.collision(staged, g.IDs); c != nil {
		res.Conflict = c
		return res
	}

	for _, m := range members {
		active.release(m)
	}
	*primary = *staged
	prov.commit()
	active.claim(primary)
	res.PrimaryID = primary.ID
	for _, d := range retired {
		*byID[d.ID] = *d
		res.Deactivated = append(res.Deactivated, d.ID)

		for _, rv := range ch.reviews[d.ID] {
			rv.ClinicID = primary.ID
			res.ReviewsReassigned++
		}
		ch.reviews[primary.ID] = append(ch.reviews[primary.ID], ch.reviews[d.ID]...)
		delete(ch.reviews, d.ID)

		for _, v := range ch.visibility[d.ID] {
			v.ClinicID = primary.ID
			res.VisibilityReassigned++
		}
		ch.visibility[primary.ID] = append(ch.visibility[primary.ID], ch.visibility[d.ID]...)
		delete(ch.visibility, d.ID)
	}
	return res
}

// ledgerStage holds the primary's provenance changes until its group
// commits. A nil entry marks a field whose value is now observed.
type ledgerStage struct {
	ledger  *provenance.Ledger
	primary int64
	changes map[string]*provenance.Entry
}

func newLedgerStage(ledger *provenance.Ledger, primary int64) *ledgerStage {
	return &ledgerStage{ledger: ledger, primary: primary, changes: make(map[string]*provenance.Entry)}
}

// imputed reports whether clinicID's field holds an imputed value, seeing
// staged changes for the primary.
func (s *ledgerStage) imputed(clinicID int64, field string) bool {
	if clinicID == s.primary {
		if e, ok := s.changes[field]; ok {
			return e != nil
		}
	}
	return s.ledger.IsImputed(clinicID, field)
}

// take records that the primary's field now holds src's value, carrying
// src's entry along when that value was imputed.
func (s *ledgerStage) take(field string, src *model.Clinic) {
	e, ok := s.ledger.Lookup(src.ID, field)
	if !ok {
		s.changes[field] = nil
		return
	}
	e.ClinicID = s.primary
	s.changes[field] = &e
}

func (s *ledgerStage) commit() {
	for field, e := range s.changes {
		if e == nil {
			s.ledger.Delete(s.primary, field)
			continue
		}
		s.ledger.Record(*e)
	}
}

// wins reports whether src's value for field should replace dst's: dst has
// none, or dst's is imputed while src's was observed.
func (s *ledgerStage) wins(field string, dst, src *model.Clinic, dstPresent, srcPresent bool) bool {
	if !srcPresent {
		return false
	}
	if !dstPresent {
		return true
	}
	return s.imputed(dst.ID, field) && !s.imputed(src.ID, field)
}

// absorb copies whatever dst lacks from src and returns the filled field
// names. A source identifier travels with that source's rating and count.
// For rated and imputable fields an observed value on src also replaces an
// imputed one on dst, and prov follows the value that was kept.
func absorb(dst, src *model.Clinic, prov *ledgerStage) []string {
	var filled []string

	rating := func(field string, d **float64, s *float64) {
		if prov.wins(field, dst, src, *d != nil, s != nil) {
			*d = model.Float(*s)
			prov.take(field, src)
			filled = append(filled, field)
		}
	}
	count := func(name string, d **int, s *int) {
		if *d == nil && s != nil {
			*d = model.Int(*s)
			filled = append(filled, name)
		}
	}

	if dst.GooglePlaceID == "" && src.GooglePlaceID != "" {
		dst.GooglePlaceID = src.GooglePlaceID
		filled = append(filled, "google_place_id")
		rating(model.FieldGoogleRating, &dst.GoogleRating, src.GoogleRating)
		count("google_review_count", &dst.GoogleReviewCount, src.GoogleReviewCount)
	}
	if dst.YelpBusinessID == "" && src.YelpBusinessID != "" {
		dst.YelpBusinessID = src.YelpBusinessID
		filled = append(filled, "yelp_business_id")
		rating(model.FieldYelpRating, &dst.YelpRating, src.YelpRating)
		count("yelp_review_count", &dst.YelpReviewCount, src.YelpReviewCount)
	}

	fillString := func(name string, d *string, s string) {
		if model.IsEmptyString(*d) && !model.IsEmptyString(s) {
			*d = s
			filled = append(filled, name)
		}
	}
	fillTarget := func(field string, d *string, s string) {
		if prov.wins(field, dst, src, !model.IsEmptyString(*d), !model.IsEmptyString(s)) {
			*d = s
			prov.take(field, src)
			filled = append(filled, field)
		}
	}
	fillString("phone", &dst.Phone, src.Phone)
	fillString("website", &dst.Website, src.Website)
	fillString("address", &dst.Address, src.Address)
	fillString("city", &dst.City, src.City)
	fillString("state", &dst.State, src.State)
	fillTarget(model.FieldZipCode, &dst.ZipCode, src.ZipCode)
	fillTarget(model.FieldClinicType, &dst.ClinicType, src.ClinicType)

	if !dst.HasCoordinates() && src.HasCoordinates() {
		dst.Latitude = model.Float(*src.Latitude)
		dst.Longitude = model.Float(*src.Longitude)
		filled = append(filled, "coordinates")
	}
	if len(dst.Categories) == 0 && len(src.Categories) > 0 {
		dst.Categories = append([]string(nil), src.Categories...)
		filled = append(filled, "categories")
	}
	return filled
}
