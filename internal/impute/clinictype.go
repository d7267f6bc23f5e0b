package impute

import (
	"regexp"
	"strings"

	"github.com/sells-group/clinic-pipeline/internal/geo"
	"github.com/sells-group/clinic-pipeline/internal/model"
)

// typeKeywords maps a clinic type to the keywords that identify it. The
// slice order is the match priority: specific types come before generic
// ones, and physical therapy precedes mental health so "Physical Therapy"
// does not resolve on the bare word "therapy".
var typeKeywords = []struct {
	clinicType string
	keywords   []string
}{
	{model.TypeUrgentCare, []string{"urgent", "immediate care", "walk-in", "walk in", "express clinic", "quick care"}},
	{model.TypeDental, []string{"dental", "dentist", "dentistry", "orthodont", "teeth", "endodont", "periodont"}},
	{model.TypePediatric, []string{"pediatric", "paediatric", "children", "kids", "child health"}},
	{model.TypeSpecialty, []string{
		"surgery", "surgical", "plastic", "cosmetic", "dermatolog", "cardiolog", "oncolog",
		"neurolog", "orthopedic", "urolog", "radiolog", "ophthalmolog", "ent", "ear nose throat", "allergy",
	}},
	{model.TypePhysicalTherapy, []string{"physical therapy", "rehab", "physiotherapy", "chiropract", "massage"}},
	{model.TypeMentalHealth, []string{"mental health", "counseling", "counselling", "psychiatr", "psycholog", "therapy", "behavioral"}},
	{model.TypeWomensHealth, []string{"women", "obstetric", "gynecolog", "obgyn", "ob gyn", "pregnancy", "maternal"}},
	{model.TypePrimaryCare, []string{"family", "primary care", "general practice", "internal medicine", "medical center", "health center", "clinic", "physician"}},
}

// categoryTypes maps source category tags to a clinic type, in priority order.
var categoryTypes = []struct {
	clinicType string
	keywords   []string
}{
	{model.TypeUrgentCare, []string{"urgent care", "walk-in clinic", "emergency"}},
	{model.TypeDental, []string{"dentist", "dental", "orthodontist"}},
	{model.TypePediatric, []string{"pediatrician", "child health", "kids"}},
	{model.TypeSpecialty, []string{
		"surgeon", "plastic surgery", "dermatologist", "cardiologist", "oncologist", "neurologist",
		"orthopedist", "urologist", "ophthalmologist", "ear nose & throat", "ear nose and throat", "allergist",
	}},
	{model.TypePhysicalTherapy, []string{"physical therapy", "chiropractor", "massage", "acupuncture"}},
	{model.TypeMentalHealth, []string{"counseling", "mental health", "psychiatrist", "psychologist", "therapy"}},
	{model.TypeWomensHealth, []string{"obstetrician", "gynecologist", "obgyn", "women's health", "womens health"}},
	{model.TypePrimaryCare, []string{"family practice", "internal medicine", "medical center", "general practitioner", "primary care", "concierge medicine", "doctors"}},
}

var keywordSeparatorRe = regexp.MustCompile(`[^a-z0-9'&]+`)

// padWords lowercases s and normalizes separators to single spaces with a
// leading and trailing space, so keywords can be matched at word starts.
func padWords(s string) string {
	s = keywordSeparatorRe.ReplaceAllString(strings.ToLower(s), " ")
	return " " + strings.TrimSpace(s) + " "
}

// hasKeyword matches kw at the start of a word in padded. Keywords of three
// letters or fewer must match a whole word ("ent" is not "center").
func hasKeyword(padded, kw string) bool {
	kw = strings.TrimSpace(padWords(kw))
	if len(kw) <= 3 {
		return strings.Contains(padded, " "+kw+" ")
	}
	return strings.Contains(padded, " "+kw)
}

// InferTypeFromName returns the first clinic type whose keyword appears in
// the name, or "".
func InferTypeFromName(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	padded := padWords(name)
	for _, tk := range typeKeywords {
		for _, kw := range tk.keywords {
			if hasKeyword(padded, kw) {
				return tk.clinicType
			}
		}
	}
	return ""
}

// InferTypeFromCategories maps source category tags to a clinic type, or "".
func InferTypeFromCategories(categories []string) string {
	if len(categories) == 0 {
		return ""
	}
	padded := padWords(strings.Join(categories, " | "))
	for _, ct := range categoryTypes {
		for _, kw := range ct.keywords {
			if hasKeyword(padded, kw) {
				return ct.clinicType
			}
		}
	}
	return ""
}

// TypeChain is the clinic type chain.
func TypeChain() Chain {
	return Chain{
		{Method: MethodNameKeyword, Run: typeFromName},
		{Method: MethodCategoryMap, Run: typeFromCategories},
		{Method: MethodZipNeighborVote, Run: typeZipNeighborVote},
		{Method: MethodDefault, Run: typeDefault},
	}
}

func typeFromName(t Record, _ *Snapshot) (Proposal, error) {
	if ct := InferTypeFromName(t.Name); ct != "" {
		return Proposal{Value: ct, Confidence: 0.9}, nil
	}
	return Proposal{}, MissNoKeyword
}

func typeFromCategories(t Record, _ *Snapshot) (Proposal, error) {
	if ct := InferTypeFromCategories(t.Categories); ct != "" {
		return Proposal{Value: ct, Confidence: 0.8}, nil
	}
	return Proposal{}, MissNoCategory
}

// typeZipNeighborVote takes the modal type of the k nearest clinics that
// share the target's ZIP and have a known type.
func typeZipNeighborVote(t Record, s *Snapshot) (Proposal, error) {
	if t.Zip == "" {
		return Proposal{}, MissNoZip
	}
	if !t.HasGeo {
		return Proposal{}, MissNoCoordinates
	}
	cands, byID := s.candidates(t.ID, func(r Record) bool {
		return r.Zip == t.Zip && r.Type != ""
	})
	nb := geo.Nearest(t.Point, cands, s.cfg.TypeK)
	if len(nb) == 0 {
		return Proposal{}, MissNoNeighbors
	}

	ballots := make([]ballot, len(nb))
	for i, n := range nb {
		ballots[i] = ballot{label: byID[n.ID].Type, distance: n.DistanceMeters}
	}
	ct, votes := modalVote(ballots)
	nearest := nb[0].DistanceMeters

	return Proposal{
		Value:          ct,
		DistanceMeters: &nearest,
		NeighborCount:  len(nb),
		Confidence:     0.6 * float64(votes) / float64(len(nb)),
	}, nil
}

func typeDefault(_ Record, s *Snapshot) (Proposal, error) {
	if s.cfg.DefaultClinicType == "" {
		return Proposal{}, MissNoDefault
	}
	return Proposal{Value: s.cfg.DefaultClinicType, Confidence: 0.3}, nil
}
