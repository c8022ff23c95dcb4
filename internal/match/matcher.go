package match

import (
	"sort"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// Matches reports whether a technician's skill set satisfies the required
// skill ids. Union semantics by default: any overlap counts. Strict mode
// requires every id to be held.
func Matches(tech *domain.Technician, requiredSkillIDs []string, strict bool) bool {
	if len(requiredSkillIDs) == 0 {
		return true
	}
	matched := 0
	for _, id := range requiredSkillIDs {
		if _, ok := tech.SkillProficiency(id); ok {
			matched++
		}
	}
	if strict {
		return matched == len(requiredSkillIDs)
	}
	return matched > 0
}

// MatchedProficiency sums the technician's proficiency over the required
// skills they actually hold.
func MatchedProficiency(tech *domain.Technician, requiredSkillIDs []string) int {
	total := 0
	for _, id := range requiredSkillIDs {
		if score, ok := tech.SkillProficiency(id); ok {
			total += score
		}
	}
	return total
}

// Candidate pairs a technician with the derived inputs used for ranking.
type Candidate struct {
	Technician  domain.Technician
	Workload    int
	Proficiency int
}

// RankCandidates orders candidates for assignment: least loaded first, then
// highest aggregate proficiency over matched skills, then id so the order is
// deterministic.
func RankCandidates(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Workload != ranked[j].Workload {
			return ranked[i].Workload < ranked[j].Workload
		}
		if ranked[i].Proficiency != ranked[j].Proficiency {
			return ranked[i].Proficiency > ranked[j].Proficiency
		}
		return ranked[i].Technician.ID < ranked[j].Technician.ID
	})
	return ranked
}
