package selection

import (
	"sort"
	"time"

	"github.com/ternarybob/colligo/internal/models"
)

// PeriodGroup is every concall candidate sharing one reporting-period label,
// ordered by download preference. The orchestrator tries members in order
// and keeps the first that resolves.
type PeriodGroup struct {
	Period     models.PeriodKey
	Candidates []models.DocumentCandidate
}

// RepresentativeDate ranks the group against other periods: the newest
// effective date any member carries. Groups whose members never parsed to a
// date rank oldest.
func (g PeriodGroup) RepresentativeDate() time.Time {
	var newest time.Time
	for _, c := range g.Candidates {
		if d := c.Period.EffectiveDate(); d.After(newest) {
			newest = d
		}
	}
	return newest
}

// undatedLabel buckets concall candidates whose period never parsed. Their
// group carries a zero effective date, so it ranks behind every dated period.
const undatedLabel = "unknown"

// SelectConcalls buckets concall candidates by period label, orders each
// bucket by category priority, ranks buckets newest first and keeps at most
// maxPeriods. Candidates without a parsed period share one undated bucket
// that only surfaces when dated periods leave room.
func SelectConcalls(candidates []models.DocumentCandidate, maxPeriods int) []PeriodGroup {
	byLabel := make(map[string]*PeriodGroup)
	var order []string

	for _, cand := range candidates {
		if !cand.Category.IsConcall() {
			continue
		}
		label := cand.Period.Label
		if !cand.Period.Matched() {
			label = undatedLabel
		}
		group, ok := byLabel[label]
		if !ok {
			group = &PeriodGroup{Period: cand.Period}
			group.Period.Label = label
			byLabel[label] = group
			order = append(order, label)
		}
		group.Candidates = append(group.Candidates, cand)
	}

	groups := make([]PeriodGroup, 0, len(order))
	for _, label := range order {
		group := *byLabel[label]
		// Ties keep discovery order.
		sort.SliceStable(group.Candidates, func(i, j int) bool {
			return group.Candidates[i].Category.ConcallPriority() < group.Candidates[j].Category.ConcallPriority()
		})
		groups = append(groups, group)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].RepresentativeDate().After(groups[j].RepresentativeDate())
	})

	if maxPeriods > 0 && len(groups) > maxPeriods {
		groups = groups[:maxPeriods]
	}
	return groups
}

// SelectAnnualReports returns annual-report candidates, distinct by URL,
// newest first, capped at max. Each survivor is resolved independently by
// the orchestrator; there is no fallback chain between reports.
func SelectAnnualReports(candidates []models.DocumentCandidate, max int) []models.DocumentCandidate {
	seen := make(map[string]bool)
	var reports []models.DocumentCandidate
	for _, cand := range candidates {
		if cand.Category != models.CategoryAnnualReport || seen[cand.URL] {
			continue
		}
		seen[cand.URL] = true
		reports = append(reports, cand)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Period.EffectiveDate().After(reports[j].Period.EffectiveDate())
	})

	if max > 0 && len(reports) > max {
		reports = reports[:max]
	}
	return reports
}
