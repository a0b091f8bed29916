package analysis

import (
	"sort"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
)

// CompareMonths sorts the months chronologically and compares the latest
// one against the union of all earlier ones. Active is the latest month's
// identifier set; New is Active minus anything seen before.
func CompareMonths(months []entity.MonthIdentities) entity.UserActivity {
	if len(months) == 0 {
		return entity.UserActivity{Active: []string{}, New: []string{}}
	}

	sorted := make([]entity.MonthIdentities, len(months))
	copy(sorted, months)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Month.Before(sorted[j].Month)
	})

	latest := sorted[len(sorted)-1]
	seen := map[string]struct{}{}
	for _, m := range sorted[:len(sorted)-1] {
		for id := range m.Identities {
			seen[id] = struct{}{}
		}
	}

	newIDs := map[string]struct{}{}
	for id := range latest.Identities {
		if _, ok := seen[id]; !ok {
			newIDs[id] = struct{}{}
		}
	}

	return entity.UserActivity{
		Month:  latest.Month,
		Active: entity.SortedKeys(latest.Identities),
		New:    entity.SortedKeys(newIDs),
	}
}

// MonthlyCounts returns the active count per month in chronological order.
func MonthlyCounts(months []entity.MonthIdentities) []entity.MonthlyCount {
	counts := make([]entity.MonthlyCount, 0, len(months))
	for _, m := range months {
		counts = append(counts, entity.MonthlyCount{Month: m.Month, Count: len(m.Identities)})
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Month.Before(counts[j].Month)
	})
	return counts
}
