package aggregate

import (
	"sort"
	"strings"

	"addonwatch/internal/model"
)

// Impacts reduces raw observations into one rollup per distinct raw
// addon name. Grouping is by exact trimmed name, case-sensitive: the
// UI preserves author-entered spelling, unlike the feed which merges
// by slug. Severity is the arithmetic mean with 0 counted as a real
// value. Output is sorted by severity descending, then name ascending.
func Impacts(observations []model.SeverityObservation) []model.AddonRollup {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, obs := range observations {
		name := strings.TrimSpace(obs.AddonName)
		if name == "" {
			continue
		}
		sums[name] += float64(obs.Severity)
		counts[name]++
	}

	rollups := make([]model.AddonRollup, 0, len(sums))
	for name, sum := range sums {
		rollups = append(rollups, model.AddonRollup{
			AddonName: name,
			Severity:  sum / float64(counts[name]),
		})
	}

	sort.Slice(rollups, func(i, j int) bool {
		if rollups[i].Severity != rollups[j].Severity {
			return rollups[i].Severity > rollups[j].Severity
		}
		return rollups[i].AddonName < rollups[j].AddonName
	})
	return rollups
}
