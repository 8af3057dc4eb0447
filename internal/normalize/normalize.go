package normalize

import (
	"math"
	"strings"

	"addonwatch/internal/model"
)

var labelSeverities = map[string]model.Severity{
	"critical": model.SeverityCritical,
	"high":     model.SeverityHigh,
	"notable":  model.SeverityHigh,
	"medium":   model.SeverityMedium,
	"moderate": model.SeverityMedium,
	"low":      model.SeverityLow,
	"safe":     model.SeverityLow,
	"unknown":  model.SeverityUnknown,
	// legacy color names from the first schema revision
	"red":    model.SeverityCritical,
	"orange": model.SeverityHigh,
	"yellow": model.SeverityMedium,
	"green":  model.SeverityLow,
}

// SeverityScore maps a raw numeric severity to a bucket. Values are
// rounded and clamped into [0,5] rather than rejected, so fractional
// rollup averages normalize the same way integer scores do.
func SeverityScore(score float64) model.Severity {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return model.SeverityUnknown
	}
	n := int(math.Round(score))
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	switch {
	case n >= 5:
		return model.SeverityCritical
	case n >= 3:
		return model.SeverityHigh
	case n == 2:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// SeverityLabel maps a stored label or legacy color string to a bucket.
// Unrecognized or empty input degrades to unknown, never errors.
func SeverityLabel(label string) model.Severity {
	key := strings.ToLower(strings.TrimSpace(label))
	if key == "" {
		return model.SeverityUnknown
	}
	if sev, ok := labelSeverities[key]; ok {
		return sev
	}
	return model.SeverityUnknown
}

// PickHigher returns the argument with the higher rank; a wins ties.
func PickHigher(a, b model.Severity) model.Severity {
	if a.Rank() >= b.Rank() {
		return a
	}
	return b
}

// Slug canonicalizes an addon name for feed identity: lower-cased with
// every character outside [0-9a-z] stripped. Callers must drop
// observations whose slug comes back empty.
func Slug(name string) string {
	var b strings.Builder
	for _, ch := range strings.ToLower(name) {
		if (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'z') {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// Observation is the parse boundary between loosely-typed storage rows
// and the typed core. A nil severity counts as 0 (safe), matching the
// rollup contract. Returns false when the trimmed name is empty.
func Observation(addonName string, severity *int, article model.ArticleRef) (model.SeverityObservation, bool) {
	name := strings.TrimSpace(addonName)
	if name == "" {
		return model.SeverityObservation{}, false
	}
	sev := 0
	if severity != nil {
		sev = *severity
	}
	return model.SeverityObservation{
		AddonName: name,
		Severity:  sev,
		Article:   article,
	}, true
}
