// refresh decides which cached streaming records are stale, refetches
// them from the configured providers and merges the results.
package refresh

import (
	"time"

	"github.com/serialforbreakfast/tsds/internal/app/model"
)

// DefaultWindow is how long a streaming record stays fresh.
const DefaultWindow = 7 * 24 * time.Hour

// IsFresh reports whether lastUpdated (2006-01-02) lies less than
// window before now. Empty or unparseable values are never fresh.
func IsFresh(lastUpdated string, now time.Time, window time.Duration) bool {
	if lastUpdated == "" {
		return false
	}
	t, err := time.ParseInLocation(model.DateFormat, lastUpdated, now.Location())
	if err != nil {
		return false
	}
	return now.Sub(t) < window
}

// Merge returns primary followed by every source in secondary whose
// (name, type) pair is not already present. A nil result is valid and
// means no source was found.
func Merge(primary, secondary []model.StreamingSource) []model.StreamingSource {
	if len(primary) == 0 && len(secondary) == 0 {
		return nil
	}
	merged := make([]model.StreamingSource, 0, len(primary)+len(secondary))
	seen := make(map[model.SourceKey]struct{}, len(primary)+len(secondary))
	for _, s := range primary {
		merged = append(merged, s)
		seen[s.Key()] = struct{}{}
	}
	for _, s := range secondary {
		if _, ok := seen[s.Key()]; ok {
			continue
		}
		seen[s.Key()] = struct{}{}
		merged = append(merged, s)
	}
	return merged
}
