package search

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tachyon-beep/duskmantle-gateway/internal/domain"
)

// FilterState is the normalized form of the request filters. Empty sets
// never exclude anything.
type FilterState struct {
	Subsystems map[string]bool
	Types      map[string]bool
	Namespaces map[string]bool
	Tags       map[string]bool

	RecencyCutoff *time.Time

	Applied map[string]any
}

func (s FilterState) subsystemFilterActive() bool { return len(s.Subsystems) > 0 }
func (s FilterState) recencyFilterActive() bool   { return s.RecencyCutoff != nil }

func buildFilterState(filters domain.SearchFilters, now time.Time) FilterState {
	state := FilterState{
		Subsystems: normalizeSet(filters.Subsystems),
		Types:      normalizeSet(filters.ArtifactTypes),
		Namespaces: normalizeSet(filters.Namespaces),
		Tags:       normalizeSet(filters.Tags),
		Applied:    map[string]any{},
	}

	if len(state.Subsystems) > 0 {
		state.Applied["subsystems"] = sortedKeys(state.Subsystems)
	}
	if len(state.Types) > 0 {
		state.Applied["artifact_types"] = sortedKeys(state.Types)
	}
	if len(state.Namespaces) > 0 {
		state.Applied["namespaces"] = sortedKeys(state.Namespaces)
	}
	if len(state.Tags) > 0 {
		state.Applied["tags"] = sortedKeys(state.Tags)
	}

	var cutoff *time.Time
	if raw := strings.TrimSpace(filters.UpdatedAfter); raw != "" {
		if ts, ok := parseTimeValue(raw); ok {
			cutoff = &ts
			state.Applied["updated_after"] = ts.UTC().Format(time.RFC3339)
		}
	}
	if filters.MaxAgeDays != nil && *filters.MaxAgeDays > 0 {
		ageCutoff := now.Add(-time.Duration(*filters.MaxAgeDays * float64(24*time.Hour)))
		if cutoff == nil || ageCutoff.After(*cutoff) {
			cutoff = &ageCutoff
		}
		state.Applied["max_age_days"] = *filters.MaxAgeDays
	}
	state.RecencyCutoff = cutoff

	if len(state.Applied) == 0 {
		state.Applied = nil
	}
	return state
}

// payloadPassesFilters evaluates the filters that need only the candidate
// payload. Subsystem and recency checks may need graph confirmation and
// are handled by the orchestrator.
func payloadPassesFilters(chunk domain.CandidateChunk, state FilterState) bool {
	if len(state.Types) > 0 && !state.Types[strings.ToLower(chunk.ArtifactType)] {
		return false
	}
	if len(state.Namespaces) > 0 && !state.Namespaces[strings.ToLower(chunk.Namespace)] {
		return false
	}
	if len(state.Tags) > 0 {
		matched := false
		for _, tag := range chunk.Tags {
			if state.Tags[strings.ToLower(tag)] {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func normalizeSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseTimeValue accepts epoch seconds, RFC 3339 timestamps, and bare dates.
func parseTimeValue(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		sec := int64(secs)
		nsec := int64((secs - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC(), true
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
