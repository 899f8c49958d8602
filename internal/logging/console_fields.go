package logging

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	FieldDecisionType,
	"title",
	"maker",
	"site_id",
	FieldProgressStage,
	FieldProgressPercent,
	"error_message",
	FieldErrorHint,
	"status",
	"resume_from",
	"cursor",
	"reason",
	"decision_result",
	"decision_reason",
	"attempt",
	"backoff",
	"latency",
	// Run summary fields
	"run_duration",
	"visited",
	"catalogued",
	"assets_fetched",
	"repaired",
	"not_found",
	"transient_errors",
	"asset_errors",
	"records",
	"families",
	"flush_count",
	"checkpoint_count",
	"asset_bytes",
}

// selectInfoFields returns formatted info-level fields and a count of hidden entries.
// limit=0 means no limit. includeDebug controls whether debug-only keys are allowed.
func selectInfoFields(attrs []kv, limit int, includeDebug bool) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	if limit < 0 {
		limit = 0
	}
	used := make([]bool, len(attrs))
	formatted := make([]string, len(attrs))
	formattedSet := make([]bool, len(attrs))
	ensureValue := func(idx int) string {
		if !formattedSet[idx] {
			formatted[idx] = formatValueForKey(attrs[idx].key, attrs[idx].value)
			formattedSet[idx] = true
		}
		return formatted[idx]
	}
	result := make([]infoField, 0, infoAttrLimit)
	hidden := 0

	for _, key := range infoHighlightKeys {
		if limit > 0 && len(result) >= limit {
			break
		}
		for idx, attr := range attrs {
			if used[idx] || attr.key != key {
				continue
			}
			used[idx] = true
			if skipInfoKey(attr.key) {
				break
			}
			if !includeDebug && isDebugOnlyKey(attr.key) {
				hidden++
				break
			}
			val := ensureValue(idx)
			if !includeDebug && shouldHideInfoValue(attr.key, val) {
				hidden++
				break
			}
			result = append(result, infoField{label: displayLabel(attr.key), value: val})
			break
		}
	}

	for idx, attr := range attrs {
		if used[idx] {
			continue
		}
		used[idx] = true
		if skipInfoKey(attr.key) {
			continue
		}
		if !includeDebug && isDebugOnlyKey(attr.key) {
			hidden++
			continue
		}
		val := ensureValue(idx)
		if !includeDebug && shouldHideInfoValue(attr.key, val) {
			hidden++
			continue
		}
		if limit <= 0 || len(result) < limit {
			result = append(result, infoField{label: displayLabel(attr.key), value: val})
		} else if limit > 0 {
			hidden++
		}
	}

	return result, hidden
}

// formatValueForKey applies smart formatting based on the key name.
func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()

	if isByteSizeKey(key) && (v.Kind() == slog.KindInt64 || v.Kind() == slog.KindUint64) {
		var size uint64
		if v.Kind() == slog.KindInt64 {
			n := v.Int64()
			if n < 0 {
				n = 0
			}
			size = uint64(n)
		} else {
			size = v.Uint64()
		}
		return humanize.IBytes(size)
	}

	if isDurationKey(key) && v.Kind() == slog.KindDuration {
		return formatDurationHuman(v.Duration())
	}

	if isPercentKey(key) && v.Kind() == slog.KindFloat64 {
		return formatPercent(v.Float64())
	}

	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}

	value := formatValue(v)
	if key == "error" || key == "error_message" {
		value = truncateErrorValue(value)
	}
	return value
}

// isByteSizeKey returns true if the key represents a byte size.
func isByteSizeKey(key string) bool {
	return strings.HasSuffix(key, "_bytes") ||
		strings.HasSuffix(key, "_size") ||
		key == "size"
}

// isDurationKey returns true if the key represents a duration.
func isDurationKey(key string) bool {
	return strings.HasSuffix(key, "_duration") ||
		strings.HasSuffix(key, "_elapsed") ||
		strings.HasSuffix(key, "_latency") ||
		key == "elapsed" ||
		key == "duration" ||
		key == "latency" ||
		key == "backoff"
}

// isPercentKey returns true if the key represents a percentage.
func isPercentKey(key string) bool {
	return strings.HasSuffix(key, "_percent") || key == "percent"
}

func formatDurationHuman(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	case d < time.Hour:
		return d.Round(time.Second).String()
	default:
		return d.Round(time.Minute).String()
	}
}

func formatPercent(value float64) string {
	return strconv.FormatFloat(value, 'f', 1, 64) + "%"
}

func truncateErrorValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	const maxLen = 200
	if len(value) > maxLen {
		value = value[:maxLen] + "…"
	}
	return value
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldWorkID, FieldFamily, FieldPhase, FieldComponent:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	if key == "" {
		return true
	}
	switch key {
	case FieldRunID,
		"url",
		"user_agent",
		"shard",
		"status_code",
		"content_length":
		return true
	}
	if strings.HasSuffix(key, "_id") && key != "site_id" {
		return true
	}
	if strings.Contains(key, "_path") || strings.Contains(key, "_dir") || strings.Contains(key, "_url") {
		return true
	}
	return false
}

func shouldHideInfoValue(key, value string) bool {
	switch key {
	case "error_message", "error", "reason":
		return false
	}
	return len(value) > 120
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldDecisionType:
		return "Decision"
	case FieldErrorHint:
		return "Hint"
	case FieldImpact:
		return "Impact"
	case FieldWorkID:
		return "Work"
	case FieldFamily:
		return "Family"
	case FieldPhase:
		return "Phase"
	case FieldProgressStage:
		return "Progress Stage"
	case FieldProgressPercent:
		return "Percent"
	case "site_id":
		return "Site"
	case "maker":
		return "Maker"
	case "title":
		return "Title"
	case "resume_from":
		return "Resume From"
	case "cursor":
		return "Cursor"
	case "run_duration":
		return "Duration"
	case "visited":
		return "Visited"
	case "catalogued":
		return "Catalogued"
	case "assets_fetched":
		return "Assets"
	case "asset_bytes":
		return "Asset Size"
	case "repaired":
		return "Repaired"
	case "not_found":
		return "Not Found"
	case "transient_errors":
		return "Transient"
	case "asset_errors":
		return "Asset Errors"
	case "records":
		return "Records"
	case "families":
		return "Families"
	case "flush_count":
		return "Flushes"
	case "checkpoint_count":
		return "Checkpoints"
	case "decision_result":
		return "Result"
	case "decision_reason":
		return "Reason"
	case "reason":
		return "Reason"
	case "attempt":
		return "Attempt"
	case "backoff":
		return "Backoff"
	case "latency":
		return "Latency"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	if key == "" {
		return ""
	}
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-'
	})
	if len(parts) == 0 {
		return strings.ToUpper(key[:1]) + strings.ToLower(key[1:])
	}
	for i, part := range parts {
		parts[i] = capitalizeASCII(part)
	}
	return strings.Join(parts, " ")
}

func capitalizeASCII(value string) string {
	switch len(value) {
	case 0:
		return ""
	case 1:
		return strings.ToUpper(value)
	default:
		lower := strings.ToLower(value)
		return strings.ToUpper(lower[:1]) + lower[1:]
	}
}

func infoSummaryKey(component, workID string, attrs []kv) string {
	workID = strings.TrimSpace(workID)
	if workID == "" {
		if family := attrValue(attrs, FieldFamily); family != "" {
			workID = "family:" + family
		} else if component != "" {
			workID = component
		}
	}
	return workID
}

func attrValue(attrs []kv, key string) string {
	for _, kv := range attrs {
		if kv.key == key {
			return attrString(kv.value)
		}
	}
	return ""
}
