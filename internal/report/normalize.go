package report

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Month-extraction precedence: an explicit sort key wins, then an explicit
// period field, then a date field converted to MMYYYY.
var (
	sortKeyFields = []string{"sk", "sortKey"}
	periodFields  = []string{"period", "month"}
	dateFields    = []string{"date", "recordDate", "createdAt"}
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// Normalizer converts raw feed records into Entry values for one financial
// year. It owns all the field-name guessing so callers never touch raw maps.
type Normalizer struct {
	year   string
	months map[string]struct{}
}

// NewNormalizer builds a normalizer scoped to a financial year. A malformed
// year leaves the month set empty, so every record is silently rejected
// instead of erroring, matching how bad input is handled everywhere else.
func NewNormalizer(year string, months []string) *Normalizer {
	set := make(map[string]struct{}, len(months))
	for _, m := range months {
		set[m] = struct{}{}
	}
	return &Normalizer{year: year, months: set}
}

// Normalize extracts the month and category vector of one record. The second
// return value is false when the record has no usable month inside the
// financial year; such records contribute nothing and raise no error.
func (n *Normalizer) Normalize(rec RawRecord) (Entry, bool) {
	month := n.extractMonth(rec.Fields)
	if month == "" {
		return Entry{}, false
	}
	if rec.Source == SourceBanking {
		return Entry{Month: month, Vector: bankingVector(rec.Fields)}, true
	}
	return Entry{Month: month, Vector: categoryVector(rec.Fields)}, true
}

// extractMonth resolves the record's month key. The first field in
// precedence order holding a non-empty value decides the outcome: if that
// value is not a month inside the financial year the record is dropped, with
// no fallthrough to lower-precedence fields.
func (n *Normalizer) extractMonth(fields map[string]any) string {
	for _, group := range [][]string{sortKeyFields, periodFields} {
		for _, name := range group {
			raw := lookupField(fields, name)
			if raw == nil {
				continue
			}
			key := coerceString(raw)
			if key == "" {
				continue
			}
			if n.validMonth(key) {
				return key
			}
			return ""
		}
	}
	for _, name := range dateFields {
		raw := lookupField(fields, name)
		if raw == nil {
			continue
		}
		if s, isStr := raw.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		t, ok := coerceTime(raw)
		if !ok {
			return ""
		}
		if key := monthKeyOf(t); n.validMonth(key) {
			return key
		}
		return ""
	}
	return ""
}

func (n *Normalizer) validMonth(key string) bool {
	if len(key) != 6 {
		return false
	}
	_, ok := n.months[key]
	return ok
}

func monthKeyOf(t time.Time) string {
	return t.Format("012006")
}

// categoryVector reads c1..c5 and recomputes the total. Upstream total
// fields are advisory and ignored.
func categoryVector(fields map[string]any) CategoryVector {
	var vals [5]float64
	for i := range vals {
		name := "c" + strconv.Itoa(i+1)
		raw := lookupField(fields, name)
		if raw == nil {
			// Legacy payloads nest category values one level down.
			for _, nested := range []string{"allocated", "cValues"} {
				if sub, ok := lookupField(fields, nested).(map[string]any); ok {
					if raw = lookupField(sub, name); raw != nil {
						break
					}
				}
			}
		}
		vals[i] = clampNumber(raw)
	}
	v := CategoryVector{C1: vals[0], C2: vals[1], C3: vals[2], C4: vals[3], C5: vals[4]}
	v.Total = vals[0] + vals[1] + vals[2] + vals[3] + vals[4]
	return v
}

// bankingVector gates the contribution on the bankingEnabled flag and, when
// set, contributes the totalBanking scalar instead of a category sum. The
// categories stay zero.
func bankingVector(fields map[string]any) CategoryVector {
	if !coerceBool(lookupField(fields, "bankingEnabled")) {
		return CategoryVector{}
	}
	return CategoryVector{Total: clampNumber(lookupField(fields, "totalBanking"))}
}

// lookupField finds a key case-insensitively. Exact matches win.
func lookupField(fields map[string]any, name string) any {
	if v, ok := fields[name]; ok {
		return v
	}
	for k, v := range fields {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

// clampNumber coerces to a non-negative float64. NaN, nil, unparseable
// strings and negative values all normalize to zero.
func clampNumber(raw any) float64 {
	v := coerceNumber(raw)
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func coerceNumber(raw any) float64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func coerceBool(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "true" || s == "1" || s == "yes"
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}

func coerceString(raw any) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

func coerceTime(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	case float64:
		// Upstream occasionally sends epoch milliseconds.
		if v > 1e12 {
			return time.UnixMilli(int64(v)).UTC(), true
		}
		if v > 0 {
			return time.Unix(int64(v), 0).UTC(), true
		}
	}
	return time.Time{}, false
}

// FieldString exposes a raw record's string field after coercion. Entity key
// extraction in the aggregator relies on it.
func FieldString(fields map[string]any, names ...string) string {
	for _, name := range names {
		if raw := lookupField(fields, name); raw != nil {
			if s := coerceString(raw); s != "" {
				return s
			}
		}
	}
	return ""
}
