// Package normalize canonicalizes the messy values coming out of field
// spreadsheets: heterogeneous date encodings, accented and irregularly
// spaced header names, and equipment codes typed with stray spaces or
// unicode dash glyphs.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// sheetEpoch is day zero of spreadsheet serial dates.
var sheetEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Serial day-counts outside this calendar window are rejected so that
// ordinary measurements (hour meters, odometers) never masquerade as dates.
const (
	serialYearMin = 2000
	serialYearMax = 2100
)

var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02-01-2006",
}

// ParseDate interprets a loosely typed cell value as a calendar date,
// optionally with a time of day. Accepted encodings are ISO text, day/month/
// year text with "/" or "-" separators, and spreadsheet day-count serials.
// Anything else returns nil; callers keep such records as low-confidence
// candidates instead of dropping them.
func ParseDate(raw any) *time.Time {
	switch v := raw.(type) {
	case nil:
		return nil
	case time.Time:
		if v.IsZero() {
			return nil
		}
		t := v
		return &t
	case *time.Time:
		if v == nil || v.IsZero() {
			return nil
		}
		t := *v
		return &t
	case string:
		return parseDateText(v)
	case float64:
		return serialDate(v)
	case float32:
		return serialDate(float64(v))
	case int:
		return serialDate(float64(v))
	case int32:
		return serialDate(float64(v))
	case int64:
		return serialDate(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil
		}
		return serialDate(f)
	}
	return nil
}

func parseDateText(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	// A serial that arrived as text, possibly with a comma decimal.
	if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
		return serialDate(f)
	}
	return nil
}

func serialDate(serial float64) *time.Time {
	days := int(serial)
	frac := serial - float64(days)
	t := sheetEpoch.AddDate(0, 0, days)
	if t.Year() < serialYearMin || t.Year() > serialYearMax {
		return nil
	}
	if frac > 0 {
		t = t.Add(time.Duration(math.Round(frac*86400)) * time.Second)
	}
	return &t
}

// ParseTimeOfDay interprets a separate time value: "HH:mm" or "HH:mm:ss"
// text, or a fractional-day serial in [0, 1).
func ParseTimeOfDay(raw any) (hour, minute, second int, ok bool) {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, 0, 0, false
		}
		for _, layout := range []string{"15:04:05", "15:04"} {
			if t, err := time.Parse(layout, s); err == nil {
				h, m, sec := t.Clock()
				return h, m, sec, true
			}
		}
		if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
			return fractionalDay(f)
		}
	case float64:
		return fractionalDay(v)
	case float32:
		return fractionalDay(float64(v))
	case int:
		return fractionalDay(float64(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return fractionalDay(f)
		}
	}
	return 0, 0, 0, false
}

func fractionalDay(f float64) (int, int, int, bool) {
	if f < 0 || f >= 1 {
		return 0, 0, 0, false
	}
	secs := int(math.Round(f*86400)) % 86400
	return secs / 3600, (secs % 3600) / 60, secs % 60, true
}

// CombineDateTime merges a separate time-of-day value into a date. The date
// is returned unchanged when the time value is unusable.
func CombineDateTime(date time.Time, rawTime any) time.Time {
	h, m, s, ok := ParseTimeOfDay(rawTime)
	if !ok {
		return date
	}
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, s, 0, date.Location())
}

// FormatDate renders a date the way the field forms and sheets display it.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// Key normalizes free-form text for comparison: accents stripped, upper
// cased, internal whitespace collapsed to single spaces.
func Key(s string) string {
	s = stripAccents(s)
	s = strings.ToUpper(s)
	return strings.Join(strings.Fields(s), " ")
}

var dashVariants = strings.NewReplacer(
	"‐", "-",
	"‑", "-",
	"‒", "-",
	"–", "-",
	"—", "-",
	"−", "-",
)

// EquipmentCode normalizes an equipment code for matching across sources.
// On top of Key it drops internal spaces and maps unicode dash variants to
// a plain hyphen, so "cm – 122" and "CM-122" compare equal.
func EquipmentCode(s string) string {
	s = dashVariants.Replace(Key(s))
	return strings.ReplaceAll(s, " ", "")
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// PositiveNumber coerces a loosely typed cell value to a float64 and reports
// whether it is strictly positive. Zero is the "not measured" sentinel
// throughout the engine, so it is never treated as a usable measurement.
func PositiveNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, v > 0
	case float32:
		f := float64(v)
		return f, f > 0
	case int:
		return float64(v), v > 0
	case int32:
		return float64(v), v > 0
	case int64:
		return float64(v), v > 0
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, f > 0
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		s = strings.ReplaceAll(s, " ", "")
		s = strings.ReplaceAll(s, ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, f > 0
	}
	return 0, false
}
