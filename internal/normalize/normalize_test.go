package normalize

import (
	"testing"
	"time"
)

func TestParseDateAcceptedEncodings(t *testing.T) {
	cases := []struct {
		name string
		raw  any
		want time.Time
	}{
		{"iso date", "2026-01-10", time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
		{"iso datetime", "2026-01-10T14:30", time.Date(2026, 1, 10, 14, 30, 0, 0, time.UTC)},
		{"iso datetime seconds", "2026-01-10T14:30:15", time.Date(2026, 1, 10, 14, 30, 15, 0, time.UTC)},
		{"slash dmy", "10/01/2026", time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
		{"dash dmy", "10-01-2026", time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
		{"slash dmy with time", "10/01/2026 08:15", time.Date(2026, 1, 10, 8, 15, 0, 0, time.UTC)},
		{"unpadded dmy", "5/1/2026", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"serial", float64(46032), time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
		{"serial with fraction", 46032.5, time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)},
		{"serial as text", "46032", time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
		{"serial as comma text", "46032,5", time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)},
		{"serial int", 46032, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseDate(tc.raw)
			if got == nil {
				t.Fatalf("ParseDate(%v) = nil, want %v", tc.raw, tc.want)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("ParseDate(%v) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseDateRejectsUnusableInput(t *testing.T) {
	cases := []struct {
		name string
		raw  any
	}{
		{"nil", nil},
		{"empty", ""},
		{"free text", "sin fecha"},
		{"meter value mistaken for serial", 120.5},
		{"serial before window", 15000},
		{"serial after window", 90000},
		{"negative serial", -12.0},
		{"zero time", time.Time{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseDate(tc.raw); got != nil {
				t.Fatalf("ParseDate(%v) = %v, want nil", tc.raw, got)
			}
		})
	}
}

func TestParseDateRoundTrip(t *testing.T) {
	encodings := []any{"2026-01-10", "10/01/2026", "10-01-2026", float64(46032), 46032.75, "46032"}
	for _, raw := range encodings {
		got := ParseDate(raw)
		if got == nil {
			t.Fatalf("ParseDate(%v) = nil", raw)
		}
		if formatted := FormatDate(*got); formatted != "10/01/2026" {
			t.Fatalf("round trip of %v = %q, want 10/01/2026", raw, formatted)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		name    string
		raw     any
		h, m, s int
		ok      bool
	}{
		{"hh:mm", "14:30", 14, 30, 0, true},
		{"hh:mm:ss", "07:05:09", 7, 5, 9, true},
		{"unpadded", "8:15", 8, 15, 0, true},
		{"fraction noon", 0.5, 12, 0, 0, true},
		{"fraction zero", 0.0, 0, 0, 0, true},
		{"fraction quarter", 0.25, 6, 0, 0, true},
		{"fraction text", "0,5", 12, 0, 0, true},
		{"full day rejected", 1.0, 0, 0, 0, false},
		{"negative rejected", -0.1, 0, 0, 0, false},
		{"out of range text", "25:00", 0, 0, 0, false},
		{"free text", "mediodia", 0, 0, 0, false},
		{"empty", "", 0, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, m, s, ok := ParseTimeOfDay(tc.raw)
			if ok != tc.ok {
				t.Fatalf("ParseTimeOfDay(%v) ok = %v, want %v", tc.raw, ok, tc.ok)
			}
			if ok && (h != tc.h || m != tc.m || s != tc.s) {
				t.Fatalf("ParseTimeOfDay(%v) = %02d:%02d:%02d, want %02d:%02d:%02d", tc.raw, h, m, s, tc.h, tc.m, tc.s)
			}
		})
	}
}

func TestCombineDateTime(t *testing.T) {
	date := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	got := CombineDateTime(date, "14:30")
	want := time.Date(2026, 1, 10, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("CombineDateTime text = %v, want %v", got, want)
	}

	got = CombineDateTime(date, 0.5)
	want = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("CombineDateTime fraction = %v, want %v", got, want)
	}

	if got = CombineDateTime(date, "garbage"); !got.Equal(date) {
		t.Fatalf("CombineDateTime garbage = %v, want date unchanged", got)
	}
}

func TestKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Horómetro   Actual ", "HOROMETRO ACTUAL"},
		{"fecha", "FECHA"},
		{"OBSERVACIÓN", "OBSERVACION"},
		{"kilometraje\tactual", "KILOMETRAJE ACTUAL"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Key(tc.in); got != tc.want {
			t.Errorf("Key(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEquipmentCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"cm-122", "CM-122"},
		{"CM – 122", "CM-122"},
		{"cm—122", "CM-122"},
		{" CM 122 ", "CM122"},
		{"éq-01", "EQ-01"},
	}
	for _, tc := range cases {
		if got := EquipmentCode(tc.in); got != tc.want {
			t.Errorf("EquipmentCode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFindColumn(t *testing.T) {
	aliases := DefaultAliasTable()
	row := map[string]any{
		"Equipo":           "CM-122",
		"FECHA":            "10/01/2026",
		"Horómetro Actual": 120.5,
		"Observaciones":    "ok",
	}

	k, ok := aliases.FindColumn(row, FieldDate)
	if !ok || k != "FECHA" {
		t.Fatalf("FindColumn date = %q, %v", k, ok)
	}

	k, ok = aliases.FindColumn(row, FieldHourMeter)
	if !ok || k != "Horómetro Actual" {
		t.Fatalf("FindColumn hour meter = %q, %v", k, ok)
	}

	if _, ok := aliases.FindColumn(row, FieldOdometer); ok {
		t.Fatal("FindColumn odometer should miss")
	}

	if _, ok := aliases.FindColumn(map[string]any{}, FieldDate); ok {
		t.Fatal("FindColumn on empty row should miss")
	}
}

func TestPositiveNumber(t *testing.T) {
	cases := []struct {
		name string
		raw  any
		want float64
		ok   bool
	}{
		{"float", 120.5, 120.5, true},
		{"int", 45000, 45000, true},
		{"comma text", "120,5", 120.5, true},
		{"plain text", "87.3", 87.3, true},
		{"spaced text", " 1 200 ", 1200, true},
		{"zero", 0.0, 0, false},
		{"zero text", "0", 0, false},
		{"negative", -3.2, 0, false},
		{"garbage", "n/a", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := PositiveNumber(tc.raw)
			if ok != tc.ok {
				t.Fatalf("PositiveNumber(%v) ok = %v, want %v", tc.raw, ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("PositiveNumber(%v) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}
