package domain

import "testing"

func TestMandatoryKindByCategory(t *testing.T) {
	cases := []struct {
		category string
		want     Kind
	}{
		{CategoryVehicle, KindOdometer},
		{CategoryMachine, KindHourMeter},
		{CategoryImplement, KindHourMeter},
		{"", KindHourMeter},
	}

	for _, tc := range cases {
		e := Equipment{Category: tc.category}
		if got := e.MandatoryKind(); got != tc.want {
			t.Fatalf("category %q: expected %s, got %s", tc.category, tc.want, got)
		}
	}
}
