package stake

import (
	"errors"
	"testing"
)

func TestCompute(t *testing.T) {
	cases := []struct {
		name       string
		totalCents int64
		odds       float64
		exact      bool
		want       int64
	}{
		{"even odds", 210000, 2.0, false, 105000},
		{"thirds round up to whole unit", 210000, 3.0, false, 70000},
		{"uneven rounds up", 210000, 1.9, false, 110600},
		{"exact keeps cents", 100000, 3.0, true, 33333},
		{"exact even", 210000, 2.0, true, 105000},
		{"small total", 100, 1.5, false, 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Compute(tc.totalCents, tc.odds, tc.exact)
			if err != nil {
				t.Fatalf("Compute(%d, %v, %v): %v", tc.totalCents, tc.odds, tc.exact, err)
			}
			if got != tc.want {
				t.Fatalf("Compute(%d, %v, %v) = %d, want %d", tc.totalCents, tc.odds, tc.exact, got, tc.want)
			}
		})
	}
}

func TestComputeCoversTarget(t *testing.T) {
	// sem exact, o retorno bruto (stake * odds) nunca fica abaixo do alvo
	for _, odds := range []float64{1.1, 1.85, 2.0, 2.75, 3.4} {
		got, err := Compute(210000, odds, false)
		if err != nil {
			t.Fatalf("Compute(210000, %v, false): %v", odds, err)
		}
		if float64(got)*odds < 210000 {
			t.Errorf("odds %v: stake %d * odds = %v below target", odds, got, float64(got)*odds)
		}
	}
}

func TestComputeRejectsInvalid(t *testing.T) {
	for _, tc := range []struct {
		totalCents int64
		odds       float64
	}{
		{0, 2.0},
		{-100, 2.0},
		{210000, 0},
		{210000, -1.5},
	} {
		if _, err := Compute(tc.totalCents, tc.odds, false); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Compute(%d, %v) error = %v, want ErrInvalidInput", tc.totalCents, tc.odds, err)
		}
	}
}
