package main

import (
	"testing"
)

func TestFinalLine(t *testing.T) {
	t.Parallel()
	got := finalLine(-2.2360679775, []float64{0.4636, 1.5708})
	want := "Final energy: -2.2360679775 [0.4636 1.5708]"
	if got != want {
		t.Fatalf("%q, expected %q", got, want)
	}
}
