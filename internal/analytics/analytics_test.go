package analytics

import "testing"

func TestGrowthRate(t *testing.T) {
	cases := []struct {
		name   string
		points []Point
		want   float64
	}{
		{name: "empty", points: nil, want: 0},
		{name: "single point", points: []Point{{Day: 1, Views: 500}}, want: 0},
		{name: "first value zero", points: []Point{{Day: 1, Views: 0}, {Day: 2, Views: 900}}, want: 0},
		{name: "growth", points: []Point{{Day: 1, Views: 100}, {Day: 7, Views: 250}}, want: 150},
		{name: "decline", points: []Point{{Day: 1, Views: 200}, {Day: 2, Views: 50}, {Day: 3, Views: 100}}, want: -50},
		{name: "middle ignored", points: []Point{{Day: 1, Views: 100}, {Day: 2, Views: 9000}, {Day: 3, Views: 100}}, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := GrowthRate(tc.points); got != tc.want {
				t.Fatalf("GrowthRate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTotalsAndClone(t *testing.T) {
	points := []Point{{Day: 1, Views: 100}, {Day: 2, Views: 200}, {Day: 3, Views: 300}}
	if got := Totals(points); got != 600 {
		t.Fatalf("Totals = %d, want 600", got)
	}
	cp := Clone(points)
	cp[0].Views = 1
	if points[0].Views != 100 {
		t.Fatal("Clone shares backing array")
	}
}
