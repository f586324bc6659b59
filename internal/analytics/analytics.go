// Package analytics holds the per-user view history and the statistics
// derived from it.
package analytics

// Point is one recorded view count for a challenge day.
type Point struct {
	Day   int   `json:"day" db:"day"`
	Views int64 `json:"views" db:"views"`
}

// GrowthRate returns the percentage change between the first and the last
// point. It is 0 for fewer than two points or when the first value is 0.
func GrowthRate(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}
	first := points[0].Views
	if first <= 0 {
		return 0
	}
	last := points[len(points)-1].Views
	return float64(last-first) / float64(first) * 100
}

// Totals sums the views of points.
func Totals(points []Point) int64 {
	var total int64
	for _, p := range points {
		total += p.Views
	}
	return total
}

// Clone returns a copy of points that callers may retain.
func Clone(points []Point) []Point {
	if points == nil {
		return nil
	}
	out := make([]Point, len(points))
	copy(out, points)
	return out
}
