package scan

// Point is a single range reading with its bearing, as reported by the
// extreme-point scanner.
type Point struct {
	Distance float64 `json:"distance"` // meters
	Angle    float64 `json:"angle"`    // radians
}

// Extremes returns the nearest and farthest valid points of a frame.
// Non-finite and non-positive readings are skipped. ok is false when the
// frame contains no valid reading at all.
func Extremes(f *Frame) (nearest, farthest Point, ok bool) {
	for i, r := range f.Ranges {
		if !ValidRange(r) {
			continue
		}
		p := Point{Distance: r, Angle: f.Angle(i)}
		if !ok {
			nearest, farthest = p, p
			ok = true
			continue
		}
		if r < nearest.Distance {
			nearest = p
		}
		if r > farthest.Distance {
			farthest = p
		}
	}
	return nearest, farthest, ok
}
