package umbra

import (
	"math"
	"testing"
)

func assertMatrix(t *testing.T, name string, got, want [6]float64) {
	t.Helper()
	for i := range got {
		if math.Abs(got[i]-want[i]) > epsilon {
			t.Errorf("%s[%d] = %v, want %v (full: %v)", name, i, got[i], want[i], got)
			return
		}
	}
}

// compose returns p applied after c.
func compose(p, c [6]float64) [6]float64 {
	return [6]float64{
		p[0]*c[0] + p[2]*c[1],
		p[1]*c[0] + p[3]*c[1],
		p[0]*c[2] + p[2]*c[3],
		p[1]*c[2] + p[3]*c[3],
		p[0]*c[4] + p[2]*c[5] + p[4],
		p[1]*c[4] + p[3]*c[5] + p[5],
	}
}

func TestInvertAffine(t *testing.T) {
	m := [6]float64{2, 0, 0, 3, 10, 20}
	assertMatrix(t, "m*inv", compose(m, invertAffine(m)), identityTransform)
}

func TestInvertAffineRotationScale(t *testing.T) {
	cos, sin := math.Cos(math.Pi/3), math.Sin(math.Pi/3)
	m := [6]float64{2 * cos, 2 * sin, -sin, cos, 7, -3}
	assertMatrix(t, "m*inv", compose(m, invertAffine(m)), identityTransform)
	assertMatrix(t, "inv*m", compose(invertAffine(m), m), identityTransform)
}

func TestInvertAffineSingularReturnsIdentity(t *testing.T) {
	assertMatrix(t, "singular", invertAffine([6]float64{0, 0, 0, 1, 10, 20}), identityTransform)
	assertMatrix(t, "zero", invertAffine([6]float64{0, 0, 0, 0, 50, 100}), identityTransform)
}

func TestTransformPoint(t *testing.T) {
	m := [6]float64{1, 0, 0, 1, 5, -2}
	x, y := transformPoint(m, 3, 4)
	assertNear(t, "x", x, 8)
	assertNear(t, "y", y, 2)

	// 90 degree rotation maps +x to +y.
	r := [6]float64{0, 1, -1, 0, 0, 0}
	x, y = transformPoint(r, 1, 0)
	assertNear(t, "rx", x, 0)
	assertNear(t, "ry", y, 1)
}
