package raycast

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// detEpsilon rejects rays parallel to the triangle plane.
const detEpsilon = 1e-12

// baryEpsilon widens the barycentric test so rays through shared edges
// hit at least one of the neighbouring triangles.
const baryEpsilon = 1e-9

type triangle struct {
	a, b, c v3.Vec
}

// intersect is the two-sided Möller–Trumbore test. It returns the ray
// parameter t of the hit.
func intersect(orig, dir v3.Vec, tri *triangle) (t float64, ok bool) {
	e1 := tri.b.Sub(tri.a)
	e2 := tri.c.Sub(tri.a)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if det > -detEpsilon && det < detEpsilon {
		return 0, false
	}
	inv := 1 / det
	s := orig.Sub(tri.a)
	u := s.Dot(p) * inv
	if u < -baryEpsilon || u > 1+baryEpsilon {
		return 0, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if v < -baryEpsilon || u+v > 1+baryEpsilon {
		return 0, false
	}
	t = e2.Dot(q) * inv
	if t < 0 {
		return 0, false
	}
	return t, true
}
