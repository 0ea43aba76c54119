// Package kernel defines the triangle mesh handed to the depth map
// pipeline and an abstract geometry kernel that can produce such meshes
// procedurally. The sdfx implementation lives in the sdfx subpackage;
// it backs the sample shapes of the command line tool and the fixtures
// used by tests.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel builds solids and tessellates them into meshes.
type Kernel interface {
	// Box returns a box with its minimum corner at the origin.
	Box(x, y, z float64) Solid
	// Cylinder returns a Z-aligned cylinder standing on the z=0 plane,
	// centred on the Z axis.
	Cylinder(height, radius float64) Solid

	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid

	Translate(s Solid, x, y, z float64) Solid

	// ToMesh tessellates a solid into an unindexed triangle mesh.
	ToMesh(s Solid) (*Mesh, error)
}
