package raycast

import "math"

const (
	leafThreshold = 8
	maxDepth      = 16
)

// bvhNode is a node of a flattened bounding volume hierarchy over the XY
// footprint of the triangles. Rays are vertical, so only XY matters.
// The first child of an inner node immediately follows it.
type bvhNode struct {
	minX, minY, maxX, maxY float64

	leaf        bool
	offset      int
	count       int
	secondChild int
}

func (n *bvhNode) contains(x, y float64) bool {
	return x >= n.minX && x <= n.maxX && y >= n.minY && y <= n.maxY
}

type bvh struct {
	nodes []bvhNode
	// tris lists triangle indices per leaf. A triangle straddling a split
	// is listed under both children.
	tris []int
}

type region struct {
	x1, y1, x2, y2 float64
	tris           []int
	children       []*region
}

func footprint(t *triangle) (minX, minY, maxX, maxY float64) {
	minX = math.Min(t.a.X, math.Min(t.b.X, t.c.X))
	maxX = math.Max(t.a.X, math.Max(t.b.X, t.c.X))
	minY = math.Min(t.a.Y, math.Min(t.b.Y, t.c.Y))
	maxY = math.Max(t.a.Y, math.Max(t.b.Y, t.c.Y))
	return
}

// buildBVH splits space at the midpoint of the longer XY side until a
// region holds few enough triangles.
func buildBVH(tris []triangle) *bvh {
	if len(tris) == 0 {
		return &bvh{}
	}
	all := make([]int, len(tris))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := range tris {
		all[i] = i
		x0, y0, x1, y1 := footprint(&tris[i])
		minX, minY = math.Min(minX, x0), math.Min(minY, y0)
		maxX, maxY = math.Max(maxX, x1), math.Max(maxY, y1)
	}
	root := split(tris, all, minX, minY, maxX, maxY, maxDepth)
	b := &bvh{}
	b.flatten(root)
	return b
}

func split(tris []triangle, idx []int, x1, y1, x2, y2 float64, depth int) *region {
	r := &region{x1: x1, y1: y1, x2: x2, y2: y2}
	for _, i := range idx {
		tx0, ty0, tx1, ty1 := footprint(&tris[i])
		if tx1 < x1 || tx0 > x2 || ty1 < y1 || ty0 > y2 {
			continue
		}
		r.tris = append(r.tris, i)
	}
	if len(r.tris) <= leafThreshold || depth == 0 {
		return r
	}
	if x2-x1 >= y2-y1 {
		mid := (x1 + x2) / 2
		r.children = []*region{
			split(tris, r.tris, x1, y1, mid, y2, depth-1),
			split(tris, r.tris, mid, y1, x2, y2, depth-1),
		}
	} else {
		mid := (y1 + y2) / 2
		r.children = []*region{
			split(tris, r.tris, x1, y1, x2, mid, depth-1),
			split(tris, r.tris, x1, mid, x2, y2, depth-1),
		}
	}
	r.tris = nil
	return r
}

func (b *bvh) flatten(r *region) {
	n := bvhNode{minX: r.x1, minY: r.y1, maxX: r.x2, maxY: r.y2, leaf: r.children == nil}
	if n.leaf {
		n.offset = len(b.tris)
		n.count = len(r.tris)
		b.tris = append(b.tris, r.tris...)
	}
	ptr := len(b.nodes)
	b.nodes = append(b.nodes, n)
	if !n.leaf {
		b.flatten(r.children[0])
		b.nodes[ptr].secondChild = len(b.nodes)
		b.flatten(r.children[1])
	}
}

// visit calls fn for every triangle in leaves containing (x, y).
func (b *bvh) visit(x, y float64, fn func(tri int)) {
	if len(b.nodes) == 0 {
		return
	}
	var stack [2*maxDepth + 2]int
	n := 1
	for n > 0 {
		n--
		ptr := stack[n]
		node := &b.nodes[ptr]
		if !node.contains(x, y) {
			continue
		}
		if node.leaf {
			for _, i := range b.tris[node.offset : node.offset+node.count] {
				fn(i)
			}
			continue
		}
		stack[n] = node.secondChild
		stack[n+1] = ptr + 1
		n += 2
	}
}
