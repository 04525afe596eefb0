package model

// Ray walks a Bresenham line from a start point toward an end point and
// yields the floor tiles it crosses. The start tile itself is not yielded.
// A ray stops for good at the first wall or the first point off the map.
type Ray struct {
	m *Map
	// x, y are in the normalized frame (transposed if steep).
	x, y         int
	xstep, ystep int
	dx, dy       int
	err          int
	steps        int
	steep        bool
	done         bool
}

// NewRay accepts signed end points so that rays may aim past the map edge.
func NewRay(m *Map, x0, y0, x1, y1 int) *Ray {
	steep := abs(y1-y0) > abs(x1-x0)
	if steep {
		x0, y0 = y0, x0
		x1, y1 = y1, x1
	}
	r := &Ray{
		m:     m,
		x:     x0,
		y:     y0,
		xstep: 1,
		ystep: 1,
		dx:    abs(x1 - x0),
		dy:    abs(y1 - y0),
		steep: steep,
	}
	if x1 < x0 {
		r.xstep = -1
	}
	if y1 < y0 {
		r.ystep = -1
	}
	r.err = r.dx / 2
	r.steps = r.dx
	return r
}

func (r *Ray) Next() (Point, Tile, bool) {
	if r.done || r.steps == 0 {
		r.done = true
		return Point{}, Wall, false
	}
	r.steps--
	r.x += r.xstep
	r.err -= r.dy
	if r.err < 0 {
		r.y += r.ystep
		r.err += r.dx
	}
	x, y := r.x, r.y
	if r.steep {
		x, y = y, x
	}
	tile, ok := r.m.At(x, y)
	if !ok || tile != Floor {
		r.done = true
		return Point{}, Wall, false
	}
	return Point{X: uint8(x), Y: uint8(y)}, tile, true
}

// Trace drains a ray.
func Trace(m *Map, x0, y0, x1, y1 int) []Point {
	var out []Point
	r := NewRay(m, x0, y0, x1, y1)
	for {
		p, _, ok := r.Next()
		if !ok {
			return out
		}
		out = append(out, p)
	}
}

// Cone is the set of floor tiles seen from one position.
type Cone map[Point]Tile

func (c Cone) Contains(p Point) bool {
	_, ok := c[p]
	return ok
}

// Merge adds every tile of o to c.
func (c Cone) Merge(o Cone) {
	for p, t := range o {
		c[p] = t
	}
}

// ConeEnds lists the far edge of a cone of the given depth and half-width.
func ConeEnds(from Point, facing Direction, length, width int) [][2]int {
	x, y := int(from.X), int(from.Y)
	ends := make([][2]int, 0, 2*width)
	for i := 0; i < width; i++ {
		switch facing {
		case Up:
			ends = append(ends, [2]int{x + i, y - length}, [2]int{x - i, y - length})
		case Down:
			ends = append(ends, [2]int{x + i, y + length}, [2]int{x - i, y + length})
		case Left:
			ends = append(ends, [2]int{x - length, y + i}, [2]int{x - length, y - i})
		case Right:
			ends = append(ends, [2]int{x + length, y + i}, [2]int{x + length, y - i})
		}
	}
	return ends
}

func castCone(m *Map, from Point, facing Direction, length, width int) Cone {
	cone := Cone{}
	for _, end := range ConeEnds(from, facing, length, width) {
		r := NewRay(m, int(from.X), int(from.Y), end[0], end[1])
		for {
			p, t, ok := r.Next()
			if !ok {
				break
			}
			cone[p] = t
		}
	}
	return cone
}

// ViewCone is what a guard sees. Inactive guards see nothing.
func ViewCone(m *Map, g Guard, length, width int) Cone {
	if !g.Active {
		return Cone{}
	}
	return castCone(m, g.Point, g.Facing, length, width)
}

// Sight is an attacker's all-round view, used for fog of war.
func Sight(m *Map, p Position, length, width int) Cone {
	cone := Cone{}
	if !p.Active {
		return cone
	}
	for d := Up; d <= Left; d++ {
		cone.Merge(castCone(m, p.Point, d, length, width))
	}
	return cone
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
