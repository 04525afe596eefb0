package model

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
)

var (
	ErrNoFloor   = errors.New("map has no floor tile")
	ErrNotSquare = errors.New("map is not square")
)

// Map is a square grid stored row-major.
type Map struct {
	Len int
	Buf []Tile
}

func NewMap(side int) *Map {
	return &Map{Len: side, Buf: make([]Tile, side*side)}
}

// RandomMap walls the border and scatters walls over the interior.
func RandomMap(side int, wallChance float64, rng *rand.Rand) *Map {
	m := NewMap(side)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			if x == 0 || y == 0 || x == side-1 || y == side-1 || rng.Float64() < wallChance {
				m.Buf[y*side+x] = Wall
			}
		}
	}
	return m
}

// ParseMap reads '#' as wall and '.' as floor. Blank lines are skipped.
func ParseMap(reader io.Reader) (*Map, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Split(bufio.ScanLines)
	var buf []Tile
	rows := 0
	side := -1
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		if s == "" {
			continue
		}
		if side == -1 {
			side = len(s)
		}
		if len(s) != side {
			return nil, fmt.Errorf("row %d has %d tiles, want %d: %w", rows, len(s), side, ErrNotSquare)
		}
		for i, char := range s {
			switch char {
			case '#':
				buf = append(buf, Wall)
			case '.':
				buf = append(buf, Floor)
			default:
				return nil, fmt.Errorf("row %d col %d: unexpected %q", rows, i, char)
			}
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if rows != side {
		return nil, fmt.Errorf("%d rows of %d tiles: %w", rows, side, ErrNotSquare)
	}
	if side > 256 {
		return nil, fmt.Errorf("map side %d exceeds 256", side)
	}
	return &Map{Len: side, Buf: buf}, nil
}

// At reports the tile at (x, y); ok is false outside the map.
func (m *Map) At(x, y int) (tile Tile, ok bool) {
	if x < 0 || y < 0 || x >= m.Len || y >= m.Len {
		return Wall, false
	}
	return m.Buf[y*m.Len+x], true
}

func (m *Map) IsFloor(x, y int) bool {
	t, ok := m.At(x, y)
	return ok && t == Floor
}

// Random returns a uniformly chosen floor point.
func (m *Map) Random(rng *rand.Rand) (Point, error) {
	floors := make([]Point, 0, len(m.Buf))
	for it := m.Tiles(); ; {
		p, t, ok := it.Next()
		if !ok {
			break
		}
		if t == Floor {
			floors = append(floors, p)
		}
	}
	if len(floors) == 0 {
		return Point{}, ErrNoFloor
	}
	return floors[rng.Intn(len(floors))], nil
}

func (m *Map) String() string {
	var b strings.Builder
	for y := 0; y < m.Len; y++ {
		for x := 0; x < m.Len; x++ {
			if m.Buf[y*m.Len+x] == Wall {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Tiles is a cursor over every tile in row-major order.
type Tiles struct {
	index int
	m     *Map
}

func (m *Map) Tiles() *Tiles {
	return &Tiles{m: m}
}

func (t *Tiles) Next() (Point, Tile, bool) {
	if t.index >= len(t.m.Buf) {
		return Point{}, Wall, false
	}
	x := t.index % t.m.Len
	y := t.index / t.m.Len
	t.index++
	return Point{X: uint8(x), Y: uint8(y)}, t.m.Buf[y*t.m.Len+x], true
}
