package grid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// SU2 element type identifiers, from https://su2code.github.io/docs_v7/Mesh-File/
const (
	su2Line     = 3
	su2Triangle = 5
)

// SU2Mesh is a two dimensional triangle mesh read from an SU2 file. Markers
// keeps the boundary edges grouped under their MARKER_TAG labels, as vertex
// pairs in file order.
type SU2Mesh struct {
	Points    *mat.Dense // 2 x numPoints
	Triangles [][3]int
	Markers   map[string][][2]int
}

// su2Scanner walks an SU2 stream line by line, skipping blanks and
// %-comments.
type su2Scanner struct {
	s *bufio.Scanner
}

func (sc *su2Scanner) line() (string, error) {
	for sc.s.Scan() {
		l := strings.TrimSpace(sc.s.Text())
		if l == "" || strings.HasPrefix(l, "%") {
			continue
		}
		return l, nil
	}
	if err := sc.s.Err(); err != nil {
		return "", err
	}
	return "", io.ErrUnexpectedEOF
}

// token reads the value of a KEY= value line.
func (sc *su2Scanner) token(key string) (string, error) {
	l, err := sc.line()
	if err != nil {
		return "", err
	}
	ind := strings.Index(l, "=")
	if ind < 0 {
		return "", fmt.Errorf("su2: line %q, want %s= value", l, key)
	}
	return strings.TrimSpace(l[ind+1:]), nil
}

func (sc *su2Scanner) number(key string) (int, error) {
	tok, err := sc.token(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("su2: %s: %w", key, err)
	}
	return n, nil
}

// ReadSU2 parses a 2-d SU2 mesh with triangular elements and line boundary
// markers. Trailing per-line indices written by gmsh are tolerated.
func ReadSU2(r io.Reader) (*SU2Mesh, error) {
	sc := &su2Scanner{s: bufio.NewScanner(r)}

	dim, err := sc.number("NDIME")
	if err != nil {
		return nil, err
	}
	if dim != 2 {
		return nil, fmt.Errorf("su2: NDIME=%d, only 2-d meshes are supported", dim)
	}

	nElem, err := sc.number("NELEM")
	if err != nil {
		return nil, err
	}
	tri := make([][3]int, nElem)
	for k := 0; k < nElem; k++ {
		l, err := sc.line()
		if err != nil {
			return nil, err
		}
		var eType, v1, v2, v3 int
		if _, err := fmt.Sscanf(l, "%d %d %d %d", &eType, &v1, &v2, &v3); err != nil {
			return nil, fmt.Errorf("su2: element %d: %w", k, err)
		}
		if eType != su2Triangle {
			return nil, fmt.Errorf("su2: element %d has type %d, only triangles are supported",
				k, eType)
		}
		tri[k] = [3]int{v1, v2, v3}
	}

	nPoints, err := sc.number("NPOIN")
	if err != nil {
		return nil, err
	}
	pts := mat.NewDense(2, nPoints, nil)
	for i := 0; i < nPoints; i++ {
		l, err := sc.line()
		if err != nil {
			return nil, err
		}
		var x, y float64
		if _, err := fmt.Sscanf(l, "%f %f", &x, &y); err != nil {
			return nil, fmt.Errorf("su2: point %d: %w", i, err)
		}
		pts.Set(0, i, x)
		pts.Set(1, i, y)
	}

	nMark, err := sc.number("NMARK")
	if err != nil {
		return nil, err
	}
	markers := make(map[string][][2]int, nMark)
	for m := 0; m < nMark; m++ {
		label, err := sc.token("MARKER_TAG")
		if err != nil {
			return nil, err
		}
		nEdges, err := sc.number("MARKER_ELEMS")
		if err != nil {
			return nil, err
		}
		edges := markers[label] // duplicate tags append, e.g. periodic pairs
		for i := 0; i < nEdges; i++ {
			l, err := sc.line()
			if err != nil {
				return nil, err
			}
			var eType, v1, v2 int
			if _, err := fmt.Sscanf(l, "%d %d %d", &eType, &v1, &v2); err != nil {
				return nil, fmt.Errorf("su2: marker %q edge %d: %w", label, i, err)
			}
			if eType != su2Line {
				return nil, fmt.Errorf("su2: marker %q holds element type %d, want lines",
					label, eType)
			}
			edges = append(edges, [2]int{v1, v2})
		}
		markers[label] = edges
	}

	return &SU2Mesh{Points: pts, Triangles: tri, Markers: markers}, nil
}

// ReadSU2File opens and parses path.
func ReadSU2File(path string) (*SU2Mesh, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	m, err := ReadSU2(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Grid builds the triangle grid of the mesh.
func (m *SU2Mesh) Grid() (*Grid, error) {
	return NewTriangleGrid(m.Points, m.Triangles)
}

// MarkerFaces resolves the marker vertex pairs to face indices of g, which
// must have been built from this mesh. An edge that matches no face of g is
// an error.
func (m *SU2Mesh) MarkerFaces(g *Grid) (map[string][]int, error) {
	lookup := make(map[[2]int]int, g.NumFaces)
	for f, nn := range g.FaceNodeIDs {
		lookup[[2]int{nn[0], nn[1]}] = f
	}
	out := make(map[string][]int, len(m.Markers))
	for label, edges := range m.Markers {
		faces := make([]int, len(edges))
		for i, e := range edges {
			if e[0] > e[1] {
				e[0], e[1] = e[1], e[0]
			}
			f, ok := lookup[e]
			if !ok {
				return nil, fmt.Errorf("su2: marker %q edge (%d,%d) matches no face",
					label, e[0], e[1])
			}
			faces[i] = f
		}
		out[label] = faces
	}
	return out, nil
}
