package grid

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var su2Square = []byte(`% unit square, four triangles around the center
NDIME= 2
NELEM= 4
5 0 1 4 0
5 1 2 4 1
5 2 3 4 2
5 3 0 4 3
NPOIN= 5
0 0 0
1 0 1
1 1 2
0 1 3
0.5 0.5 4
NMARK= 4
MARKER_TAG= bottom
MARKER_ELEMS= 1
3 0 1
MARKER_TAG= right
MARKER_ELEMS= 1
3 1 2
MARKER_TAG= top
MARKER_ELEMS= 1
3 2 3
MARKER_TAG= left
MARKER_ELEMS= 1
3 3 0
`)

func TestReadSU2(t *testing.T) {
	m, err := ReadSU2(bytes.NewReader(su2Square))
	require.NoError(t, err)

	r, c := m.Points.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 5, c)
	assert.Equal(t, 0.5, m.Points.At(0, 4))
	require.Len(t, m.Triangles, 4)
	assert.Equal(t, [3]int{3, 0, 4}, m.Triangles[3])
	require.Len(t, m.Markers, 4)
	assert.Equal(t, [][2]int{{1, 2}}, m.Markers["right"])
}

func TestSU2MeshGridAndMarkers(t *testing.T) {
	m, err := ReadSU2(bytes.NewReader(su2Square))
	require.NoError(t, err)
	g, err := m.Grid()
	require.NoError(t, err)
	assert.Equal(t, 4, g.NumCells)
	assert.Equal(t, 8, g.NumFaces)

	mf, err := m.MarkerFaces(g)
	require.NoError(t, err)
	boundary := make(map[int]bool)
	for _, f := range g.BoundaryFaces() {
		boundary[f] = true
	}
	for label, faces := range mf {
		require.Len(t, faces, 1, label)
		assert.True(t, boundary[faces[0]], "marker %s face %d not on boundary",
			label, faces[0])
	}
	// The four markers cover the whole boundary with no overlap.
	seen := make(map[int]bool)
	for _, faces := range mf {
		for _, f := range faces {
			assert.False(t, seen[f])
			seen[f] = true
		}
	}
	assert.Len(t, seen, len(boundary))
}

func TestReadSU2Rejects(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"3d mesh", "NDIME= 3\n"},
		{"quad element", "NDIME= 2\nNELEM= 1\n9 0 1 2 3\n"},
		{"missing key", "2\n"},
		{"truncated", "NDIME= 2\nNELEM= 2\n5 0 1 2\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadSU2(strings.NewReader(tc.input))
			assert.Error(t, err)
		})
	}
}

func TestSU2MarkerEdgeMismatch(t *testing.T) {
	m, err := ReadSU2(bytes.NewReader(su2Square))
	require.NoError(t, err)
	g, err := m.Grid()
	require.NoError(t, err)
	m.Markers["broken"] = [][2]int{{0, 2}} // diagonal, not a face
	_, err = m.MarkerFaces(g)
	assert.Error(t, err)
}
