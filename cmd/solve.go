package cmd

import (
	"fmt"
	"math"
	"os"

	"github.com/ghodss/yaml"
	"github.com/james-bowman/sparse"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meshflow/hybridvem/grid"
	"github.com/meshflow/hybridvem/params"
	"github.com/meshflow/hybridvem/solver"
	"github.com/meshflow/hybridvem/vem"
)

// InputParameters is the YAML case description. The grid is either a
// structured triangular split of a rectangle (Nx, PhysDims) with pressure
// held on the left and right edges, or an SU2 mesh file whose boundary
// markers carry the Dirichlet values; unlisted markers become no-flow.
type InputParameters struct {
	Title         string             `yaml:"Title"`
	Nx            [2]int             `yaml:"Nx"`
	PhysDims      [2]float64         `yaml:"PhysDims"`
	MeshFile      string             `yaml:"MeshFile"`
	Dirichlet     map[string]float64 `yaml:"Dirichlet"`
	Permeability  float64            `yaml:"Permeability"`
	Source        float64            `yaml:"Source"`
	LeftPressure  float64            `yaml:"LeftPressure"`
	RightPressure float64            `yaml:"RightPressure"`
	Parallel      bool               `yaml:"Parallel"`
}

func (ip *InputParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *InputParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	if ip.MeshFile != "" {
		fmt.Printf("%s\t\t= MeshFile\n", ip.MeshFile)
	} else {
		fmt.Printf("%v\t\t= Nx\n", ip.Nx)
		fmt.Printf("%v\t= PhysDims\n", ip.PhysDims)
	}
	fmt.Printf("%8.5f\t= Permeability\n", ip.Permeability)
	fmt.Printf("%8.5f\t= Source\n", ip.Source)
	fmt.Printf("%8.5f\t= LeftPressure\n", ip.LeftPressure)
	fmt.Printf("%8.5f\t= RightPressure\n", ip.RightPressure)
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Discretize and solve a Darcy case on a structured triangular grid",
	Run: func(cmd *cobra.Command, args []string) {
		caseFile, err := cmd.Flags().GetString("caseFile")
		if err != nil {
			panic(err)
		}
		if prof, _ := cmd.Flags().GetBool("profile"); prof {
			defer profile.Start().Stop()
		}

		ip := defaultCase()
		if caseFile != "" {
			data, err := os.ReadFile(caseFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			if err = ip.Parse(data); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		}
		ip.Print()
		if err := runCase(ip); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func init() {
	solveCmd.Flags().String("caseFile", "", "YAML case description")
	solveCmd.Flags().Bool("profile", false, "write a CPU profile")
	rootCmd.AddCommand(solveCmd)
}

func defaultCase() *InputParameters {
	ip := &InputParameters{
		Title:         "unit square pressure drop",
		Nx:            [2]int{8, 8},
		PhysDims:      [2]float64{1, 1},
		Permeability:  1,
		LeftPressure:  1,
		RightPressure: 0,
	}
	if v := viper.GetInt("nx"); v > 0 {
		ip.Nx = [2]int{v, v}
	}
	return ip
}

func runCase(ip *InputParameters) error {
	g, markerFaces, err := buildGrid(ip)
	if err != nil {
		return err
	}
	if err = g.ComputeGeometry(); err != nil {
		return err
	}
	fmt.Printf("grid: %d cells, %d faces, %d nodes\n",
		g.NumCells, g.NumFaces, g.NumNodes)

	var (
		bFaces []int
		labels []string
		dirVal = make([]float64, g.NumFaces)
	)
	if markerFaces != nil {
		for label, faces := range markerFaces {
			v, isDir := ip.Dirichlet[label]
			for _, f := range faces {
				bFaces = append(bFaces, f)
				if isDir {
					labels = append(labels, params.Dirichlet)
					dirVal[f] = v
				} else {
					labels = append(labels, params.Neumann)
				}
			}
		}
	} else {
		tol := 1e-10
		for _, f := range g.BoundaryFaces() {
			x := g.FaceCenters.At(0, f)
			switch {
			case math.Abs(x) < tol:
				bFaces = append(bFaces, f)
				labels = append(labels, params.Dirichlet)
				dirVal[f] = ip.LeftPressure
			case math.Abs(x-ip.PhysDims[0]) < tol:
				bFaces = append(bFaces, f)
				labels = append(labels, params.Dirichlet)
				dirVal[f] = ip.RightPressure
			default:
				bFaces = append(bFaces, f)
				labels = append(labels, params.Neumann)
			}
		}
	}
	bc, err := params.NewBoundaryCondition(g.NumFaces, bFaces, labels)
	if err != nil {
		return err
	}

	kxx := make([]float64, g.NumCells)
	src := make([]float64, g.NumCells)
	for c := range kxx {
		kxx[c] = ip.Permeability
		src[c] = ip.Source
	}
	data := &vem.Data{
		K:      params.NewIsotropicTensor(kxx),
		Source: src,
		BC:     bc,
		BCVal: params.BoundaryValues{
			params.Dirichlet: dirVal,
			params.Neumann:   make([]float64, g.NumFaces),
		},
	}

	var hd vem.HybridDualVEM
	var (
		H   *sparse.CSR
		rhs []float64
	)
	if ip.Parallel {
		H, rhs, err = hd.MatrixRHSParallel(g, data, 0)
	} else {
		H, rhs, err = hd.MatrixRHS(g, data)
	}
	if err != nil {
		return err
	}
	l, err := solver.Direct(H, rhs)
	if err != nil {
		return err
	}
	u, p, err := hd.ComputeUP(g, l, data)
	if err != nil {
		return err
	}

	var pMin, pMax = math.Inf(1), math.Inf(-1)
	for _, v := range p {
		pMin = math.Min(pMin, v)
		pMax = math.Max(pMax, v)
	}
	var uMax float64
	for _, v := range u {
		uMax = math.Max(uMax, math.Abs(v))
	}
	fmt.Printf("pressure range [%g, %g], max |face flux| %g\n", pMin, pMax, uMax)
	return nil
}

// buildGrid constructs the case grid; for a mesh file it also resolves the
// boundary markers to face indices.
func buildGrid(ip *InputParameters) (*grid.Grid, map[string][]int, error) {
	if ip.MeshFile == "" {
		g, err := grid.NewStructuredTriangleGrid(ip.Nx, ip.PhysDims)
		return g, nil, err
	}
	m, err := grid.ReadSU2File(ip.MeshFile)
	if err != nil {
		return nil, nil, err
	}
	g, err := m.Grid()
	if err != nil {
		return nil, nil, err
	}
	markerFaces, err := m.MarkerFaces(g)
	if err != nil {
		return nil, nil, err
	}
	return g, markerFaces, nil
}
