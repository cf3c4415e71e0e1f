package chunk

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/awalterschulze/gographviz"
	"github.com/gorgonia/sparse/compute"
)

type bufferNode struct {
	Name string
	Size compute.Int3
}

// ToDot renders the dataflow of one encoder step: the stages of Activate and Learn, and the
// double buffers each of them reads from and writes to.
func (e *Encoder) ToDot() string {
	g := gographviz.NewGraph()
	if err := g.SetName("G"); err != nil {
		panic(err)
	}
	g.SetDir(true)

	var buf bytes.Buffer
	addBuffer := func(id, name string, size compute.Int3) {
		bufferTmpl.Execute(&buf, bufferNode{name, size})
		g.AddNode("G", id, map[string]string{
			"fontname": "Monaco",
			"shape":    "none",
			"label":    buf.String(),
		})
		buf.Reset()
	}
	addStage := func(id, kernel string) {
		g.AddNode("G", id, map[string]string{
			"shape": "box",
			"label": fmt.Sprintf("%q", kernel),
		})
	}
	edge := func(from, to string) { g.AddEdge(from, to, true, nil) }

	addBuffer("temp", "hiddenSummationTemp", e.hiddenSummationTemp.Size())
	addBuffer("activations", "hiddenActivations", e.hiddenActivations.Size())
	addBuffer("states", "hiddenStates", e.hiddenStates.Size())
	addBuffer("winners", "chunkWinners", e.chunkWinners.Size())

	for i := range e.visibleLayers {
		vl := &e.visibleLayers[i]
		input := fmt.Sprintf("input%d", i)
		derived := fmt.Sprintf("derived%d", i)
		samples := fmt.Sprintf("samples%d", i)
		weights := fmt.Sprintf("weights%d", i)
		addBuffer(input, fmt.Sprintf("input %d", i), compute.Int3{X: e.conf.Visible[i].Size.X, Y: e.conf.Visible[i].Size.Y, Z: 1})
		addBuffer(derived, fmt.Sprintf("derivedInput %d", i), vl.DerivedInput.Size())
		addBuffer(samples, fmt.Sprintf("samples %d", i), vl.Samples.Size())
		addBuffer(weights, fmt.Sprintf("weights %d", i), vl.Weights.Size())

		deriveStage := fmt.Sprintf("derive%d", i)
		sampleStage := fmt.Sprintf("addSample%d", i)
		stimStage := fmt.Sprintf("stimulus%d", i)
		learnStage := fmt.Sprintf("learn%d", i)
		addStage(deriveStage, DeriveInputsKernel)
		addStage(sampleStage, AddSampleKernel)
		addStage(stimStage, StimulusKernel)
		addStage(learnStage, LearnWeightsKernel)

		edge(input, deriveStage)
		edge(deriveStage, derived)
		edge(derived, sampleStage)
		edge(sampleStage, samples)
		edge(samples, stimStage)
		edge(weights, stimStage)
		edge(stimStage, "temp")

		edge(samples, learnStage)
		edge("winners", learnStage)
		edge(learnStage, weights)
	}

	addStage("activate", ActivateKernel)
	addStage("inhibit", InhibitKernel)
	edge("temp", "activate")
	edge("states", "activate")
	edge("activate", "activations")
	edge("activations", "inhibit")
	edge("inhibit", "states")
	edge("inhibit", "winners")
	return g.String()
}

const bufferTmplRaw = `<
<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0">
<TR><TD>Buffer</TD><TD>{{.Name}}</TD></TR>
<TR><TD>Size</TD><TD>{{.Size}}</TD></TR>
</TABLE>
>
`

var bufferTmpl *template.Template

func init() {
	bufferTmpl = template.Must(template.New("buffer").Parse(bufferTmplRaw))
}
