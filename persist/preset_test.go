package persist

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beamforge/beam/graph"
	"github.com/beamforge/beam/nodes"
	"github.com/beamforge/beam/voice"
)

func buildSimpleGraph() (*graph.AudioGraph, graph.Handle, graph.Handle) {
	g := graph.New(64)
	osc := g.AddNode(nodes.NewOscillator())
	gain := g.AddNode(nodes.NewGain())
	if err := g.Connect(osc, 0, gain, 0); err != nil {
		panic(err)
	}
	g.SetOutputNode(gain)
	return g, osc, gain
}

func TestSaveGraphCapturesNodesConnectionsAndOutput(t *testing.T) {
	g, _, gain := buildSimpleGraph()
	gainNode, _ := g.Node(gain)
	gainNode.SetParameter(0, 0.25)

	p := SaveGraph(g)
	require.Len(t, p.Nodes, 2)
	require.Len(t, p.Connections, 1)
	require.True(t, p.HasOutput)
	require.Equal(t, p.Nodes[p.OutputNode].TypeTag, nodes.TagGain)
	require.InDelta(t, 0.25, p.Nodes[p.OutputNode].Parameters[0], 1e-9)
}

func TestSaveGraphThenLoadGraphRoundTripsTopologyAndParameters(t *testing.T) {
	g, _, gain := buildSimpleGraph()
	gainNode, _ := g.Node(gain)
	gainNode.SetParameter(0, 0.5)

	p := SaveGraph(g)
	loaded, err := LoadGraph(p, 64)
	require.NoError(t, err)
	require.Len(t, loaded.Nodes(), 2)
	require.Len(t, loaded.Edges(), 1)

	out, ok := loaded.OutputNode()
	require.True(t, ok)
	n, ok := loaded.Node(out)
	require.True(t, ok)
	require.Equal(t, nodes.TagGain, n.TypeTag())
	v, ok := n.GetParameter(0)
	require.True(t, ok)
	require.InDelta(t, 0.5, v, 1e-9)
}

func TestLoadGraphUnknownTypeTagReturnsError(t *testing.T) {
	p := &Preset{Nodes: []SerializedNode{{ID: 0, TypeTag: "not_a_real_node", Parameters: map[int]float64{}}}}
	_, err := LoadGraph(p, 64)
	require.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestSaveSampleDataRoundTripsSamplerPCMThroughLoadGraph(t *testing.T) {
	g := graph.New(64)
	s := g.AddNode(nodes.NewSampler())
	g.SetOutputNode(s)

	sampler, _ := g.Node(s)
	require.NoError(t, sampler.(*nodes.Sampler).SetSample(1, 44100, []float32{0, 0.25, 0.5, -0.5}))

	p := SaveGraph(g)
	require.NotNil(t, p.Nodes[0].SampleData)
	require.NotEmpty(t, p.Nodes[0].SampleData.EmbeddedPCM)

	loaded, err := LoadGraph(p, 64)
	require.NoError(t, err)
	out, _ := loaded.OutputNode()
	n, _ := loaded.Node(out)
	ch, rate, pcm := n.(*nodes.Sampler).Sample()
	require.Equal(t, 1, ch)
	require.Equal(t, 44100.0, rate)
	require.Equal(t, []float32{0, 0.25, 0.5, -0.5}, pcm)
}

func TestSaveGraphThenLoadGraphRoundTripsMultiSamplerLayers(t *testing.T) {
	g := graph.New(64)
	ms := g.AddNode(nodes.NewMultiSampler())
	g.SetOutputNode(ms)

	msNode, _ := g.Node(ms)
	msNode.(*nodes.MultiSampler).AddLayer(nodes.SamplerLayer{
		KeyMin: 0, KeyMax: 60, RootKey: 60, VelocityMin: 0, VelocityMax: 127,
		Channels: 1, SourceRate: 48000, PCM: []float32{1, 2, 3},
	})

	p := SaveGraph(g)
	require.Len(t, p.Nodes[0].SampleData.Layers, 1)

	loaded, err := LoadGraph(p, 64)
	require.NoError(t, err)
	out, _ := loaded.OutputNode()
	n, _ := loaded.Node(out)
	layers := n.(*nodes.MultiSampler).Layers()
	require.Len(t, layers, 1)
	require.Equal(t, []float32{1, 2, 3}, layers[0].PCM)
	require.Equal(t, 60, layers[0].RootKey)
}

func TestSaveGraphThenLoadGraphRoundTripsVoiceAllocatorTemplate(t *testing.T) {
	g := graph.New(64)
	alloc := g.AddNode(voice.NewAllocator(64))
	g.SetOutputNode(alloc)

	allocNode, _ := g.Node(alloc)
	va, ok := graph.AsVoiceAllocator(allocNode)
	require.True(t, ok)
	tg := va.TemplateGraph()
	osc := tg.AddNode(nodes.NewOscillator())
	tg.SetOutputNode(osc)
	va.RebuildVoices()

	p := SaveGraph(g)
	require.NotNil(t, p.Nodes[0].TemplateGraph)
	require.Len(t, p.Nodes[0].TemplateGraph.Nodes, 1)

	loaded, err := LoadGraph(p, 64)
	require.NoError(t, err)
	out, _ := loaded.OutputNode()
	n, _ := loaded.Node(out)
	loadedVA, ok := graph.AsVoiceAllocator(n)
	require.True(t, ok)
	require.Len(t, loadedVA.TemplateGraph().Nodes(), 1)
}

func TestDecodePCMRoundTripsThroughEncodePCM(t *testing.T) {
	in := []float32{0, 1, -1, 0.333333, -0.5}
	encoded := encodePCM(in)
	require.NotEmpty(t, encoded)
	out, err := decodePCM(encoded)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestEncodePCMEmptySliceEncodesToEmptyString(t *testing.T) {
	require.Equal(t, "", encodePCM(nil))
}

func TestDecodePCMEmptyStringDecodesToNilWithNoError(t *testing.T) {
	out, err := decodePCM("")
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestDecodePCMInvalidBase64ReturnsError(t *testing.T) {
	_, err := decodePCM("not valid base64!!")
	require.Error(t, err)
}
