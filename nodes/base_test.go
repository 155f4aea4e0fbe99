package nodes

import (
	"testing"

	"github.com/beamforge/beam/graph"
	"github.com/stretchr/testify/require"
)

func TestParamSetGetSetRoundTrips(t *testing.T) {
	p := newParamSet([]graph.Parameter{
		{ID: 0, Name: "a", Min: 0, Max: 10, Default: 1},
		{ID: 1, Name: "b", Min: -1, Max: 1, Default: 0},
	})
	require.True(t, p.SetParameter(1, 0.5))
	v, ok := p.GetParameter(1)
	require.True(t, ok)
	require.Equal(t, 0.5, v)
}

func TestParamSetClampsOutOfRangeValues(t *testing.T) {
	p := newParamSet([]graph.Parameter{{ID: 0, Name: "a", Min: 0, Max: 10, Default: 1}})
	p.SetParameter(0, 100)
	require.Equal(t, 10.0, p.val(0))
	p.SetParameter(0, -50)
	require.Equal(t, 0.0, p.val(0))
}

func TestParamSetUnknownIDReportsNotFound(t *testing.T) {
	p := newParamSet(nil)
	require.False(t, p.SetParameter(0, 1))
	_, ok := p.GetParameter(0)
	require.False(t, ok)
}

func TestParamSetCloneIsIndependent(t *testing.T) {
	p := newParamSet([]graph.Parameter{{ID: 0, Name: "a", Min: 0, Max: 10, Default: 1}})
	clone := p.clone()
	clone.SetParameter(0, 5)
	require.NotEqual(t, p.val(0), clone.val(0))
}

func TestPortsAssignsIndexByPosition(t *testing.T) {
	ps := ports(audioPort("in"), cvPort("mod"), midiPort("midi"))
	require.Equal(t, 0, ps[0].Index)
	require.Equal(t, graph.Audio, ps[0].Type)
	require.Equal(t, 1, ps[1].Index)
	require.Equal(t, graph.CV, ps[1].Type)
	require.Equal(t, 2, ps[2].Index)
	require.Equal(t, graph.Midi, ps[2].Type)
}

func TestClamp64ClampsToRange(t *testing.T) {
	require.Equal(t, 0.0, clamp64(-5, 0, 1))
	require.Equal(t, 1.0, clamp64(5, 0, 1))
	require.Equal(t, 0.5, clamp64(0.5, 0, 1))
}

func TestSumIntoAccumulatesShorterSource(t *testing.T) {
	dst := []float32{1, 1, 1}
	sumInto(dst, []float32{1, 2})
	require.Equal(t, []float32{2, 3, 1}, dst)
}
