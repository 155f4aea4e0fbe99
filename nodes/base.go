// Package nodes is the catalog of concrete graph.Node implementations and
// the factory registry the arranger and preset loader use to instantiate
// them by type tag.
package nodes

import "github.com/beamforge/beam/graph"

// paramSet is embedded by every node to implement the Parameters/
// GetParameter/SetParameter trio against a fixed, ordered parameter list —
// lifted from the wavetable engine's flat Params struct, generalized into a
// reusable table instead of one struct field per node type.
type paramSet struct {
	defs   []graph.Parameter
	values []float64
}

func newParamSet(defs []graph.Parameter) paramSet {
	values := make([]float64, len(defs))
	for i, d := range defs {
		values[i] = d.Default
	}
	return paramSet{defs: defs, values: values}
}

func (p *paramSet) Parameters() []graph.Parameter { return p.defs }

func (p *paramSet) GetParameter(id int) (float64, bool) {
	for i, d := range p.defs {
		if d.ID == id {
			return p.values[i], true
		}
	}
	return 0, false
}

func (p *paramSet) SetParameter(id int, value float64) bool {
	for i, d := range p.defs {
		if d.ID == id {
			p.values[i] = d.Clamp(value)
			return true
		}
	}
	return false
}

func (p *paramSet) val(id int) float64 {
	v, _ := p.GetParameter(id)
	return v
}

func (p *paramSet) clone() paramSet {
	values := make([]float64, len(p.values))
	copy(values, p.values)
	return paramSet{defs: p.defs, values: values}
}

// ports assigns each Port its index by position in the caller's declared
// list; audioPort/cvPort/midiPort build the single Ports it takes — small
// helpers to keep each node's port declarations readable.
func ports(types ...graph.Port) []graph.Port {
	out := make([]graph.Port, len(types))
	for i, t := range types {
		t.Index = i
		out[i] = t
	}
	return out
}

func audioPort(name string) graph.Port { return graph.Port{Name: name, Type: graph.Audio} }
func cvPort(name string) graph.Port    { return graph.Port{Name: name, Type: graph.CV} }
func midiPort(name string) graph.Port  { return graph.Port{Name: name, Type: graph.Midi} }

func clamp64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sumInto(dst, src []float32) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] += src[i]
	}
}
