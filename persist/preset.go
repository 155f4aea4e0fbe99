// Package persist implements preset serialization and the .beam project
// bundle format: freezing an AudioGraph's topology and parameters into a
// versioned document and rehydrating it through the node registry.
package persist

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"

	"github.com/beamforge/beam/graph"
	"github.com/beamforge/beam/nodes"
	"github.com/beamforge/beam/voice"
)

var (
	ErrUnknownNodeType = errors.New("persist: unknown node type")
	ErrVersionMismatch = errors.New("persist: incompatible bundle version")
)

// SerializedNode is one node's frozen state: id, type tag, parameter
// values by id, and optional sampler/voice-allocator payload.
type SerializedNode struct {
	ID            int             `json:"id"`
	TypeTag       string          `json:"type_tag"`
	Parameters    map[int]float64 `json:"parameters"`
	PositionX     float64         `json:"position_x"`
	PositionY     float64         `json:"position_y"`
	SampleData    *SampleData     `json:"sample_data,omitempty"`
	TemplateGraph *Preset         `json:"template_graph,omitempty"`
}

// SampleData carries either a single sampler's PCM content or a
// multi-sampler's keymapped layers.
type SampleData struct {
	Path        string        `json:"path,omitempty"`
	EmbeddedPCM string        `json:"embedded_pcm,omitempty"` // base64 f32 LE
	Channels    int           `json:"channels,omitempty"`
	SampleRate  float64       `json:"sample_rate,omitempty"`
	Layers      []SampleLayer `json:"layers,omitempty"`
}

// SampleLayer is one MultiSampler keymap entry.
type SampleLayer struct {
	KeyMin      int     `json:"key_min"`
	KeyMax      int     `json:"key_max"`
	RootKey     int     `json:"root_key"`
	VelocityMin int     `json:"velocity_min"`
	VelocityMax int     `json:"velocity_max"`
	LoopStart   float64 `json:"loop_start"`
	LoopEnd     float64 `json:"loop_end"`
	LoopMode    int     `json:"loop_mode"`
	Channels    int     `json:"channels"`
	SourceRate  float64 `json:"source_rate"`
	EmbeddedPCM string  `json:"embedded_pcm,omitempty"`
}

// SerializedConnection is one graph edge, addressed by SerializedNode.ID.
type SerializedConnection struct {
	FromNode int `json:"from_node"`
	FromPort int `json:"from_port"`
	ToNode   int `json:"to_node"`
	ToPort   int `json:"to_port"`
}

// Preset is the complete frozen state of one AudioGraph.
type Preset struct {
	Nodes       []SerializedNode       `json:"nodes"`
	Connections []SerializedConnection `json:"connections"`
	MidiTargets []int                  `json:"midi_targets"`
	OutputNode  int                    `json:"output_node"`
	HasOutput   bool                   `json:"has_output"`
}

// SaveGraph freezes g into a Preset. Sampler PCM is embedded as base64;
// SampleData.Path is not set here, and the project bundle writer does not
// set it either.
func SaveGraph(g *graph.AudioGraph) *Preset {
	pairs := g.Nodes()
	ids := make(map[graph.Handle]int, len(pairs))
	for i, p := range pairs {
		ids[p.Handle] = i
	}

	p := &Preset{}
	for i, pair := range pairs {
		n := pair.Node
		sn := SerializedNode{ID: i, TypeTag: n.TypeTag(), Parameters: make(map[int]float64)}
		for _, param := range n.Parameters() {
			if v, ok := n.GetParameter(param.ID); ok {
				sn.Parameters[param.ID] = v
			}
		}

		sn.SampleData = SaveSampleData(n)

		if va, ok := graph.AsVoiceAllocator(n); ok {
			sn.TemplateGraph = SaveGraph(va.TemplateGraph())
		}

		p.Nodes = append(p.Nodes, sn)

		if g.IsMidiTarget(pair.Handle) {
			p.MidiTargets = append(p.MidiTargets, i)
		}
	}

	for _, e := range g.Edges() {
		p.Connections = append(p.Connections, SerializedConnection{
			FromNode: ids[e.From], FromPort: e.FromPort,
			ToNode: ids[e.To], ToPort: e.ToPort,
		})
	}

	if out, ok := g.OutputNode(); ok {
		p.OutputNode = ids[out]
		p.HasOutput = true
	}
	return p
}

// SaveSampleData returns a Sampler or MultiSampler node's PCM content as
// SampleData with base64-embedded f32 LE audio, or nil for any other node
// type.
func SaveSampleData(n graph.Node) *SampleData {
	switch t := n.(type) {
	case *nodes.Sampler:
		channels, sampleRate, pcm := t.Sample()
		return &SampleData{Channels: channels, SampleRate: sampleRate, EmbeddedPCM: encodePCM(pcm)}
	case *nodes.MultiSampler:
		sd := &SampleData{}
		for _, l := range t.Layers() {
			sd.Layers = append(sd.Layers, SampleLayer{
				KeyMin: l.KeyMin, KeyMax: l.KeyMax, RootKey: l.RootKey,
				VelocityMin: l.VelocityMin, VelocityMax: l.VelocityMax,
				LoopStart: l.LoopStart, LoopEnd: l.LoopEnd, LoopMode: l.LoopMode,
				Channels: l.Channels, SourceRate: l.SourceRate,
				EmbeddedPCM: encodePCM(l.PCM),
			})
		}
		return sd
	default:
		return nil
	}
}

func newVoiceAllocatorNode(blockSize int) graph.Node {
	return voice.NewAllocator(blockSize)
}

// LoadGraph reconstructs an AudioGraph from a Preset via the node registry.
func LoadGraph(p *Preset, blockSize int) (*graph.AudioGraph, error) {
	g := graph.New(blockSize)
	handles := make([]graph.Handle, len(p.Nodes))

	for _, sn := range p.Nodes {
		n, ok := nodes.New(sn.TypeTag)
		if !ok {
			if sn.TypeTag == "voice_allocator" {
				n = newVoiceAllocatorNode(blockSize)
			} else {
				return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, sn.TypeTag)
			}
		}
		for id, v := range sn.Parameters {
			n.SetParameter(id, v)
		}
		if sn.SampleData != nil {
			if err := applySampleData(n, sn.SampleData); err != nil {
				return nil, err
			}
		}
		if va, ok := graph.AsVoiceAllocator(n); ok && sn.TemplateGraph != nil {
			tg, err := LoadGraph(sn.TemplateGraph, blockSize)
			if err != nil {
				return nil, err
			}
			*va.TemplateGraph() = *tg
			va.RebuildVoices()
		}
		handles[sn.ID] = g.AddNode(n)
	}

	for _, c := range p.Connections {
		if err := g.Connect(handles[c.FromNode], c.FromPort, handles[c.ToNode], c.ToPort); err != nil {
			return nil, fmt.Errorf("persist: reconnecting node %d->%d: %w", c.FromNode, c.ToNode, err)
		}
	}
	for _, id := range p.MidiTargets {
		g.SetMidiTarget(handles[id], true)
	}
	if p.HasOutput {
		g.SetOutputNode(handles[p.OutputNode])
	}
	return g, nil
}

func applySampleData(n graph.Node, sd *SampleData) error {
	switch t := n.(type) {
	case *nodes.MultiSampler:
		for _, l := range sd.Layers {
			pcm, err := decodePCM(l.EmbeddedPCM)
			if err != nil {
				return err
			}
			t.AddLayer(nodes.SamplerLayer{
				KeyMin: l.KeyMin, KeyMax: l.KeyMax, RootKey: l.RootKey,
				VelocityMin: l.VelocityMin, VelocityMax: l.VelocityMax,
				LoopStart: l.LoopStart, LoopEnd: l.LoopEnd, LoopMode: l.LoopMode,
				Channels: l.Channels, SourceRate: l.SourceRate, PCM: pcm,
			})
		}
		return nil
	default:
		settable, ok := graph.AsSampleSettable(n)
		if !ok || sd.EmbeddedPCM == "" {
			return nil
		}
		pcm, err := decodePCM(sd.EmbeddedPCM)
		if err != nil {
			return err
		}
		return settable.SetSample(sd.Channels, sd.SampleRate, pcm)
	}
}

func decodePCM(b64 string) ([]float32, error) {
	if b64 == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		bits := uint32(raw[4*i]) | uint32(raw[4*i+1])<<8 | uint32(raw[4*i+2])<<16 | uint32(raw[4*i+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}

func encodePCM(pcm []float32) string {
	if len(pcm) == 0 {
		return ""
	}
	raw := make([]byte, len(pcm)*4)
	for i, s := range pcm {
		bits := math.Float32bits(s)
		raw[4*i] = byte(bits)
		raw[4*i+1] = byte(bits >> 8)
		raw[4*i+2] = byte(bits >> 16)
		raw[4*i+3] = byte(bits >> 24)
	}
	return base64.StdEncoding.EncodeToString(raw)
}
