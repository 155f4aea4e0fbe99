package persist

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/beamforge/beam/arranger"
	"github.com/beamforge/beam/audioio"
	"github.com/beamforge/beam/graph"
)

// BundleVersion is the current project.json schema version. Load rejects
// any document whose version differs.
const BundleVersion = "1.0.0"

func init() {
	zip.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
	zip.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
}

const projectJSONName = "project.json"

// ProjectDocument is the root of project.json: UI state plus the frozen
// audio project and its clip-pool metadata.
type ProjectDocument struct {
	Version      string          `json:"version"`
	Created      string          `json:"created"`
	Modified     string          `json:"modified"`
	UIState      json.RawMessage `json:"ui_state,omitempty"`
	AudioBackend AudioBackendDoc `json:"audio_backend"`
}

// AudioBackendDoc is the engine-facing half of the document: the sample
// rate tracks were rendered at and the track tree plus pool metadata.
type AudioBackendDoc struct {
	SampleRate       float64          `json:"sample_rate"`
	Project          ProjectDoc       `json:"project"`
	AudioPoolEntries []AudioPoolEntry `json:"audio_pool_entries"`
}

// ProjectDoc is the track tree, flattened into an id-addressed map so
// Group children can reference siblings without duplicating subtrees.
type ProjectDoc struct {
	Tracks       map[string]TrackNode `json:"tracks"`
	RootTracks   []string             `json:"root_tracks"`
	MidiClipPool []MidiClipDoc        `json:"midi_clip_pool"`
}

// TrackNode is one flattened Track, tagged by kind.
type TrackNode struct {
	Kind   string  `json:"kind"` // "audio", "midi", or "group"
	Name   string  `json:"name"`
	Volume float32 `json:"volume"`
	Pan    float32 `json:"pan"`
	Muted  bool    `json:"muted"`
	Soloed bool    `json:"soloed"`

	Instances  []ClipInstanceDoc `json:"instances,omitempty"`  // audio, midi
	Instrument *Preset           `json:"instrument,omitempty"` // midi only
	Children   []string          `json:"children,omitempty"`   // group only
}

// ClipInstanceDoc is one arranger.ClipInstance.
type ClipInstanceDoc struct {
	PoolIndex       int     `json:"pool_index"`
	StartSeconds    float64 `json:"start_seconds"`
	SourceOffset    float64 `json:"source_offset"`
	DurationSeconds float64 `json:"duration_seconds"`
	Gain            float32 `json:"gain"`
}

// MidiClipDoc is one arranger.MidiClip, stored by pool index position.
type MidiClipDoc struct {
	Events          []MidiClipEventDoc `json:"events"`
	DurationSeconds float64            `json:"duration_seconds"`
}

// MidiClipEventDoc is one arranger.MidiClipEvent.
type MidiClipEventDoc struct {
	TimeSeconds float64 `json:"time_seconds"`
	Status      uint8   `json:"status"`
	Data1       uint8   `json:"data1"`
	Data2       uint8   `json:"data2"`
}

// AudioPoolEntry is one AudioClipPool slot's metadata. EmbeddedData is
// always nil in the saved document; binary audio lives under
// media/audio/ in the ZIP, not inline in JSON. LoadBundle does not fill it
// either: decoded audio goes straight into the returned AudioClipPool.
type AudioPoolEntry struct {
	PoolIndex       int                `json:"pool_index"`
	Name            string             `json:"name,omitempty"`
	RelativePath    string             `json:"relative_path,omitempty"`
	DurationSeconds float64            `json:"duration"`
	Channels        int                `json:"channels"`
	SampleRate      float64            `json:"sample_rate"`
	EmbeddedData    *EmbeddedAudioData `json:"embedded_data,omitempty"`
}

// EmbeddedAudioData is the inline-PCM shape of a pool entry; Format names
// the media kind ("wav" or "flac"). SaveBundle and LoadBundle leave it
// unset.
type EmbeddedAudioData struct {
	Format string `json:"format"`
	PCM    string `json:"pcm"` // base64 f32 LE
}

// LoadResult is a reconstructed project plus anything the loader couldn't
// fully resolve.
type LoadResult struct {
	Project      *arranger.Project
	AudioPool    *arranger.AudioClipPool
	MidiPool     *arranger.MidiClipPool
	MissingFiles []string
}

// SaveBundle writes proj, audioPool, and midiPool as a .beam project
// bundle at path: back up any existing bundle, freeze AudioGraphs into
// presets, resolve each pool entry's bytes in priority order (old ZIP,
// external file, encoded PCM), write project.json, then finalize.
func SaveBundle(path string, proj *arranger.Project, audioPool *arranger.AudioClipPool, midiPool *arranger.MidiClipPool, uiState json.RawMessage, now string) error {
	old, oldMedia := openOldBundle(path)

	created := now
	if old != nil && old.Created != "" {
		created = old.Created
	}

	doc := ProjectDocument{
		Version:  BundleVersion,
		Created:  created,
		Modified: now,
		UIState:  uiState,
		AudioBackend: AudioBackendDoc{
			SampleRate: proj.SampleRate,
		},
	}

	trackDoc, rootIDs := flattenTracks(proj.Roots)
	doc.AudioBackend.Project.Tracks = trackDoc
	doc.AudioBackend.Project.RootTracks = rootIDs
	doc.AudioBackend.Project.MidiClipPool = saveMidiClipPool(midiPool)

	backupExisting(path)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("persist: creating bundle: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	entries, err := writeAudioMedia(zw, audioPool, oldMedia)
	if err != nil {
		zw.Close()
		return err
	}
	doc.AudioBackend.AudioPoolEntries = entries

	jw, err := zw.CreateHeader(&zip.FileHeader{Name: projectJSONName, Method: zip.Deflate})
	if err != nil {
		zw.Close()
		return fmt.Errorf("persist: writing %s: %w", projectJSONName, err)
	}
	enc := json.NewEncoder(jw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		zw.Close()
		return fmt.Errorf("persist: encoding %s: %w", projectJSONName, err)
	}

	return zw.Close()
}

// backupExisting copies any bundle already at path to path+".bak" before
// it's overwritten, so original media bytes remain recoverable.
func backupExisting(path string) {
	src, err := os.Open(path)
	if err != nil {
		return
	}
	defer src.Close()
	dst, err := os.Create(path + ".bak")
	if err != nil {
		return
	}
	defer dst.Close()
	io.Copy(dst, src)
}

// openOldBundle reads a preexisting bundle's document and an index of its
// media entries by relative path, for reuse during save. Both are nil if
// no prior bundle exists or it can't be parsed.
func openOldBundle(path string) (*ProjectDocument, map[string][]byte) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil
	}
	defer zr.Close()

	var doc *ProjectDocument
	media := make(map[string][]byte)
	for _, zf := range zr.File {
		if zf.Name == projectJSONName {
			rc, err := zf.Open()
			if err != nil {
				continue
			}
			var d ProjectDocument
			if json.NewDecoder(rc).Decode(&d) == nil {
				doc = &d
			}
			rc.Close()
			continue
		}
		if filepath.Dir(zf.Name) == "media/audio" {
			rc, err := zf.Open()
			if err != nil {
				continue
			}
			b, err := io.ReadAll(rc)
			rc.Close()
			if err == nil {
				media[zf.Name] = b
			}
		}
	}
	return doc, media
}

// writeAudioMedia resolves each pool entry's bytes — old ZIP, then
// external source file, then a freshly encoded WAV of the in-memory
// PCM — and writes them under media/audio/, returning the metadata rows
// for project.json.
func writeAudioMedia(zw *zip.Writer, pool *arranger.AudioClipPool, oldMedia map[string][]byte) ([]AudioPoolEntry, error) {
	var entries []AudioPoolEntry
	for i := 0; ; i++ {
		f := pool.Get(i)
		if f == nil {
			break
		}

		ext := ".wav"
		var data []byte
		var err error

		if old := findOldMedia(oldMedia, i); old != nil {
			data = old.bytes
			ext = old.ext
		} else if f.Path != "" {
			if data, err = os.ReadFile(f.Path); err == nil {
				ext = filepath.Ext(f.Path)
			}
		}
		if data == nil {
			var buf sliceWriteSeeker
			if err := audioio.EncodeWAV(&buf, f); err != nil {
				return nil, fmt.Errorf("persist: encoding pool entry %d: %w", i, err)
			}
			data = buf.data
			ext = ".wav"
		}

		rel := fmt.Sprintf("media/audio/%d%s", i, ext)
		w, err := zw.CreateHeader(&zip.FileHeader{Name: rel, Method: zip.Store})
		if err != nil {
			return nil, fmt.Errorf("persist: writing %s: %w", rel, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("persist: writing %s: %w", rel, err)
		}

		entries = append(entries, AudioPoolEntry{
			PoolIndex: i, Name: filepath.Base(f.Path), RelativePath: rel,
			DurationSeconds: f.DurationSeconds(), Channels: f.Channels, SampleRate: f.SampleRate,
		})
	}
	return entries, nil
}

type oldMediaEntry struct {
	bytes []byte
	ext   string
}

func findOldMedia(oldMedia map[string][]byte, poolIndex int) *oldMediaEntry {
	prefix := "media/audio/" + strconv.Itoa(poolIndex) + "."
	for name, b := range oldMedia {
		if strings.HasPrefix(name, prefix) {
			return &oldMediaEntry{bytes: b, ext: filepath.Ext(name)}
		}
	}
	return nil
}

// LoadBundle opens path, validates its version, and reconstructs the
// project, clip pools, and any externally-referenced files it couldn't
// find.
func LoadBundle(path string, blockSize int) (*LoadResult, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("persist: opening bundle: %w", err)
	}
	defer zr.Close()

	var doc ProjectDocument
	found := false
	media := make(map[string][]byte)
	for _, zf := range zr.File {
		if zf.Name == projectJSONName {
			rc, err := zf.Open()
			if err != nil {
				return nil, fmt.Errorf("persist: opening %s: %w", projectJSONName, err)
			}
			err = json.NewDecoder(rc).Decode(&doc)
			rc.Close()
			if err != nil {
				return nil, fmt.Errorf("persist: decoding %s: %w", projectJSONName, err)
			}
			found = true
			continue
		}
		if filepath.Dir(zf.Name) == "media/audio" {
			rc, err := zf.Open()
			if err != nil {
				continue
			}
			b, err := io.ReadAll(rc)
			rc.Close()
			if err == nil {
				media[zf.Name] = b
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("persist: %s missing from bundle", projectJSONName)
	}
	if doc.Version != BundleVersion {
		return nil, fmt.Errorf("%w: bundle is %s, reader expects %s", ErrVersionMismatch, doc.Version, BundleVersion)
	}

	audioPool := arranger.NewAudioClipPool()
	var missing []string
	sortedEntries := append([]AudioPoolEntry(nil), doc.AudioBackend.AudioPoolEntries...)
	sort.Slice(sortedEntries, func(i, j int) bool { return sortedEntries[i].PoolIndex < sortedEntries[j].PoolIndex })
	for _, e := range sortedEntries {
		b, ok := media[e.RelativePath]
		if !ok {
			missing = append(missing, e.RelativePath)
			audioPool.Add(&arranger.AudioFile{Channels: e.Channels, SampleRate: e.SampleRate})
			continue
		}
		af, err := decodeMediaBytes(e.RelativePath, b)
		if err != nil {
			return nil, fmt.Errorf("persist: decoding %s: %w", e.RelativePath, err)
		}
		audioPool.Add(af)
	}

	midiPool := loadMidiClipPool(doc.AudioBackend.Project.MidiClipPool)

	proj := arranger.NewProject(doc.AudioBackend.SampleRate, 2)
	roots, err := rebuildTracks(doc.AudioBackend.Project.Tracks, doc.AudioBackend.Project.RootTracks, audioPool, midiPool, blockSize)
	if err != nil {
		return nil, err
	}
	proj.Roots = roots

	return &LoadResult{Project: proj, AudioPool: audioPool, MidiPool: midiPool, MissingFiles: missing}, nil
}

func decodeMediaBytes(relPath string, b []byte) (*arranger.AudioFile, error) {
	switch filepath.Ext(relPath) {
	case ".flac":
		return audioio.DecodeFLACReader(bytes.NewReader(b))
	default:
		return audioio.DecodeWAVReader(bytes.NewReader(b))
	}
}

func flattenTracks(roots []arranger.Track) (map[string]TrackNode, []string) {
	out := make(map[string]TrackNode)
	var rootIDs []string
	for _, t := range roots {
		rootIDs = append(rootIDs, t.ID())
		flattenTrack(t, out)
	}
	return out, rootIDs
}

func flattenTrack(t arranger.Track, out map[string]TrackNode) {
	base := TrackNode{
		Name: t.Name(), Volume: t.Volume(), Pan: t.Pan(),
		Muted: t.Muted(), Soloed: t.Soloed(),
	}
	switch tr := t.(type) {
	case *arranger.AudioTrack:
		base.Kind = "audio"
		base.Instances = saveClipInstances(tr.Instances)
	case *arranger.MidiTrack:
		base.Kind = "midi"
		base.Instances = saveClipInstances(tr.Instances)
		if tr.Instrument != nil {
			base.Instrument = SaveGraph(tr.Instrument)
		}
	case *arranger.Group:
		base.Kind = "group"
		for _, c := range tr.Children {
			base.Children = append(base.Children, c.ID())
			flattenTrack(c, out)
		}
	}
	out[t.ID()] = base
}

func saveClipInstances(instances []arranger.ClipInstance) []ClipInstanceDoc {
	var out []ClipInstanceDoc
	for _, ci := range instances {
		out = append(out, ClipInstanceDoc{
			PoolIndex: ci.PoolIndex, StartSeconds: ci.StartSeconds,
			SourceOffset: ci.SourceOffset, DurationSeconds: ci.DurationSeconds, Gain: ci.Gain,
		})
	}
	return out
}

func loadClipInstances(docs []ClipInstanceDoc) []arranger.ClipInstance {
	var out []arranger.ClipInstance
	for _, d := range docs {
		out = append(out, arranger.ClipInstance{
			PoolIndex: d.PoolIndex, StartSeconds: d.StartSeconds,
			SourceOffset: d.SourceOffset, DurationSeconds: d.DurationSeconds, Gain: d.Gain,
		})
	}
	return out
}

func saveMidiClipPool(pool *arranger.MidiClipPool) []MidiClipDoc {
	var out []MidiClipDoc
	for i := 0; ; i++ {
		c := pool.Get(i)
		if c == nil {
			break
		}
		d := MidiClipDoc{DurationSeconds: c.DurationSeconds}
		for _, e := range c.Events {
			d.Events = append(d.Events, MidiClipEventDoc{
				TimeSeconds: e.TimeSeconds, Status: e.Status, Data1: e.Data1, Data2: e.Data2,
			})
		}
		out = append(out, d)
	}
	return out
}

func loadMidiClipPool(docs []MidiClipDoc) *arranger.MidiClipPool {
	pool := arranger.NewMidiClipPool()
	for _, d := range docs {
		c := &arranger.MidiClip{DurationSeconds: d.DurationSeconds}
		for _, e := range d.Events {
			c.Events = append(c.Events, arranger.MidiClipEvent{
				TimeSeconds: e.TimeSeconds, Status: e.Status, Data1: e.Data1, Data2: e.Data2,
			})
		}
		pool.Add(c)
	}
	return pool
}

// rebuildTracks reconstructs the track tree from its flattened form,
// recursing into Group children before returning the caller's requested
// subset (top level: root_tracks).
func rebuildTracks(nodes map[string]TrackNode, ids []string, audioPool *arranger.AudioClipPool, midiPool *arranger.MidiClipPool, blockSize int) ([]arranger.Track, error) {
	var out []arranger.Track
	for _, id := range ids {
		t, err := rebuildTrack(id, nodes, audioPool, midiPool, blockSize)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func rebuildTrack(id string, nodes map[string]TrackNode, audioPool *arranger.AudioClipPool, midiPool *arranger.MidiClipPool, blockSize int) (arranger.Track, error) {
	n, ok := nodes[id]
	if !ok {
		return nil, fmt.Errorf("persist: track %q missing from document", id)
	}

	switch n.Kind {
	case "audio":
		t := arranger.NewAudioTrack(n.Name, audioPool)
		applyBaseState(t, n)
		t.Instances = loadClipInstances(n.Instances)
		return t, nil
	case "midi":
		var instrument *graph.AudioGraph
		if n.Instrument != nil {
			g, err := LoadGraph(n.Instrument, blockSize)
			if err != nil {
				return nil, err
			}
			instrument = g
		} else {
			instrument = graph.New(blockSize)
		}
		t := arranger.NewMidiTrack(n.Name, midiPool, instrument)
		applyBaseState(t, n)
		t.Instances = loadClipInstances(n.Instances)
		return t, nil
	case "group":
		var children []arranger.Track
		for _, cid := range n.Children {
			c, err := rebuildTrack(cid, nodes, audioPool, midiPool, blockSize)
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		g := arranger.NewGroup(n.Name, children...)
		applyBaseState(g, n)
		return g, nil
	default:
		return nil, fmt.Errorf("persist: track %q: unknown kind %q", id, n.Kind)
	}
}

func applyBaseState(t arranger.Track, n TrackNode) {
	t.SetVolume(n.Volume)
	t.SetPan(n.Pan)
	t.SetMuted(n.Muted)
	t.SetSoloed(n.Soloed)
}

// sliceWriteSeeker is a minimal in-memory io.WriteSeeker, letting
// EncodeWAV (which needs to seek back and patch RIFF chunk sizes) target
// a ZIP media entry instead of a file on disk.
type sliceWriteSeeker struct {
	data []byte
	pos  int
}

func (s *sliceWriteSeeker) Write(p []byte) (int, error) {
	end := s.pos + len(p)
	if end > len(s.data) {
		grown := make([]byte, end)
		copy(grown, s.data)
		s.data = grown
	}
	copy(s.data[s.pos:end], p)
	s.pos = end
	return len(p), nil
}

func (s *sliceWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = s.pos
	case io.SeekEnd:
		base = len(s.data)
	default:
		return 0, errors.New("persist: invalid seek whence")
	}
	newPos := base + int(offset)
	if newPos < 0 {
		return 0, errors.New("persist: negative seek position")
	}
	s.pos = newPos
	return int64(newPos), nil
}
