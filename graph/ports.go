package graph

// typeLocalIndex recomputes, from a node's declared port list, the
// type-separated local index for a given global port index: the k-th
// audio/CV port uses scratch slot k among audio/CV ports, the k-th MIDI
// port uses scratch slot k among MIDI ports. Spec.md §9 calls this out
// explicitly: implementations must derive this from the declared port
// list every time, never from a running "count matching ports so far"
// expression that can be wrong when the checked port isn't of the target
// type.
func typeLocalIndex(ports []Port, globalIndex int) (local int, isMidi bool, ok bool) {
	if globalIndex < 0 || globalIndex >= len(ports) {
		return 0, false, false
	}
	target := ports[globalIndex]
	audioCVSeen, midiSeen := 0, 0
	for i, p := range ports {
		if i == globalIndex {
			if target.Type == Midi {
				return midiSeen, true, true
			}
			return audioCVSeen, false, true
		}
		if p.Type == Midi {
			midiSeen++
		} else {
			audioCVSeen++
		}
	}
	return 0, false, false
}

// countByKind returns how many ports in the list are MIDI and how many are
// audio/CV, used to size a node's buffer slices.
func countByKind(ports []Port) (audioCV, midi int) {
	for _, p := range ports {
		if p.Type == Midi {
			midi++
		} else {
			audioCV++
		}
	}
	return audioCV, midi
}
