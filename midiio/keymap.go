package midiio

// playKeys is the CLI play-mode keyboard layout: each rune maps in order
// onto consecutive MIDI notes starting at 60 (middle C).
const playKeys = "awsedftgyhujkolp;'"

var keyToNoteOffset = buildKeyOffsets(playKeys)

func buildKeyOffsets(keys string) map[rune]int {
	m := make(map[rune]int, len(keys))
	for i, r := range keys {
		m[r] = i
	}
	return m
}

// KeyToNote resolves a typed rune to a MIDI note number, 60 ("a") through
// 60+len(playKeys)-1 ("'"), or false if the rune isn't mapped.
func KeyToNote(r rune) (uint8, bool) {
	off, ok := keyToNoteOffset[r]
	if !ok {
		return 0, false
	}
	return uint8(60 + off), true
}
