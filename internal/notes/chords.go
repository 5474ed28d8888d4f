package notes

import "slices"

type Chord struct {
	Name  string
	Notes []string
}

type ChordGroup struct {
	Name   string
	Chords []Chord
}

var ChordGroups = []ChordGroup{
	{"major", []Chord{
		{"Cmaj", []string{"C", "E", "G"}},
		{"C#maj", []string{"C#", "F", "G#"}},
		{"Dmaj", []string{"D", "F#", "A"}},
		{"D#maj", []string{"D#", "G", "A#"}},
		{"Emaj", []string{"E", "G#", "B"}},
		{"Fmaj", []string{"F", "A", "C"}},
		{"F#maj", []string{"F#", "A#", "C#"}},
		{"Gmaj", []string{"G", "B", "D"}},
		{"G#maj", []string{"G#", "C", "D#"}},
		{"Amaj", []string{"A", "C#", "E"}},
		{"A#maj", []string{"A#", "D", "F"}},
		{"Bmaj", []string{"B", "D#", "F#"}},
	}},
	{"minor", []Chord{
		{"Cmin", []string{"C", "D#", "G"}},
		{"C#min", []string{"C#", "E", "G#"}},
		{"Dmin", []string{"D", "F", "A"}},
		{"D#min", []string{"D#", "F#", "A#"}},
		{"Emin", []string{"E", "G", "B"}},
		{"Fmin", []string{"F", "G#", "C"}},
		{"F#min", []string{"F#", "A", "C#"}},
		{"Gmin", []string{"G", "A#", "D"}},
		{"G#min", []string{"G#", "B", "D#"}},
		{"Amin", []string{"A", "C", "E"}},
		{"A#min", []string{"A#", "C#", "F"}},
		{"Bmin", []string{"B", "D", "F#"}},
	}},
	{"major7th", []Chord{
		{"Cmaj7", []string{"C", "E", "G", "B"}},
		{"C#maj7", []string{"C#", "F", "G#", "C"}},
		{"Dmaj7", []string{"D", "F#", "A", "C#"}},
		{"D#maj7", []string{"D#", "G", "A#", "D"}},
		{"Emaj7", []string{"E", "G#", "B", "D#"}},
		{"Fmaj7", []string{"F", "A", "C", "E"}},
		{"F#maj7", []string{"F#", "A#", "C#", "F"}},
		{"Gmaj7", []string{"G", "B", "D", "F#"}},
		{"G#maj7", []string{"G#", "C", "D#", "G"}},
		{"Amaj7", []string{"A", "C#", "E", "G#"}},
		{"A#maj7", []string{"A#", "D", "F", "A"}},
		{"Bmaj7", []string{"B", "D#", "F#", "A#"}},
	}},
	{"minor7th", []Chord{
		{"Cmin7", []string{"C", "D#", "G", "A#"}},
		{"C#min7", []string{"C#", "E", "G#", "B"}},
		{"Dmin7", []string{"D", "F", "A", "C"}},
		{"D#min7", []string{"D#", "F#", "A#", "C#"}},
		{"Emin7", []string{"E", "G", "B", "D"}},
		{"Fmin7", []string{"F", "G#", "C", "D#"}},
		{"F#min7", []string{"F#", "A", "C#", "E"}},
		{"Gmin7", []string{"G", "A#", "D", "F"}},
		{"G#min7", []string{"G#", "B", "D#", "G"}},
		{"Amin7", []string{"A", "C", "E", "G"}},
		{"A#min7", []string{"A#", "C#", "F", "G#"}},
		{"Bmin7", []string{"B", "D", "F#", "A"}},
	}},
}

// LookupChord finds a chord by name in any group.
func LookupChord(name string) (Chord, bool) {
	for _, g := range ChordGroups {
		for _, c := range g.Chords {
			if c.Name == name {
				return c, true
			}
		}
	}
	return Chord{}, false
}

// ChordName returns the name of the chord whose notes equal names, in order.
func ChordName(names []string) (string, bool) {
	for _, g := range ChordGroups {
		for _, c := range g.Chords {
			if slices.Equal(c.Notes, names) {
				return c.Name, true
			}
		}
	}
	return "", false
}

// ChordFrequencies resolves a chord's notes at one octave. Notes missing from
// the table at that octave are skipped.
func ChordFrequencies(name string, octave int) ([]float64, bool) {
	c, ok := LookupChord(name)
	if !ok {
		return nil, false
	}
	freqs := make([]float64, 0, len(c.Notes))
	for _, n := range c.Notes {
		if f, ok := Lookup(n, octave); ok {
			freqs = append(freqs, f)
		}
	}
	return freqs, true
}
