// Package notes holds the equal-tempered note table and the chord shapes used
// to name and build waveforms.
package notes

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Names lists the twelve pitch classes in table order.
var Names = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// table[name][octave] in Hz. Notes from E upward stop at octave 7.
var table = map[string][]float64{
	"C":  {16.35, 32.7, 65.41, 130.81, 261.63, 523.25, 1046.5, 2093.0, 4186.01},
	"C#": {17.32, 34.65, 69.3, 138.59, 277.18, 554.37, 1108.73, 2217.46, 4434.92},
	"D":  {18.35, 36.71, 73.42, 146.83, 293.66, 587.33, 1174.66, 2349.32, 4698.64},
	"D#": {19.45, 38.89, 77.78, 155.56, 311.13, 622.25, 1244.51, 2489.02, 4978.03},
	"E":  {20.6, 41.2, 82.41, 164.81, 329.63, 659.26, 1318.51, 2637.02},
	"F":  {21.83, 43.65, 87.31, 174.61, 349.23, 698.46, 1396.91, 2793.83},
	"F#": {23.12, 46.25, 92.5, 185.0, 369.99, 739.99, 1479.98, 2959.96},
	"G":  {24.5, 49.0, 98.0, 196.0, 392.0, 783.99, 1567.98, 3135.96},
	"G#": {25.96, 51.91, 103.83, 207.65, 415.3, 830.61, 1661.22, 3322.44},
	"A":  {27.5, 55.0, 110.0, 220.0, 440.0, 880.0, 1760.0, 3520.0},
	"A#": {29.14, 58.27, 116.54, 233.08, 466.16, 932.33, 1864.66, 3729.31},
	"B":  {30.87, 61.74, 123.47, 246.94, 493.88, 987.77, 1975.53, 3951.07},
}

var flats = map[string]string{
	"DB": "C#",
	"EB": "D#",
	"GB": "F#",
	"AB": "G#",
	"BB": "A#",
}

// Lookup returns the frequency of a pitch class at an octave.
func Lookup(name string, octave int) (float64, bool) {
	name = canonical(name)
	freqs, ok := table[name]
	if !ok || octave < 0 || octave >= len(freqs) {
		return 0, false
	}
	return freqs[octave], true
}

// Frequency resolves a frequency token: either a plain number of Hz or a note
// id such as "C5", "c#4" or "Eb3".
func Frequency(token string) (float64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, fmt.Errorf("empty frequency")
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return 0, fmt.Errorf("frequency %q out of range", token)
		}
		return f, nil
	}
	if len(token) < 2 {
		return 0, fmt.Errorf("unknown note %q", token)
	}
	octave, err := strconv.Atoi(token[len(token)-1:])
	if err != nil {
		return 0, fmt.Errorf("unknown note %q", token)
	}
	f, ok := Lookup(token[:len(token)-1], octave)
	if !ok {
		return 0, fmt.Errorf("unknown note %q", token)
	}
	return f, nil
}

// Pitch splits a table frequency into its pitch class and octave.
func Pitch(freq float64) (name string, octave int, ok bool) {
	for _, n := range Names {
		for o, f := range table[n] {
			if f == freq {
				return n, o, true
			}
		}
	}
	return "", 0, false
}

// Name returns the note id ("C5") of an exact table frequency.
func Name(freq float64) (string, bool) {
	n, o, ok := Pitch(freq)
	if !ok {
		return "", false
	}
	return n + strconv.Itoa(o), true
}

func canonical(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if c, ok := flats[name]; ok {
		return c
	}
	return name
}
