// Package playlist reads and writes the one-line-per-player text form of a
// player list:
//
//	<freq> <kind>,<freq> <kind>,..., <steps>, <label>
//
// Frequencies stay textual here (a number of Hz or a note id like "C5");
// resolving them is up to the caller.
package playlist

import (
	"math"
	"strconv"
	"strings"

	"github.com/cbegin/wavestep-go/internal/osc"
)

// DefaultLabel is used for lines that carry steps but no label.
const DefaultLabel = "Wave"

const defaultSteps = 1

type Term struct {
	Freq string
	Kind osc.Kind
}

type Line struct {
	Terms []Term
	Steps float64
	Label string
}

// Encode writes one line per entry.
func Encode(lines []Line) string {
	var sb strings.Builder
	for _, l := range lines {
		for _, t := range l.Terms {
			sb.WriteString(t.Freq)
			sb.WriteByte(' ')
			sb.WriteString(t.Kind.String())
			sb.WriteByte(',')
		}
		sb.WriteByte(' ')
		sb.WriteString(FormatNumber(l.Steps))
		sb.WriteString(", ")
		sb.WriteString(l.Label)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatNumber renders v with the fewest digits that parse back exactly.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Decode parses every line of text, skipping lines without any usable term.
func Decode(text string) []Line {
	var out []Line
	for _, raw := range strings.Split(text, "\n") {
		if l, ok := DecodeLine(raw); ok {
			out = append(out, l)
		}
	}
	return out
}

// DecodeLine parses a single line. The last comma-separated token is the
// label. When the label is numeric and the token before it is not, the line
// has no label: the number is the steps value and the label becomes
// DefaultLabel. Otherwise the token before the label is the steps value.
func DecodeLine(line string) (Line, bool) {
	tokens := strings.Split(strings.TrimRight(line, "\r"), ",")
	if len(tokens) < 2 {
		return Line{}, false
	}
	label := strings.TrimSpace(tokens[len(tokens)-1])
	tokens = tokens[:len(tokens)-1]

	var stepsTok string
	if isNumber(label) && !isNumber(tokens[len(tokens)-1]) {
		stepsTok = label
		label = DefaultLabel
	} else {
		stepsTok = tokens[len(tokens)-1]
		tokens = tokens[:len(tokens)-1]
	}

	terms := make([]Term, 0, len(tokens))
	for _, tok := range tokens {
		if t, ok := parseTerm(tok); ok {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return Line{}, false
	}
	return Line{Terms: terms, Steps: parseSteps(stepsTok), Label: label}, true
}

func parseTerm(tok string) (Term, bool) {
	fields := strings.Fields(tok)
	if len(fields) == 0 {
		return Term{}, false
	}
	kind := osc.Sine
	if len(fields) > 1 {
		k, err := osc.ParseKind(fields[1])
		if err != nil {
			return Term{}, false
		}
		kind = k
	}
	return Term{Freq: fields[0], Kind: kind}, true
}

func parseSteps(tok string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return defaultSteps
	}
	return v
}

// isNumber accepts finite numbers only, so labels such as "NaN" or "inf"
// stay labels.
func isNumber(tok string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
	return err == nil && !math.IsNaN(v) && !math.IsInf(v, 0)
}
