package idea

import (
	"fmt"
	"strings"

	gobug "go.bug.st/serial"
)

type Parity gobug.Parity

func (pa Parity) Get() gobug.Parity {
	return gobug.Parity(pa)
}

const (
	// ParityNone represents no parity bit
	ParityNone = Parity(gobug.NoParity)
	// ParityOdd represents odd parity bit
	ParityOdd = Parity(gobug.OddParity)
	// ParityEven represents even parity bit
	ParityEven = Parity(gobug.EvenParity)
	// ParityMark represents mark parity bit (always 1)
	ParityMark = Parity(gobug.MarkParity)
	// ParitySpace represents space parity bit (always 0)
	ParitySpace = Parity(gobug.SpaceParity)
)

var parityLetters = map[Parity]string{
	ParityNone:  "N",
	ParityOdd:   "O",
	ParityEven:  "E",
	ParityMark:  "M",
	ParitySpace: "S",
}

func (pa Parity) String() string {
	if s, ok := parityLetters[pa]; ok {
		return s
	}
	return fmt.Sprintf("Parity(%d)", int(pa))
}

// ParseParity accepts the single-letter forms N, O, E, M and S in any case.
// An empty string means no parity.
func ParseParity(s string) (Parity, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ParityNone, nil
	}
	for p, letter := range parityLetters {
		if letter == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unsupported parity %q (use N, O, E, M or S)", s)
}
