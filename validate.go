package mdast

import (
	"bytes"
	"errors"
	"unicode/utf8"
)

var (
	// ErrInvalidUTF8 reports invalid UTF-8 input.
	ErrInvalidUTF8 = errors.New("invalid utf-8 input")
	// ErrBinaryInput reports input that appears to be binary.
	ErrBinaryInput = errors.New("binary input detected")
)

const (
	minBinarySample = 64
	maxControlPct   = 2
)

// ValidateInput returns an error if the input is not valid UTF-8 or appears binary.
func ValidateInput(src []byte) error {
	if !utf8.Valid(src) {
		return ErrInvalidUTF8
	}
	var total, control int
	for _, b := range src {
		total++
		if b == 0x00 {
			return ErrBinaryInput
		}
		if isControlByte(b) {
			control++
		}
	}
	if total >= minBinarySample && control*100 >= total*maxControlPct {
		return ErrBinaryInput
	}
	return nil
}

func isControlByte(b byte) bool {
	if b < 0x09 {
		return true
	}
	if b > 0x0D && b < 0x20 {
		return true
	}
	return b == 0x7F
}

var replacementChar = []byte("\uFFFD")

// Sanitize replaces every invalid UTF-8 sequence and every NUL byte with
// U+FFFD and returns the cleaned input with the number of replacements.
func Sanitize(src []byte) ([]byte, int) {
	out, stats := sanitize(src)
	return out, stats.invalid + stats.nul
}

type sanitizeStats struct {
	invalid, nul           int
	firstInvalid, firstNUL int
}

// sanitize is Sanitize that also records the 1-based line of the first
// replacement of each kind.
func sanitize(src []byte) ([]byte, sanitizeStats) {
	var stats sanitizeStats
	if utf8.Valid(src) && bytes.IndexByte(src, 0) < 0 {
		return src, stats
	}
	out := make([]byte, 0, len(src)+8)
	line := 1
	for i := 0; i < len(src); {
		r, size := utf8.DecodeRune(src[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			stats.invalid++
			if stats.firstInvalid == 0 {
				stats.firstInvalid = line
			}
			out = append(out, replacementChar...)
		case r == 0:
			stats.nul++
			if stats.firstNUL == 0 {
				stats.firstNUL = line
			}
			out = append(out, replacementChar...)
		default:
			if r == '\n' {
				line++
			}
			out = append(out, src[i:i+size]...)
		}
		i += size
	}
	return out, stats
}
