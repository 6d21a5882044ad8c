package mdstream

import "unicode/utf8"

const (
	minBinarySample = 64
	maxControlPct   = 2
)

// ValidateInput returns ErrInvalidUTF8 or ErrBinaryInput when src cannot be
// streamed as markdown text.
func ValidateInput(src []byte) error {
	var v inputValidator
	rest, err := v.addBytes(src)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return ErrInvalidUTF8
	}
	return nil
}

// inputValidator tracks the share of control characters seen in a stream so
// binary input is rejected once enough of it has been read.
type inputValidator struct {
	total   int
	control int
}

// addBytes validates every complete rune in b and returns the trailing bytes
// of a rune split across reads.
func (v *inputValidator) addBytes(b []byte) ([]byte, error) {
	i := 0
	for i < len(b) && utf8.FullRune(b[i:]) {
		r, size := utf8.DecodeRune(b[i:])
		if err := v.addRune(r, size); err != nil {
			return nil, err
		}
		i += size
	}
	return b[i:], nil
}

func (v *inputValidator) addRune(r rune, size int) error {
	if r == utf8.RuneError && size == 1 {
		return ErrInvalidUTF8
	}
	if r == 0 {
		return ErrBinaryInput
	}
	v.total += size
	if isControlRune(r) {
		v.control++
		if v.total >= minBinarySample && v.control*100 >= v.total*maxControlPct {
			return ErrBinaryInput
		}
	}
	return nil
}

func isControlRune(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return false
	}
	return r < 0x20 || r == 0x7F
}

// sanitizeChunk appends the complete runes of src to dst, dropping invalid
// bytes and control characters. It returns the extended dst and the trailing
// bytes of a rune that continues in the next chunk.
func sanitizeChunk(dst, src []byte) ([]byte, []byte) {
	i := 0
	for i < len(src) && utf8.FullRune(src[i:]) {
		r, size := utf8.DecodeRune(src[i:])
		if (r != utf8.RuneError || size > 1) && !isControlRune(r) {
			dst = append(dst, src[i:i+size]...)
		}
		i += size
	}
	return dst, src[i:]
}
