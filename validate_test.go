package mdstream

import "testing"

func TestValidateInputRejectsInvalidUTF8(t *testing.T) {
	data := []byte{0xff, 0xfe, 0xfd}
	if err := ValidateInput(data); err != ErrInvalidUTF8 {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
	if err := ValidateInput([]byte("abc\xe2\x82")); err != ErrInvalidUTF8 {
		t.Fatalf("truncated rune should be invalid, got %v", err)
	}
}

func TestValidateInputRejectsBinary(t *testing.T) {
	data := append([]byte("hello"), 0x00)
	if err := ValidateInput(data); err != ErrBinaryInput {
		t.Fatalf("expected ErrBinaryInput, got %v", err)
	}
}

func TestValidateInputAcceptsText(t *testing.T) {
	if err := ValidateInput([]byte("# Title\n\nplain text\twith tabs\r\n")); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
}

func TestValidatorCarriesSplitRune(t *testing.T) {
	var v inputValidator
	rest, err := v.addBytes([]byte("ok\xe2\x82"))
	if err != nil || string(rest) != "\xe2\x82" {
		t.Fatalf("expected split rune carry, got %q %v", rest, err)
	}
}

func TestSanitizeChunk(t *testing.T) {
	clean, rest := sanitizeChunk(nil, []byte("a\x00b\xffc\xf0\x9f"))
	if string(clean) != "abc" {
		t.Fatalf("unexpected clean bytes %q", clean)
	}
	if string(rest) != "\xf0\x9f" {
		t.Fatalf("unexpected carry %q", rest)
	}
}
