package core

// payload.go turns raw correction bytes into text.
//
// Corrections are pasted from chat tools, exported from editors or piped
// through shells, so the bytes may carry a BOM, be UTF-16, or be in the
// legacy GB18030 code page used by Chinese Windows installs:
//
//   - UTF-8 and UTF-16 BOMs are honoured and stripped
//   - BOM-less input that is valid UTF-8 is used as is
//   - anything else is decoded as GB18030
//
// Input that still fails to decode is rejected with ErrEncoding.

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MaxPayloadBytes caps the size of a correction payload.
const MaxPayloadBytes = 8 << 20

// DecodePayload reads r fully and returns its text content.
func DecodePayload(r io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxPayloadBytes+1))
	if err != nil {
		return "", fmt.Errorf("read payload: %w", err)
	}
	if len(raw) > MaxPayloadBytes {
		return "", fmt.Errorf("%w: payload exceeds %d bytes", ErrInvalidData, MaxPayloadBytes)
	}
	return DecodePayloadBytes(raw)
}

// DecodePayloadBytes is DecodePayload for an in-memory payload.
func DecodePayloadBytes(raw []byte) (string, error) {
	if hasBOM(raw) {
		// BOMOverride switches to the encoding the BOM names and drops it.
		dec := unicode.BOMOverride(encoding.Nop.NewDecoder())
		out, _, err := transform.Bytes(dec, raw)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrEncoding, err)
		}
		if !utf8.Valid(out) {
			return "", fmt.Errorf("%w: invalid UTF-8 after BOM", ErrEncoding)
		}
		return string(out), nil
	}

	if utf8.Valid(raw) {
		return string(raw), nil
	}

	out, err := simplifiedchinese.GB18030.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", fmt.Errorf("%w: payload is neither UTF-8 nor GB18030", ErrEncoding)
	}
	return string(out), nil
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

func hasBOM(b []byte) bool {
	return bytes.HasPrefix(b, bomUTF8) || bytes.HasPrefix(b, bomUTF16BE) || bytes.HasPrefix(b, bomUTF16LE)
}
