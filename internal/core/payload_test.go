package core

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

const samplePayload = "| 序号 | 名称 |\n|---|---|\n| 1 | 产品A |"

func TestDecodePayloadBytes(t *testing.T) {
	utf16le, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(samplePayload))
	if err != nil {
		t.Fatal(err)
	}
	gb, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte(samplePayload))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		raw  []byte
	}{
		{"plain UTF-8", []byte(samplePayload)},
		{"UTF-8 BOM", append([]byte{0xEF, 0xBB, 0xBF}, samplePayload...)},
		{"UTF-16LE with BOM", utf16le},
		{"GB18030", gb},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayloadBytes(tt.raw)
			if err != nil {
				t.Fatalf("DecodePayloadBytes() error = %v", err)
			}
			if got != samplePayload {
				t.Errorf("DecodePayloadBytes() = %q, want %q", got, samplePayload)
			}
		})
	}
}

func TestDecodePayloadBytes_Undecodable(t *testing.T) {
	_, err := DecodePayloadBytes([]byte{'a', 0xFF})
	if !errors.Is(err, ErrEncoding) {
		t.Errorf("error = %v, want ErrEncoding", err)
	}
	if f := Classify(err); f.Code != "ENCODING_ERROR" {
		t.Errorf("Classify() code = %s, want ENCODING_ERROR", f.Code)
	}
}

func TestDecodePayload(t *testing.T) {
	got, err := DecodePayload(strings.NewReader(samplePayload))
	if err != nil || got != samplePayload {
		t.Errorf("DecodePayload() = %q, %v", got, err)
	}
}

func TestDecodePayload_TooLarge(t *testing.T) {
	big := bytes.Repeat([]byte("a"), MaxPayloadBytes+1)
	_, err := DecodePayload(bytes.NewReader(big))
	if !errors.Is(err, ErrInvalidData) {
		t.Errorf("error = %v, want ErrInvalidData", err)
	}
}
