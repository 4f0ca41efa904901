package image

import (
	"encoding/base64"
	"strings"
	"testing"

	"recipe-importer/internal/pkg/common"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13}

func TestNormalize(t *testing.T) {
	p := NewProcessor(1024)
	raw := base64.StdEncoding.EncodeToString(pngBytes)

	t.Run("bare base64", func(t *testing.T) {
		got, err := p.Normalize(raw)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(got, "data:image/png;base64,") {
			t.Errorf("got %q, want sniffed png data URI", got)
		}
	})

	t.Run("existing data uri re-sniffed", func(t *testing.T) {
		got, err := p.Normalize("data:application/octet-stream;base64," + raw)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(got, "data:image/png;base64,") {
			t.Errorf("got %q, media type must come from the bytes", got)
		}
	})

	t.Run("jpeg", func(t *testing.T) {
		jpeg := base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff, 0xe0, 0, 0})
		got, err := p.Normalize(jpeg)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(got, "data:image/jpeg;base64,") {
			t.Errorf("got %q", got)
		}
	})
}

func TestNormalizeRejections(t *testing.T) {
	p := NewProcessor(16)

	tests := []struct {
		name  string
		input string
	}{
		{"empty", "   "},
		{"not base64", "!!!"},
		{"malformed data uri", "data:image/png;base64"},
		{"unknown format", base64.StdEncoding.EncodeToString([]byte("plain text"))},
		{"too large", base64.StdEncoding.EncodeToString(append(pngBytes, make([]byte, 100)...))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Normalize(tt.input)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !common.IsValidationError(err) {
				t.Errorf("err = %v, want a validation error", err)
			}
		})
	}
}
