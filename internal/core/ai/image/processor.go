// Package image validates and normalizes base64 image payloads before they
// are sent to a vision model.
package image

import (
	"encoding/base64"
	"fmt"
	"strings"

	"recipe-importer/internal/pkg/common"
)

// Sniffable image formats and their data-URI media types.
var imageSignatures = map[string]string{
	"\xff\xd8\xff":      "image/jpeg",
	"\x89PNG\r\n\x1a\n": "image/png",
	"GIF8":              "image/gif",
	"RIFF":              "image/webp",
}

// Processor validates incoming image payloads.
type Processor struct {
	maxSizeBytes int64
}

// NewProcessor creates an image processor with a decoded-size ceiling.
func NewProcessor(maxSizeBytes int64) *Processor {
	return &Processor{maxSizeBytes: maxSizeBytes}
}

// Normalize validates a base64 payload (with or without a data-URI prefix)
// and returns it as a data URI suitable for a vision model message.
func (p *Processor) Normalize(imageData string) (string, error) {
	imageData = strings.TrimSpace(imageData)
	if imageData == "" {
		return "", common.NewValidationError("image data is empty")
	}

	raw := imageData
	if strings.HasPrefix(imageData, "data:") {
		idx := strings.Index(imageData, ",")
		if idx < 0 {
			return "", common.NewValidationError("malformed image data URI")
		}
		raw = imageData[idx+1:]
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", common.NewValidationError("image data is not valid base64")
	}
	if p.maxSizeBytes > 0 && int64(len(decoded)) > p.maxSizeBytes {
		return "", common.NewValidationError(
			fmt.Sprintf("image exceeds maximum size of %d bytes", p.maxSizeBytes))
	}

	mediaType := sniffMediaType(decoded)
	if mediaType == "" {
		return "", common.NewValidationError("unsupported image format")
	}

	return "data:" + mediaType + ";base64," + raw, nil
}

func sniffMediaType(data []byte) string {
	for sig, mediaType := range imageSignatures {
		if len(data) >= len(sig) && string(data[:len(sig)]) == sig {
			return mediaType
		}
	}
	return ""
}
