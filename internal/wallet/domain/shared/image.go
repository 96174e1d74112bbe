// Package shared provides value objects used by both issuer profiles and credentials.
//
// Domain Purity: no I/O and no context.Context. Remote images are fetched by the
// parser and handed here as bytes.
package shared

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

const dataScheme = "data:"

var (
	ErrEmptyImage       = errors.New("image data is empty")
	ErrNotAnImage       = errors.New("payload is not an image")
	ErrMalformedDataURI = errors.New("malformed data uri")
)

// Image is an inline image with its media type. The zero value means "no image".
type Image struct {
	mediaType string
	data      []byte
}

// NewImage creates an Image. data must be non-empty and mediaType must be an image type.
func NewImage(mediaType string, data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil || !strings.HasPrefix(mt, "image/") {
		return Image{}, fmt.Errorf("%w: media type %q", ErrNotAnImage, mediaType)
	}
	return Image{mediaType: mediaType, data: bytes.Clone(data)}, nil
}

// ImageFromBytes sniffs the media type of a fetched payload.
func ImageFromBytes(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}
	return NewImage(SniffMediaType(data), data)
}

// ParseDataURI decodes an RFC 2397 data URI. Both base64 and percent-encoded payloads are accepted.
func ParseDataURI(s string) (Image, error) {
	if !IsDataURI(s) {
		return Image{}, ErrMalformedDataURI
	}
	header, payload, ok := strings.Cut(s[len(dataScheme):], ",")
	if !ok {
		return Image{}, fmt.Errorf("%w: missing payload separator", ErrMalformedDataURI)
	}

	mediaType, isBase64 := dataURIHeader(header)
	var data []byte
	var err error
	if isBase64 {
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
	} else {
		var unescaped string
		unescaped, err = url.PathUnescape(payload)
		data = []byte(unescaped)
	}
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrMalformedDataURI, err)
	}
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}
	if mediaType == "" {
		mediaType = SniffMediaType(data)
	}
	return NewImage(mediaType, data)
}

// dataURIHeader splits a data URI header into its media type and base64 flag.
// Bare parameter tokens such as "utf8" are dropped; mime.ParseMediaType rejects them.
func dataURIHeader(header string) (string, bool) {
	parts := strings.Split(header, ";")
	isBase64 := len(parts) > 1 && strings.EqualFold(strings.TrimSpace(parts[len(parts)-1]), "base64")
	if isBase64 {
		parts = parts[:len(parts)-1]
	}
	kept := parts[:1]
	for _, p := range parts[1:] {
		if strings.Contains(p, "=") {
			kept = append(kept, p)
		}
	}
	if strings.TrimSpace(kept[0]) == "" {
		return "", isBase64
	}
	return strings.Join(kept, ";"), isBase64
}

// IsDataURI reports whether s uses the data: scheme.
func IsDataURI(s string) bool {
	return len(s) >= len(dataScheme) && strings.EqualFold(s[:len(dataScheme)], dataScheme)
}

// SniffMediaType detects the media type of an image payload. SVG is text to the
// standard sniffer, so it is recognised separately.
func SniffMediaType(data []byte) string {
	mt := http.DetectContentType(data)
	if strings.HasPrefix(mt, "image/") {
		return mt
	}
	head := data[:min(len(data), 512)]
	if bytes.Contains(bytes.ToLower(head), []byte("<svg")) {
		return "image/svg+xml"
	}
	return mt
}

// DataURI encodes the image as a self-contained data URI.
func (i Image) DataURI() string {
	if i.IsZero() {
		return ""
	}
	return dataScheme + i.mediaType + ";base64," + base64.StdEncoding.EncodeToString(i.data)
}

func (i Image) MediaType() string {
	return i.mediaType
}

// Data returns a copy of the image bytes.
func (i Image) Data() []byte {
	return bytes.Clone(i.data)
}

func (i Image) Len() int {
	return len(i.data)
}

func (i Image) IsZero() bool {
	return len(i.data) == 0
}

// Equal compares media type and content.
func (i Image) Equal(other Image) bool {
	return i.mediaType == other.mediaType && bytes.Equal(i.data, other.data)
}
