package shared

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG.
var pngPixel, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

func TestParseDataURI(t *testing.T) {
	t.Run("base64 png round trips with media type", func(t *testing.T) {
		uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngPixel)

		img, err := ParseDataURI(uri)

		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MediaType())
		assert.Equal(t, pngPixel, img.Data())
		assert.Equal(t, uri, img.DataURI())
	})

	t.Run("percent encoded svg", func(t *testing.T) {
		img, err := ParseDataURI("data:image/svg+xml,%3Csvg%20xmlns%3D%22http%3A%2F%2Fwww.w3.org%2F2000%2Fsvg%22%2F%3E")

		require.NoError(t, err)
		assert.Equal(t, "image/svg+xml", img.MediaType())
		assert.Contains(t, string(img.Data()), "<svg")
	})

	t.Run("bare utf8 parameter is ignored", func(t *testing.T) {
		img, err := ParseDataURI("data:image/svg+xml;utf8,%3Csvg%20xmlns%3D%27http%3A%2F%2Fwww.w3.org%2F2000%2Fsvg%27%2F%3E")

		require.NoError(t, err)
		assert.Equal(t, "image/svg+xml", img.MediaType())
		assert.Contains(t, string(img.Data()), "<svg")
	})

	t.Run("charset parameter is kept", func(t *testing.T) {
		img, err := ParseDataURI("data:image/svg+xml;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte("<svg/>")))

		require.NoError(t, err)
		assert.Equal(t, "image/svg+xml;charset=utf-8", img.MediaType())
	})

	t.Run("missing media type is sniffed", func(t *testing.T) {
		img, err := ParseDataURI("data:;base64," + base64.StdEncoding.EncodeToString(pngPixel))

		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MediaType())
	})

	t.Run("unpadded base64 is accepted", func(t *testing.T) {
		img, err := ParseDataURI("data:image/png;base64," + base64.RawStdEncoding.EncodeToString(pngPixel))

		require.NoError(t, err)
		assert.Equal(t, pngPixel, img.Data())
	})

	for name, uri := range map[string]string{
		"no separator":   "data:image/png;base64",
		"bad base64":     "data:image/png;base64,***",
		"empty payload":  "data:image/png;base64,",
		"not an image":   "data:text/plain;base64,aGVsbG8=",
		"not a data uri": "https://example.org/logo.png",
	} {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := ParseDataURI(uri)
			assert.Error(t, err)
		})
	}
}

func TestImageFromBytes(t *testing.T) {
	img, err := ImageFromBytes(pngPixel)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MediaType())

	_, err = ImageFromBytes(nil)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = ImageFromBytes([]byte("<html><body>not found</body></html>"))
	assert.ErrorIs(t, err, ErrNotAnImage)

	svg, err := ImageFromBytes([]byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"></svg>`))
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", svg.MediaType())
}

func TestImage_IsImmutable(t *testing.T) {
	src := append([]byte(nil), pngPixel...)
	img, err := NewImage("image/png", src)
	require.NoError(t, err)

	src[0] = 0
	out := img.Data()
	out[1] = 0

	assert.Equal(t, pngPixel, img.Data())
	assert.True(t, img.Equal(mustImage(t, pngPixel)))
	assert.True(t, Image{}.IsZero())
	assert.Empty(t, Image{}.DataURI())
}

func mustImage(t *testing.T, data []byte) Image {
	t.Helper()
	img, err := NewImage("image/png", data)
	require.NoError(t, err)
	return img
}
