// cmd/verilens/image_test.go
package main

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal PNG file header; enough for content sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func TestEncodeImageEmpty(t *testing.T) {
	_, err := EncodeImage(nil)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrorTypeImage))
}

func TestEncodeImageDetectsPNG(t *testing.T) {
	uri, err := EncodeImage(pngHeader)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}

func TestEncodeImageDetectsJPEG(t *testing.T) {
	uri, err := EncodeImage(jpegHeader)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/jpeg;base64,"))
}

// Unsniffable bytes keep the historical JPEG tag rather than failing.
func TestEncodeImageFallsBackToJPEG(t *testing.T) {
	uri, err := EncodeImage([]byte("definitely not an image"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/jpeg;base64,"))
}

func TestEncodeImagePayloadRoundTrip(t *testing.T) {
	uri, err := EncodeImage(pngHeader)
	require.NoError(t, err)

	parts := strings.SplitN(uri, ",", 2)
	require.Len(t, parts, 2)
	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Equal(t, pngHeader, decoded)
}
