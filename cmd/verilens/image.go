// cmd/verilens/image.go
package main

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// EncodeImage turns raw image bytes into an inline base64 data URI suitable
// for an image_url message part. The media type is sniffed from the content;
// when sniffing yields something that is not an image, we fall back to the
// historical image/jpeg tag rather than rejecting the upload here, since the
// boundary validation has already checked the declared content type.
func EncodeImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", NewImageError("image data is empty", nil)
	}

	mediaType := http.DetectContentType(data)
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = "image/jpeg"
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	return fmt.Sprintf("data:%s;base64,%s", mediaType, encoded), nil
}
