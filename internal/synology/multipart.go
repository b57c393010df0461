package synology

import (
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// createFilePart adds a file part carrying the real image content type;
// multipart.CreateFormFile would hardcode application/octet-stream, which the
// Photos upload API rejects.
func createFilePart(w *multipart.Writer, fileName, contentType string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+quoteEscaper.Replace(fileName)+`"`)
	h.Set("Content-Type", contentType)
	return w.CreatePart(h)
}
