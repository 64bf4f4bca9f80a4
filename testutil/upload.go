package testutil

import (
	"bytes"
	"mime"
	"mime/multipart"
	"testing"
)

// PNG is the smallest byte sequence recognized as a PNG image
var PNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// MultipartBody builds a multipart form with a single file field
func MultipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

// FileHeader parses content into a multipart.FileHeader as a request would
func FileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body, contentType := MultipartBody(t, "file", filename, content)
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("failed to parse content type: %v", err)
	}
	form, err := multipart.NewReader(body, params["boundary"]).ReadForm(int64(len(content)) + 1024)
	if err != nil {
		t.Fatalf("failed to read multipart form: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}
