package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fakeObjects struct {
	puts    map[string][]byte
	deleted []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{puts: make(map[string][]byte)}
}

func (f *fakeObjects) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.puts[key] = data
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) KeyFromURL(u string) (string, bool) {
	key, ok := strings.CutPrefix(u, "https://cdn.example.com/")
	return key, ok && key != ""
}

func multipartRequest(t *testing.T, filename string, data []byte, kind string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if kind != "" {
		mw.WriteField("type", kind)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write(data)
	mw.Close()

	req := httptest.NewRequest("POST", "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadImage(t *testing.T) {
	objects := newFakeObjects()
	h := NewUploadHandler(objects, testLogger)
	h.now = func() time.Time { return time.Unix(1700000000, 0) }

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, "My Soup!.PNG", pngHeader, "recipes"))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	var got uploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(got.Key, "recipes/My_Soup__1700000000_") || !strings.HasSuffix(got.Key, ".png") {
		t.Errorf("key = %q", got.Key)
	}
	if got.MimeType != "image/png" {
		t.Errorf("mimeType = %q, want image/png", got.MimeType)
	}
	if got.URL != "https://cdn.example.com/"+got.Key {
		t.Errorf("url = %q", got.URL)
	}
	if !bytes.Equal(objects.puts[got.Key], pngHeader) {
		t.Error("stored bytes differ from upload")
	}
}

func TestUploadUnknownTypeGoesToTemp(t *testing.T) {
	h := NewUploadHandler(newFakeObjects(), testLogger)
	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, "a.png", pngHeader, "avatars"))

	var got uploadResponse
	json.NewDecoder(rec.Body).Decode(&got)
	if !strings.HasPrefix(got.Key, "temp/") {
		t.Errorf("key = %q, want temp/ prefix", got.Key)
	}
}

func TestUploadRejects(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
	}{
		{"text content", "notes.png", []byte("just some text, not an image")},
		{"wrong extension", "image.txt", pngHeader},
		{"too large", "big.png", append(append([]byte{}, pngHeader...), make([]byte, maxUploadSize)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects := newFakeObjects()
			h := NewUploadHandler(objects, testLogger)
			rec := httptest.NewRecorder()
			h.Upload(rec, multipartRequest(t, tt.filename, tt.data, ""))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if len(objects.puts) != 0 {
				t.Error("rejected file was stored")
			}
		})
	}
}

func TestUploadMissingFile(t *testing.T) {
	h := NewUploadHandler(newFakeObjects(), testLogger)
	req := httptest.NewRequest("POST", "/api/upload", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Upload(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadNotConfigured(t *testing.T) {
	h := NewUploadHandler(nil, testLogger)
	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, "a.png", pngHeader, ""))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestDeleteUpload(t *testing.T) {
	objects := newFakeObjects()
	h := NewUploadHandler(objects, testLogger)

	rec := httptest.NewRecorder()
	h.Delete(rec, httptest.NewRequest("DELETE", "/api/upload?url=https://cdn.example.com/recipes/a.png", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != "recipes/a.png" {
		t.Errorf("deleted = %v", objects.deleted)
	}

	rec = httptest.NewRecorder()
	h.Delete(rec, httptest.NewRequest("DELETE", "/api/upload?url=https://evil.example.com/x.png", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("foreign url status = %d, want 400", rec.Code)
	}
}
