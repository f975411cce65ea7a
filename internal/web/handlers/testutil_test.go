package handlers

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facegate/internal/capture"
	"github.com/kozaktomas/facegate/internal/faceapi"
	"github.com/kozaktomas/facegate/internal/imagesource"
)

// fakeCamera is a capture.Device that serves one fixed frame.
type fakeCamera struct {
	frame []byte
	err   error
}

func (f *fakeCamera) ID() string { return "fake0" }

func (f *fakeCamera) Open(ctx context.Context, res capture.Resolution) (capture.Stream, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := &fakeStream{FrameBuffer: capture.NewFrameBuffer()}
	s.Publish(f.frame)
	return s, nil
}

type fakeStream struct {
	*capture.FrameBuffer
}

func (s *fakeStream) Close() error {
	s.Finish(nil)
	return nil
}

func jpegFrame(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 32, 24)), nil); err != nil {
		t.Fatalf("failed to encode frame: %v", err)
	}
	return buf.Bytes()
}

// setupMockFaceAPI creates a mock biometric service for handler tests.
func setupMockFaceAPI(t *testing.T, handlers map[string]http.HandlerFunc) *faceapi.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := faceapi.New(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func newTestConsole(t *testing.T, client *faceapi.Client, camera capture.Device) (*Console, *imagesource.MemoryPreviewStore) {
	t.Helper()
	if camera == nil {
		camera = &fakeCamera{frame: jpegFrame(t)}
	}
	previews := imagesource.NewMemoryPreviewStore("/previews/")
	c := NewConsole(client, capture.NewSession(camera), previews, nil, nil)
	t.Cleanup(c.Close)
	return c, previews
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// multipartRequest builds a POST with form fields and an optional file.
func multipartRequest(t *testing.T, path string, fields map[string]string, fileName string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("failed to create file part: %v", err)
		}
		part.Write(file)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
