package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kozaktomas/facegate/internal/imagesource"
	"github.com/kozaktomas/facegate/internal/logging"
)

// doGetJSON performs a GET request and unmarshals the JSON response into T.
func doGetJSON[T any](ctx context.Context, c *Client, op Operation, url string) (*T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrNetwork, Err: fmt.Errorf("could not create request: %w", err)}
	}
	return doJSON[T](c, op, req)
}

// doImageJSON posts the blob as multipart field "file" and unmarshals the JSON response into T.
func doImageJSON[T any](ctx context.Context, c *Client, op Operation, url string, blob *imagesource.Blob) (*T, error) {
	body, contentType, err := multipartImage(blob)
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrValidation, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrNetwork, Err: fmt.Errorf("could not create request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	return doJSON[T](c, op, req)
}

// doJSON sends the request and maps the outcome onto the error taxonomy.
func doJSON[T any](c *Client, op Operation, req *http.Request) (*T, error) {
	requestID := uuid.NewString()
	logger := logging.WithOperation(c.logger, "faceapi."+string(op), requestID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	result, err := send[T](c, op, req)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = outcomeOf(err)
		logger.Warn("request failed", zap.String("outcome", outcome), zap.Duration("elapsed", elapsed), zap.Error(err))
	} else {
		logger.Debug("request succeeded", zap.Duration("elapsed", elapsed))
	}
	if c.observer != nil {
		c.observer.ObserveCall(string(op), outcome, elapsed)
	}
	return result, err
}

func send[T any](c *Client, op Operation, req *http.Request) (*T, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Kind: ErrNetwork, StatusCode: resp.StatusCode, Err: fmt.Errorf("could not read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := ErrServer
		if resp.StatusCode == http.StatusNotFound {
			kind = ErrNotFound
		}
		detail, message := parseErrorBody(body)
		return nil, &Error{
			Op:         op,
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Detail:     detail,
			Message:    message,
			Err:        fmt.Errorf("request failed with status %d", resp.StatusCode),
		}
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &Error{Op: op, Kind: ErrServer, StatusCode: resp.StatusCode, Err: fmt.Errorf("could not unmarshal response: %w", err)}
	}
	return &result, nil
}

// multipartImage encodes the blob as form field "file" with its MIME type.
func multipartImage(blob *imagesource.Blob) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	name := blob.Name
	if name == "" {
		name = "image.jpg"
	}
	mimeType := blob.MIME
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(blob.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// outcomeOf names the failure class for logs and metrics.
func outcomeOf(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "server"
	}
}
