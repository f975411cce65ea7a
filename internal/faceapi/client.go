// Package faceapi is the client of the remote face biometric service: health,
// enrollment, 1:1 verification and 1:N identification over multipart HTTP.
package faceapi

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/imagesource"
)

// Identification ranking bounds.
const (
	DefaultTopK = 5
	MinTopK     = 2
	MaxTopK     = 50
)

// Observer receives one observation per remote call. *metrics.Metrics implements it.
type Observer interface {
	ObserveCall(op, outcome string, d time.Duration)
}

// Client talks to the biometric service. It holds no mutable state besides
// its configuration and is safe for concurrent use.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	logger   *zap.Logger
	observer Observer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The caller owns its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l.Named("faceapi") }
}

// WithObserver registers a call observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a client for an absolute base URL with the fixed request timeout.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: config.RequestTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ClampTopK normalizes a requested ranking size: non-positive values become
// DefaultTopK, then the value is clamped to [MinTopK, MaxTopK].
func ClampTopK(n int) int {
	if n <= 0 {
		n = DefaultTopK
	}
	return min(max(n, MinTopK), MaxTopK)
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	payload, err := doGetJSON[any](ctx, c, OpHealth, c.endpoint(nil, "health"))
	if err != nil {
		return nil, err
	}
	// the payload shape is up to the service; non-object bodies are kept under "status"
	fields, ok := (*payload).(map[string]any)
	if !ok {
		fields = map[string]any{"status": *payload}
	}
	return &Health{Online: true, Payload: fields}, nil
}

// Probe is Health for display: any failure is reported as offline.
func (c *Client) Probe(ctx context.Context) Health {
	h, err := c.Health(ctx)
	if err != nil {
		return Health{Online: false}
	}
	return *h
}

// Enroll registers the image as a reference for userID. With appendRef false
// all stored references of the user are replaced.
func (c *Client) Enroll(ctx context.Context, userID string, blob *imagesource.Blob, appendRef bool) (*EnrollResult, error) {
	userID = strings.TrimSpace(userID)
	if err := validate(OpEnroll, userID, true, blob); err != nil {
		return nil, err
	}

	q := url.Values{"append": {strconv.FormatBool(appendRef)}}
	res, err := doImageJSON[EnrollResult](ctx, c, OpEnroll, c.endpoint(q, "face", "enroll", userID), blob)
	if err != nil {
		return nil, err
	}
	if res.UserID == "" {
		res.UserID = userID
	}
	return res, nil
}

// Verify compares the image against the stored references of userID.
// An unknown user yields an error matching ErrNotFound.
func (c *Client) Verify(ctx context.Context, userID string, blob *imagesource.Blob) (*VerifyResult, error) {
	userID = strings.TrimSpace(userID)
	if err := validate(OpVerify, userID, true, blob); err != nil {
		return nil, err
	}
	return doImageJSON[VerifyResult](ctx, c, OpVerify, c.endpoint(nil, "face", "verify", userID), blob)
}

// Identify compares the image against every enrolled user. topK is clamped
// with ClampTopK before sending.
func (c *Client) Identify(ctx context.Context, blob *imagesource.Blob, topK int) (*IdentifyResult, error) {
	if err := validate(OpIdentify, "", false, blob); err != nil {
		return nil, err
	}

	q := url.Values{"top_k": {strconv.Itoa(ClampTopK(topK))}}
	res, err := doImageJSON[IdentifyResult](ctx, c, OpIdentify, c.endpoint(q, "face", "identify"), blob)
	if err != nil {
		return nil, err
	}
	if res.TopK == nil {
		res.TopK = []Candidate{}
	}
	slices.SortStableFunc(res.TopK, compareCandidates)
	return res, nil
}

// compareCandidates orders by ascending distance; candidates without a
// distance go last.
func compareCandidates(a, b Candidate) int {
	switch {
	case a.Distance == nil && b.Distance == nil:
		return 0
	case a.Distance == nil:
		return 1
	case b.Distance == nil:
		return -1
	default:
		return cmp.Compare(*a.Distance, *b.Distance)
	}
}

func validate(op Operation, userID string, needUser bool, blob *imagesource.Blob) error {
	if needUser && userID == "" {
		return &Error{Op: op, Kind: ErrValidation, Detail: "Informe o User ID."}
	}
	if blob == nil || len(blob.Data) == 0 {
		return &Error{Op: op, Kind: ErrValidation, Detail: "Envie uma imagem ou capture pela câmera."}
	}
	return nil
}

// endpoint builds a URL below the base URL. Segments are path-escaped, so a
// user id containing "/" stays one segment.
func (c *Client) endpoint(query url.Values, segments ...string) string {
	u := *c.baseURL
	path := u.Path
	raw := u.EscapedPath()
	for _, s := range segments {
		path += "/" + s
		raw += "/" + url.PathEscape(s)
	}
	u.Path = path
	u.RawPath = raw
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}
