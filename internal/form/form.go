// Package form holds the submission state of one operation page: inputs,
// the pending flag and the last outcome. Every submission carries a
// generation number, so a late answer to an older submission is dropped.
package form

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/facegate/internal/faceapi"
	"github.com/kozaktomas/facegate/internal/imagesource"
	"github.com/kozaktomas/facegate/internal/presenter"
)

var (
	// ErrStale is returned to a submission that was superseded, reset or
	// closed before its answer arrived. Its outcome is discarded.
	ErrStale = errors.New("submission superseded")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("form closed")
)

// Mode selects where the image comes from.
type Mode string

const (
	ModeUpload Mode = "upload"
	ModeCamera Mode = "camera"
)

// Submitter is the part of faceapi.Client a form needs.
type Submitter interface {
	Enroll(ctx context.Context, userID string, blob *imagesource.Blob, appendRef bool) (*faceapi.EnrollResult, error)
	Verify(ctx context.Context, userID string, blob *imagesource.Blob) (*faceapi.VerifyResult, error)
	Identify(ctx context.Context, blob *imagesource.Blob, topK int) (*faceapi.IdentifyResult, error)
}

// Form is safe for concurrent use.
type Form struct {
	op      faceapi.Operation
	sources map[Mode]*imagesource.Source

	mu        sync.Mutex
	userID    string
	appendRef bool
	topK      int
	mode      Mode
	pending   bool
	gen       uint64
	cancel    context.CancelFunc
	result    faceapi.Result
	view      presenter.View
	errMsg    string
	closed    bool
}

// New creates an empty form for op. Previews of selected images are created in store.
func New(op faceapi.Operation, store imagesource.PreviewStore) *Form {
	return &Form{
		op: op,
		sources: map[Mode]*imagesource.Source{
			ModeUpload: imagesource.NewSource(store),
			ModeCamera: imagesource.NewSource(store),
		},
		topK: faceapi.DefaultTopK,
		mode: ModeUpload,
	}
}

// NormalizeUserID trims surrounding whitespace and applies Unicode NFC, so
// visually identical ids reach the service as the same string.
func NormalizeUserID(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func (f *Form) Operation() faceapi.Operation {
	return f.op
}

func (f *Form) SetUserID(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userID = id
}

func (f *Form) UserID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userID
}

// SetAppend chooses between adding a reference (true) and replacing all of them.
func (f *Form) SetAppend(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendRef = v
}

// SetTopK stores the requested ranking size; it is clamped when sent.
func (f *Form) SetTopK(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topK = n
}

// SetMode switches the input mode. Each mode keeps its own image.
func (f *Form) SetMode(m Mode) {
	if _, ok := f.sources[m]; !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = m
}

func (f *Form) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// SetImage selects the image of mode m. Non-image blobs are rejected.
func (f *Form) SetImage(m Mode, b *imagesource.Blob) bool {
	src, ok := f.sources[m]
	if !ok {
		return false
	}
	return src.Set(b)
}

// ClearImage drops the image of mode m (a retake).
func (f *Form) ClearImage(m Mode) {
	if src, ok := f.sources[m]; ok {
		src.Clear()
	}
}

// Image returns the image of the active mode, nil when none is selected.
func (f *Form) Image() *imagesource.Blob {
	return f.sources[f.Mode()].Current()
}

// PreviewURL returns the preview of the active mode's image.
func (f *Form) PreviewURL() string {
	return f.sources[f.Mode()].PreviewURL()
}

// CanSubmit reports whether the inputs are complete and nothing is in flight.
func (f *Form) CanSubmit() bool {
	img := f.Image()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending || f.closed || img == nil {
		return false
	}
	if f.op != faceapi.OpIdentify && NormalizeUserID(f.userID) == "" {
		return false
	}
	return true
}

// Submit sends the form. A newer Submit cancels this one and this one
// returns ErrStale without touching the form. On every exit path the
// pending flag of the current generation is cleared.
func (f *Form) Submit(ctx context.Context, client Submitter) (faceapi.Result, error) {
	blob := f.Image()

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if f.cancel != nil {
		f.cancel()
	}
	f.gen++
	gen := f.gen
	reqCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.pending = true
	f.result, f.view, f.errMsg = nil, nil, ""
	userID, appendRef, topK := NormalizeUserID(f.userID), f.appendRef, f.topK
	f.mu.Unlock()

	defer cancel()
	defer func() {
		f.mu.Lock()
		if gen == f.gen {
			f.pending = false
			f.cancel = nil
		}
		f.mu.Unlock()
	}()

	result, err := f.call(reqCtx, client, userID, blob, appendRef, topK)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen || f.closed {
		return nil, ErrStale
	}
	if err != nil {
		f.errMsg = presenter.ErrorMessage(f.op, userID, err)
		return nil, err
	}
	f.result = result
	f.view = presenter.Present(result)
	return result, nil
}

func (f *Form) call(ctx context.Context, client Submitter, userID string, blob *imagesource.Blob, appendRef bool, topK int) (faceapi.Result, error) {
	switch f.op {
	case faceapi.OpEnroll:
		r, err := client.Enroll(ctx, userID, blob, appendRef)
		if err != nil {
			return nil, err
		}
		return r, nil
	case faceapi.OpVerify:
		r, err := client.Verify(ctx, userID, blob)
		if err != nil {
			return nil, err
		}
		return r, nil
	case faceapi.OpIdentify:
		r, err := client.Identify(ctx, blob, topK)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, &faceapi.Error{Op: f.op, Kind: faceapi.ErrValidation, Detail: "unsupported operation " + string(f.op)}
	}
}

// Reset clears the images and the outcome and abandons any submission in flight.
func (f *Form) Reset() {
	for _, src := range f.sources {
		src.Clear()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandonLocked()
	f.result, f.view, f.errMsg = nil, nil, ""
}

// PrepareAppend starts another enrollment for the same user with append on.
func (f *Form) PrepareAppend() {
	f.Reset()
	f.SetAppend(true)
}

// Close abandons any submission in flight and releases the previews. The
// form ignores every later answer.
func (f *Form) Close() {
	f.Reset()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *Form) abandonLocked() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.gen++
	f.pending = false
}

// State is a consistent copy of the form for rendering.
type State struct {
	Operation  faceapi.Operation
	UserID     string
	Append     bool
	TopK       int
	Mode       Mode
	Pending    bool
	CanSubmit  bool
	PreviewURL string
	HasImage   bool
	Result     faceapi.Result
	View       presenter.View
	Error      string
}

func (f *Form) State() State {
	canSubmit := f.CanSubmit()
	preview := f.PreviewURL()
	hasImage := f.Image() != nil

	f.mu.Lock()
	defer f.mu.Unlock()
	return State{
		Operation:  f.op,
		UserID:     f.userID,
		Append:     f.appendRef,
		TopK:       f.topK,
		Mode:       f.mode,
		Pending:    f.pending,
		CanSubmit:  canSubmit,
		PreviewURL: preview,
		HasImage:   hasImage,
		Result:     f.result,
		View:       f.view,
		Error:      f.errMsg,
	}
}
