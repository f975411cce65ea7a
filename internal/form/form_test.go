package form

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/facegate/internal/faceapi"
	"github.com/kozaktomas/facegate/internal/imagesource"
	"github.com/kozaktomas/facegate/internal/presenter"
)

func jpegBlob() *imagesource.Blob {
	return &imagesource.Blob{Data: []byte{0xFF, 0xD8, 0xFF}, MIME: "image/jpeg", Name: "probe.jpg"}
}

// fakeSubmitter answers verify calls from a queue of gates, so tests decide
// when and in which order responses arrive.
type fakeSubmitter struct {
	mu       sync.Mutex
	gates    []chan verifyAnswer
	calls    int
	userIDs  []string
	appends  []bool
	topKs    []int
	canceled int
}

type verifyAnswer struct {
	res *faceapi.VerifyResult
	err error
}

func (f *fakeSubmitter) gate() chan verifyAnswer {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan verifyAnswer, 1)
	f.gates = append(f.gates, ch)
	return ch
}

func (f *fakeSubmitter) Enroll(ctx context.Context, userID string, blob *imagesource.Blob, appendRef bool) (*faceapi.EnrollResult, error) {
	f.mu.Lock()
	f.calls++
	f.userIDs = append(f.userIDs, userID)
	f.appends = append(f.appends, appendRef)
	f.mu.Unlock()
	return &faceapi.EnrollResult{UserID: userID, NumReferences: 1}, nil
}

func (f *fakeSubmitter) Verify(ctx context.Context, userID string, blob *imagesource.Blob) (*faceapi.VerifyResult, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.userIDs = append(f.userIDs, userID)
	var gate chan verifyAnswer
	if idx < len(f.gates) {
		gate = f.gates[idx]
	}
	f.mu.Unlock()

	if gate == nil {
		return &faceapi.VerifyResult{Verified: true}, nil
	}
	select {
	case a := <-gate:
		return a.res, a.err
	case <-ctx.Done():
		f.mu.Lock()
		f.canceled++
		f.mu.Unlock()
		// a misbehaving transport may still deliver a late answer
		return &faceapi.VerifyResult{Verified: false}, nil
	}
}

func (f *fakeSubmitter) Identify(ctx context.Context, blob *imagesource.Blob, topK int) (*faceapi.IdentifyResult, error) {
	f.mu.Lock()
	f.calls++
	f.topKs = append(f.topKs, topK)
	f.mu.Unlock()
	return &faceapi.IdentifyResult{TopK: []faceapi.Candidate{}}, nil
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestNormalizeUserID(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUserID("  alice\t"))
	assert.Equal(t, "", NormalizeUserID("   "))
	// "e" + combining acute composes to "é"
	assert.Equal(t, "jos\u00e9", NormalizeUserID("jose\u0301"))
}

func TestCanSubmit(t *testing.T) {
	f := New(faceapi.OpVerify, nil)
	assert.False(t, f.CanSubmit(), "empty form")

	f.SetUserID("   ")
	f.SetImage(ModeUpload, jpegBlob())
	assert.False(t, f.CanSubmit(), "whitespace user id")

	f.SetUserID("alice")
	assert.True(t, f.CanSubmit())

	f.SetMode(ModeCamera)
	assert.False(t, f.CanSubmit(), "camera mode has no capture yet")

	f.SetImage(ModeCamera, jpegBlob())
	assert.True(t, f.CanSubmit())

	f.ClearImage(ModeCamera)
	assert.False(t, f.CanSubmit(), "retake clears the capture")
}

func TestCanSubmit_IdentifyNeedsNoUser(t *testing.T) {
	f := New(faceapi.OpIdentify, nil)
	assert.False(t, f.CanSubmit())

	f.SetImage(ModeUpload, jpegBlob())
	assert.True(t, f.CanSubmit())
}

func TestSetImage_RejectsNonImage(t *testing.T) {
	f := New(faceapi.OpVerify, nil)
	assert.False(t, f.SetImage(ModeUpload, &imagesource.Blob{Data: []byte("%PDF"), MIME: "application/pdf"}))
	assert.Nil(t, f.Image())
	assert.False(t, f.SetImage(Mode("scanner"), jpegBlob()))
}

func TestSubmit_Success(t *testing.T) {
	client := &fakeSubmitter{}
	f := New(faceapi.OpVerify, nil)
	f.SetUserID(" alice ")
	f.SetImage(ModeUpload, jpegBlob())

	res, err := f.Submit(context.Background(), client)
	require.NoError(t, err)
	assert.IsType(t, &faceapi.VerifyResult{}, res)

	st := f.State()
	assert.False(t, st.Pending)
	assert.True(t, st.CanSubmit)
	assert.IsType(t, presenter.VerifyView{}, st.View)
	assert.Empty(t, st.Error)
	assert.Equal(t, []string{"alice"}, client.userIDs)
}

func TestSubmit_ErrorClearsPending(t *testing.T) {
	client := &fakeSubmitter{}
	gate := client.gate()
	gate <- verifyAnswer{err: &faceapi.Error{Op: faceapi.OpVerify, Kind: faceapi.ErrNotFound, StatusCode: 404}}

	f := New(faceapi.OpVerify, nil)
	f.SetUserID("ghost")
	f.SetImage(ModeUpload, jpegBlob())

	_, err := f.Submit(context.Background(), client)
	require.ErrorIs(t, err, faceapi.ErrNotFound)

	st := f.State()
	assert.False(t, st.Pending)
	assert.Nil(t, st.Result)
	assert.Equal(t, `Usuário "ghost" não encontrado. Faça o cadastro primeiro.`, st.Error)
}

func TestSubmit_PendingBlocksCanSubmit(t *testing.T) {
	client := &fakeSubmitter{}
	gate := client.gate()

	f := New(faceapi.OpVerify, nil)
	f.SetUserID("alice")
	f.SetImage(ModeUpload, jpegBlob())

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Submit(context.Background(), client)
	}()

	require.Eventually(t, func() bool { return f.State().Pending }, time.Second, time.Millisecond)
	assert.False(t, f.CanSubmit())

	gate <- verifyAnswer{res: &faceapi.VerifyResult{Verified: true}}
	<-done
	assert.True(t, f.CanSubmit())
}

func TestSubmit_StaleResponseDiscarded(t *testing.T) {
	client := &fakeSubmitter{}
	first := client.gate()
	second := client.gate()

	f := New(faceapi.OpVerify, nil)
	f.SetUserID("alice")
	f.SetImage(ModeUpload, jpegBlob())

	firstErr := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background(), client)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return client.callCount() == 1 }, time.Second, time.Millisecond)

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		f.Submit(context.Background(), client)
	}()

	// the first submission is canceled by the second and answers late
	assert.ErrorIs(t, <-firstErr, ErrStale)
	assert.True(t, f.State().Pending, "the newer submission is still in flight")

	second <- verifyAnswer{res: &faceapi.VerifyResult{Verified: true, Path: faceapi.PathFastOnly}}
	<-secondDone

	res, ok := f.State().Result.(*faceapi.VerifyResult)
	require.True(t, ok)
	assert.True(t, res.Verified)
	assert.Equal(t, 1, client.canceled)
	assert.Empty(t, first, "the first gate is never answered")
}

func TestClose_DropsInFlightAnswer(t *testing.T) {
	client := &fakeSubmitter{}
	client.gate()

	store := imagesource.NewMemoryPreviewStore("/previews/")
	f := New(faceapi.OpVerify, store)
	f.SetUserID("alice")
	f.SetImage(ModeUpload, jpegBlob())
	require.Equal(t, 1, store.Len())

	errCh := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background(), client)
		errCh <- err
	}()
	require.Eventually(t, func() bool { return f.State().Pending }, time.Second, time.Millisecond)

	f.Close()

	assert.ErrorIs(t, <-errCh, ErrStale)
	st := f.State()
	assert.Nil(t, st.Result)
	assert.False(t, st.Pending)
	assert.Equal(t, 0, store.Len(), "previews are released on close")

	_, err := f.Submit(context.Background(), client)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEnroll_PrepareAppend(t *testing.T) {
	client := &fakeSubmitter{}
	f := New(faceapi.OpEnroll, nil)
	f.SetUserID("alice")
	f.SetImage(ModeUpload, jpegBlob())

	_, err := f.Submit(context.Background(), client)
	require.NoError(t, err)

	f.PrepareAppend()
	st := f.State()
	assert.Equal(t, "alice", st.UserID)
	assert.True(t, st.Append)
	assert.False(t, st.HasImage)
	assert.Nil(t, st.Result)

	f.SetImage(ModeUpload, jpegBlob())
	_, err = f.Submit(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, client.appends)
}

func TestIdentify_TopKForwarded(t *testing.T) {
	client := &fakeSubmitter{}
	f := New(faceapi.OpIdentify, nil)
	f.SetImage(ModeUpload, jpegBlob())
	f.SetTopK(3)

	_, err := f.Submit(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, client.topKs)

	view, ok := f.State().View.(presenter.IdentifyView)
	require.True(t, ok)
	assert.True(t, view.Rows[0].Empty)
}

func TestSubmit_ValidationFromClient(t *testing.T) {
	client, err := faceapi.New("http://127.0.0.1:1")
	require.NoError(t, err)

	f := New(faceapi.OpVerify, nil)
	f.SetImage(ModeUpload, jpegBlob())

	_, err = f.Submit(context.Background(), client)
	assert.True(t, errors.Is(err, faceapi.ErrValidation))
	assert.Equal(t, "Informe o User ID.", f.State().Error)
	assert.False(t, f.State().Pending)
}
