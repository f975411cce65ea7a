package presenter

import (
	"bytes"
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/facegate/internal/decision"
	"github.com/kozaktomas/facegate/internal/faceapi"
	"github.com/kozaktomas/facegate/internal/imagesource"
)

func ptr[T any](v T) *T { return &v }

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		in   *float64
		want string
	}{
		{nil, "-"},
		{ptr(0.3298765), "0.3298"},
		{ptr(0.21), "0.2100"},
		{ptr(0.4), "0.4000"},
		{ptr(0.0), "0.0000"},
		{ptr(1.0), "1.0000"},
		{ptr(0.99999), "0.9999"},
		{ptr(0.00001), "0.0000"},
		{ptr(math.NaN()), "NaN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDistance(tt.in))
	}
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Aprovado — detecção rápida", PathLabel("fast_only"))
	assert.Equal(t, "Aprovado — confirmado pelo fallback", PathLabel("fast+fallback_confirmed"))
	assert.Equal(t, "Nenhuma face detectada", PathLabel("no_face"))
	assert.Equal(t, "Confirmado pelo detector RetinaFace", ReasonLabel("fallback_confirmed"))
	assert.Equal(t, "Sem face detectada (retinaface)", ReasonLabel("no_face_detected_fallback"))

	// unknown codes pass through
	assert.Equal(t, "new_path", PathLabel("new_path"))
	assert.Equal(t, "quality_too_low", ReasonLabel("quality_too_low"))
	assert.Equal(t, "", ReasonLabel(""))
}

func TestPresentVerify_Approved(t *testing.T) {
	v := PresentVerify(&faceapi.VerifyResult{
		Verified:  true,
		Distance:  ptr(0.21),
		Threshold: ptr(0.40),
		Reason:    faceapi.ReasonSuperStrictPass,
		Path:      faceapi.PathFastOnly,
	})

	assert.Equal(t, "Identidade Confirmada", v.Title)
	assert.Equal(t, "accent", v.Tone)
	assert.Equal(t, "0.2100", v.Distance)
	require.NotNil(t, v.Gauge)
	assert.Equal(t, decision.ZoneA, v.Gauge.Zone)
	assert.Equal(t, "accent", v.Gauge.Tone)
	assert.Equal(t, "26.25%", v.Gauge.Value)
	assert.Equal(t, "41.25%", v.Gauge.SuperStrict)
	assert.Equal(t, "50.00%", v.Gauge.Strict)
	assert.Equal(t, "65.00%", v.Gauge.Loose)
	assert.Equal(t, []string{"Super ≤0.33", "Estrito ≤0.4", "Loose ≤0.52"}, v.Gauge.Legend)

	assert.Equal(t, "Passou no limiar super-estrito (≤ 0.33)", v.Details[0].Value)
	assert.Equal(t, "-", v.Details[2].Value, "missing model renders a dash")
	assert.Equal(t, "cosine", v.Details[3].Value, "missing metric defaults to cosine")
	assert.Empty(t, v.BestReference)
}

func TestPresentVerify_MissingFields(t *testing.T) {
	v := PresentVerify(&faceapi.VerifyResult{Verified: false, BestReferenceIndex: ptr(2)})

	assert.Equal(t, "Verificação Falhou", v.Title)
	assert.Equal(t, "danger", v.Tone)
	assert.Equal(t, "-", v.Distance)
	assert.Nil(t, v.Gauge)
	assert.Equal(t, "-", v.Details[0].Value)
	assert.Equal(t, "Ref #2", v.BestReference)
}

func TestPresentVerify_ServerThresholds(t *testing.T) {
	v := PresentVerify(&faceapi.VerifyResult{
		Distance:             ptr(0.36),
		Threshold:            ptr(0.45),
		ThresholdSuperStrict: ptr(0.30),
		ThresholdLoose:       ptr(0.60),
	})

	require.NotNil(t, v.Gauge)
	assert.Equal(t, decision.ZoneB, v.Gauge.Zone)
	assert.Equal(t, "Estrito ≤0.45", v.Gauge.Legend[1])
}

func TestPresentIdentify_Rows(t *testing.T) {
	v := PresentIdentify(&faceapi.IdentifyResult{
		Identified: true,
		BestUserID: ptr("alice"),
		Distance:   ptr(0.18),
		Threshold:  ptr(0.40),
		Reason:     faceapi.ReasonSuperStrictPass,
		Path:       faceapi.PathFastOnly,
		TopK: []faceapi.Candidate{
			{UserID: "alice", Distance: ptr(0.18), RefIndex: ptr(2)},
			{UserID: "bob", Distance: nil, RefIndex: nil},
		},
	})

	assert.Equal(t, "Resultado: IDENTIFICADO", v.Title)
	assert.Equal(t, "alice", v.BestUserID)
	assert.Equal(t, "2", v.Summary[2].Value)
	require.Len(t, v.Rows, 2)
	assert.Equal(t, CandidateRow{Rank: 1, UserID: "alice", Distance: "0.1800", Ref: "2"}, v.Rows[0])
	assert.Equal(t, CandidateRow{Rank: 2, UserID: "bob", Distance: "-", Ref: "-"}, v.Rows[1])
	assert.Equal(t, "-", v.Details[0].Value)
}

func TestPresentIdentify_Empty(t *testing.T) {
	v := PresentIdentify(&faceapi.IdentifyResult{Identified: false, TopK: []faceapi.Candidate{}})

	assert.Equal(t, "Resultado: NÃO IDENTIFICADO", v.Title)
	assert.Equal(t, "-", v.BestUserID)
	require.Len(t, v.Rows, 1)
	assert.True(t, v.Rows[0].Empty)
	assert.Equal(t, NoCandidatesMessage, v.Rows[0].Message)
	assert.Equal(t, "0", v.Summary[2].Value)
}

func TestPresentEnroll(t *testing.T) {
	v := PresentEnroll(&faceapi.EnrollResult{UserID: "alice", NumReferences: 3, EmbeddingSize: 512, Model: "ArcFace"})

	assert.Equal(t, "Cadastro Realizado", v.Title)
	assert.Equal(t, "3", v.NumReferences)
	assert.Equal(t, "512D", v.EmbeddingSize)
	assert.Equal(t, "ArcFace", v.Settings[0].Value)
	assert.Equal(t, "-", v.Settings[2].Value)
}

func TestPresent_Dispatch(t *testing.T) {
	assert.IsType(t, EnrollView{}, Present(&faceapi.EnrollResult{}))
	assert.IsType(t, VerifyView{}, Present(&faceapi.VerifyResult{}))
	assert.IsType(t, IdentifyView{}, Present(&faceapi.IdentifyResult{}))
	assert.Nil(t, Present(nil))
	assert.Nil(t, Present((*faceapi.VerifyResult)(nil)))
}

func TestErrorMessage(t *testing.T) {
	notFound := &faceapi.Error{Op: faceapi.OpVerify, Kind: faceapi.ErrNotFound, StatusCode: 404, Detail: "User not found"}

	assert.Equal(t, `Usuário "alice" não encontrado. Faça o cadastro primeiro.`, ErrorMessage(faceapi.OpVerify, "alice", notFound))
	assert.Equal(t, "User not found", ErrorMessage(faceapi.OpEnroll, "alice", notFound))
	assert.Equal(t, faceapi.UnknownErrorMessage, ErrorMessage(faceapi.OpIdentify, "", &faceapi.Error{Kind: faceapi.ErrServer}))
	assert.Empty(t, ErrorMessage(faceapi.OpVerify, "alice", nil))
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	view := PresentIdentify(&faceapi.IdentifyResult{TopK: nil})

	require.NoError(t, WriteText(&buf, view))
	assert.Contains(t, buf.String(), "Resultado: NÃO IDENTIFICADO")
	assert.Contains(t, buf.String(), NoCandidatesMessage)

	assert.Error(t, WriteText(&buf, nil))
}

func newScenarioClient(t *testing.T, status int, body string) *faceapi.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client, err := faceapi.New(server.URL + "/api")
	require.NoError(t, err)
	return client
}

func scenarioBlob() *imagesource.Blob {
	return &imagesource.Blob{Data: []byte{0xFF, 0xD8, 0xFF}, MIME: "image/jpeg", Name: "probe.jpg"}
}

func TestScenario_VerifyApproved(t *testing.T) {
	client := newScenarioClient(t, http.StatusOK,
		`{"verified":true,"distance":0.21,"threshold":0.40,"reason":"super_strict_pass","path":"fast_only"}`)

	res, err := client.Verify(context.Background(), "alice", scenarioBlob())
	require.NoError(t, err)

	view, ok := Present(res).(VerifyView)
	require.True(t, ok)
	assert.Equal(t, "Identidade Confirmada", view.Title)
	assert.Equal(t, decision.ZoneA, view.Gauge.Zone)
	assert.Equal(t, "26.25%", view.Gauge.Value)
}

func TestScenario_IdentifyEmpty(t *testing.T) {
	client := newScenarioClient(t, http.StatusOK, `{"identified":false,"best_user_id":null,"top_k":[]}`)

	res, err := client.Identify(context.Background(), scenarioBlob(), 3)
	require.NoError(t, err)

	view, ok := Present(res).(IdentifyView)
	require.True(t, ok)
	require.Len(t, view.Rows, 1)
	assert.True(t, view.Rows[0].Empty)
}

func TestScenario_VerifyUnknownUser(t *testing.T) {
	client := newScenarioClient(t, http.StatusNotFound, `{"detail":"User 'ghost' not enrolled"}`)

	_, err := client.Verify(context.Background(), "ghost", scenarioBlob())
	require.Error(t, err)

	msg := ErrorMessage(faceapi.OpVerify, "ghost", err)
	assert.Equal(t, `Usuário "ghost" não encontrado. Faça o cadastro primeiro.`, msg)
	assert.NotEqual(t, faceapi.Message(err), msg)
}
