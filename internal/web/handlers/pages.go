package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kozaktomas/facegate/internal/capture"
	"github.com/kozaktomas/facegate/internal/decision"
	"github.com/kozaktomas/facegate/internal/faceapi"
	"github.com/kozaktomas/facegate/internal/form"
	"github.com/kozaktomas/facegate/internal/imagesource"
	"github.com/kozaktomas/facegate/internal/presenter"
)

const (
	healthProbeTimeout = 5 * time.Second
	maxUploadMemory    = 32 << 20
)

var pageTitles = map[faceapi.Operation]string{
	faceapi.OpEnroll:   "Cadastro Facial",
	faceapi.OpVerify:   "Verificar Identidade",
	faceapi.OpIdentify: "Identificação 1:N",
}

var errUnreadableUpload = errors.New("não foi possível ler o arquivo")

type zoneRow struct {
	Label       string
	Range       string
	Tone        string
	Description string
}

type dashboardData struct {
	Title   string
	Active  string
	Health  faceapi.Health
	BaseURL string
	Zones   []zoneRow
}

// zoneRows describes the four zones for the given thresholds.
func zoneRows(t decision.Thresholds) []zoneRow {
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	return []zoneRow{
		{decision.ZoneA.Label(), "≤ " + format(t.SuperStrict), decision.ZoneA.Tone(), "Aprova diretamente, sem fallback"},
		{decision.ZoneB.Label(), "≤ " + format(t.Strict), decision.ZoneB.Tone(), "Aprovado com confirmação do fallback"},
		{decision.ZoneC.Label(), "≤ " + format(t.Loose), decision.ZoneC.Tone(), "Tenta fallback antes de rejeitar"},
		{decision.ZoneD.Label(), "> " + format(t.Loose), decision.ZoneD.Tone(), "Rejeitado imediatamente"},
	}
}

// Dashboard renders the service status and the decision thresholds.
func (c *Console) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	c.render(w, "dashboard.html", dashboardData{
		Title:   "Reconhecimento Facial",
		Active:  "dashboard",
		Health:  c.client.Probe(ctx),
		BaseURL: c.client.BaseURL(),
		Zones:   zoneRows(decision.Defaults),
	})
}

type cameraData struct {
	State   string
	Active  bool
	Message string
	Notice  string
}

type operationData struct {
	Title    string
	Active   string
	Op       string
	Form     form.State
	Camera   cameraData
	MinTopK  int
	MaxTopK  int
	Enroll   *presenter.EnrollView
	Verify   *presenter.VerifyView
	Identify *presenter.IdentifyView
}

// Page renders the form of one operation with its last outcome.
func (c *Console) Page(w http.ResponseWriter, r *http.Request) {
	f, ok := c.formFromRequest(w, r)
	if !ok {
		return
	}
	op := f.Operation()
	st := f.State()

	data := operationData{
		Title:   pageTitles[op],
		Active:  string(op),
		Op:      string(op),
		Form:    st,
		MinTopK: faceapi.MinTopK,
		MaxTopK: faceapi.MaxTopK,
		Camera: cameraData{
			State:   c.camera.State().String(),
			Active:  c.camera.State() == capture.Active,
			Message: c.camera.Message(),
			Notice:  c.takeNotice(op),
		},
	}
	switch v := st.View.(type) {
	case presenter.EnrollView:
		data.Enroll = &v
	case presenter.VerifyView:
		data.Verify = &v
	case presenter.IdentifyView:
		data.Identify = &v
	}
	c.render(w, "operation.html", data)
}

// Action handles every form post of an operation page. The "action" field
// selects what happens: submit, reset, append, mode or retake.
func (c *Console) Action(w http.ResponseWriter, r *http.Request) {
	f, ok := c.formFromRequest(w, r)
	if !ok {
		return
	}
	op := f.Operation()
	back := "/" + string(op)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		respondError(w, http.StatusBadRequest, "invalid form")
		return
	}

	switch r.FormValue("action") {
	case "reset":
		f.Reset()
		redirect(w, r, back)
		return
	case "append":
		f.PrepareAppend()
		redirect(w, r, back)
		return
	case "retake":
		f.ClearImage(form.ModeCamera)
		redirect(w, r, back)
		return
	}

	c.applyFields(f, r)
	if err := c.applyUpload(f, r); err != nil {
		c.setNotice(op, err.Error())
		redirect(w, r, back)
		return
	}

	if r.FormValue("action") == "submit" {
		c.submit(r.Context(), f)
	}
	redirect(w, r, back)
}

func (c *Console) applyFields(f *form.Form, r *http.Request) {
	if _, ok := r.Form["user_id"]; ok {
		f.SetUserID(r.FormValue("user_id"))
	}
	if _, ok := r.Form["top_k"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(r.FormValue("top_k"))); err == nil {
			f.SetTopK(n)
		}
	}
	if f.Operation() == faceapi.OpEnroll && r.FormValue("action") != "mode" {
		f.SetAppend(r.FormValue("append") == "true" || r.FormValue("append") == "on")
	}
	if m := r.FormValue("mode"); m != "" {
		f.SetMode(form.Mode(m))
	}
}

// applyUpload reads the optional "file" part into the upload slot.
func (c *Console) applyUpload(f *form.Form, r *http.Request) error {
	file, header, err := r.FormFile("file")
	if err != nil {
		// no file chosen
		return nil
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return errUnreadableUpload
	}
	if len(data) == 0 {
		return nil
	}
	blob, err := imagesource.FromBytes(header.Filename, data)
	if err != nil {
		return errUnreadableUpload
	}
	if !f.SetImage(form.ModeUpload, blob) {
		return fmt.Errorf("arquivo %q não é uma imagem", header.Filename)
	}
	f.SetMode(form.ModeUpload)
	return nil
}

func (c *Console) submit(ctx context.Context, f *form.Form) {
	op := f.Operation()
	res, err := f.Submit(ctx, c.client)
	switch {
	case errors.Is(err, form.ErrStale), errors.Is(err, form.ErrClosed):
		return
	case err != nil:
		c.logger.Info("submission failed",
			zap.String("operation", string(op)),
			zap.String("user_id", sanitizeForLog(f.UserID())),
			zap.Error(err))
		return
	}

	if g := gaugeOf(presenter.Present(res)); g != nil {
		c.metrics.ObserveZone(string(op), g.Zone.String())
	}
}

func gaugeOf(v presenter.View) *presenter.GaugeView {
	switch v := v.(type) {
	case presenter.VerifyView:
		return v.Gauge
	case presenter.IdentifyView:
		return v.Gauge
	default:
		return nil
	}
}

type stateResponse struct {
	Operation  string         `json:"operation"`
	UserID     string         `json:"user_id"`
	Append     bool           `json:"append"`
	TopK       int            `json:"top_k"`
	Mode       string         `json:"mode"`
	Pending    bool           `json:"pending"`
	CanSubmit  bool           `json:"can_submit"`
	PreviewURL string         `json:"preview_url,omitempty"`
	Error      string         `json:"error,omitempty"`
	Result     faceapi.Result `json:"result,omitempty"`
	Camera     string         `json:"camera"`
}

// State returns the form state as JSON, for polling while a submission is pending.
func (c *Console) State(w http.ResponseWriter, r *http.Request) {
	f, ok := c.formFromRequest(w, r)
	if !ok {
		return
	}
	st := f.State()
	respondJSON(w, http.StatusOK, stateResponse{
		Operation:  string(st.Operation),
		UserID:     st.UserID,
		Append:     st.Append,
		TopK:       st.TopK,
		Mode:       string(st.Mode),
		Pending:    st.Pending,
		CanSubmit:  st.CanSubmit,
		PreviewURL: st.PreviewURL,
		Error:      st.Error,
		Result:     st.Result,
		Camera:     c.camera.State().String(),
	})
}

// Preview serves the image behind a preview URL.
func (c *Console) Preview(w http.ResponseWriter, r *http.Request) {
	blob, ok := c.previews.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "preview not found")
		return
	}
	w.Header().Set("Content-Type", blob.MIME)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob.Data); err != nil {
		c.logger.Debug("preview write failed", zap.String("id", chi.URLParam(r, "id")), zap.Error(err))
	}
}
