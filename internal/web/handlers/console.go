package handlers

import (
	"html/template"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kozaktomas/facegate/internal/capture"
	"github.com/kozaktomas/facegate/internal/faceapi"
	"github.com/kozaktomas/facegate/internal/form"
	"github.com/kozaktomas/facegate/internal/imagesource"
	"github.com/kozaktomas/facegate/internal/metrics"
)

// Console is the operator console: one form per operation and one camera
// session shared by the pages.
type Console struct {
	client   *faceapi.Client
	camera   *capture.Session
	previews *imagesource.MemoryPreviewStore
	metrics  *metrics.Metrics
	logger   *zap.Logger
	pages    map[string]*template.Template

	forms map[faceapi.Operation]*form.Form

	mu      sync.Mutex
	viewers int                          // open live previews
	notices map[faceapi.Operation]string // camera notices per page
}

// NewConsole wires the console. previews must be the store the forms
// register their previews in, so /previews can serve them.
func NewConsole(client *faceapi.Client, camera *capture.Session, previews *imagesource.MemoryPreviewStore, m *metrics.Metrics, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{
		client:   client,
		camera:   camera,
		previews: previews,
		metrics:  m,
		logger:   logger.Named("console"),
		pages:    mustParsePages(),
		forms: map[faceapi.Operation]*form.Form{
			faceapi.OpEnroll:   form.New(faceapi.OpEnroll, previews),
			faceapi.OpVerify:   form.New(faceapi.OpVerify, previews),
			faceapi.OpIdentify: form.New(faceapi.OpIdentify, previews),
		},
		notices: make(map[faceapi.Operation]string),
	}
}

// Form returns the form of op, nil for unknown operations.
func (c *Console) Form(op faceapi.Operation) *form.Form {
	return c.forms[op]
}

// Close abandons in-flight submissions, releases previews and the camera.
func (c *Console) Close() {
	for _, f := range c.forms {
		f.Close()
	}
	c.camera.Stop()
}

func (c *Console) setNotice(op faceapi.Operation, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices[op] = msg
}

// takeNotice returns and clears the notice of op.
func (c *Console) takeNotice(op faceapi.Operation) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := c.notices[op]
	delete(c.notices, op)
	return msg
}

// formFromRequest resolves the {op} URL parameter.
func (c *Console) formFromRequest(w http.ResponseWriter, r *http.Request) (*form.Form, bool) {
	f := c.forms[faceapi.Operation(chi.URLParam(r, "op"))]
	if f == nil {
		http.NotFound(w, r)
		return nil, false
	}
	return f, true
}
