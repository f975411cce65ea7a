package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kozaktomas/facegate/internal/capture"
	"github.com/kozaktomas/facegate/internal/faceapi"
	"github.com/kozaktomas/facegate/internal/form"
)

const mjpegBoundary = "facegateframe"

// backTo returns the page a camera post came from.
func backTo(r *http.Request) (faceapi.Operation, string) {
	op := faceapi.Operation(r.FormValue("form"))
	switch op {
	case faceapi.OpEnroll, faceapi.OpVerify, faceapi.OpIdentify:
		return op, "/" + string(op)
	default:
		return "", "/"
	}
}

// CameraStart (re)starts the shared camera session.
func (c *Console) CameraStart(w http.ResponseWriter, r *http.Request) {
	op, back := backTo(r)
	if op != "" {
		c.forms[op].SetMode(form.ModeCamera)
	}
	if state := c.camera.Start(r.Context()); state == capture.Error && op != "" {
		c.setNotice(op, c.camera.Message())
	}
	redirect(w, r, back)
}

// CameraStop releases the camera.
func (c *Console) CameraStop(w http.ResponseWriter, r *http.Request) {
	_, back := backTo(r)
	c.camera.Stop()
	redirect(w, r, back)
}

// CameraCapture takes a still into the camera slot of a form and releases
// the camera, like a shutter press.
func (c *Console) CameraCapture(w http.ResponseWriter, r *http.Request) {
	op, back := backTo(r)
	if op == "" {
		respondError(w, http.StatusBadRequest, "missing form")
		return
	}
	f := c.forms[op]

	blob, err := c.camera.Capture(r.Context())
	switch {
	case err != nil:
		c.logger.Warn("camera capture failed", zap.Error(err))
		c.setNotice(op, "Não foi possível capturar a imagem.")
	case blob == nil:
		c.setNotice(op, "Câmera inativa")
	default:
		f.SetImage(form.ModeCamera, blob)
		f.SetMode(form.ModeCamera)
		c.camera.Stop()
	}
	redirect(w, r, back)
}

// CameraPreview streams the live camera as multipart MJPEG. The stream is
// the mounted camera view: the first viewer starts the session, and when
// the last viewer goes away the camera is stopped.
func (c *Console) CameraPreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c.attachViewer(ctx)
	defer c.detachViewer()

	if c.camera.State() != capture.Active {
		respondError(w, http.StatusServiceUnavailable, capture.ErrorMessage(c.camera.Err()))
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	var seq uint64
	for {
		frame, next, err := c.camera.NextFrame(ctx, seq)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				c.logger.Debug("camera preview ended", zap.Error(err))
			}
			return
		}
		seq = next
		if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", mjpegBoundary, len(frame)); err != nil {
			return
		}
		if _, err := w.Write(frame); err != nil {
			return
		}
		if _, err := w.Write([]byte("\r\n")); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// attachViewer registers a live view and starts an idle camera for the
// first one. A failed camera is only retried through CameraStart.
func (c *Console) attachViewer(ctx context.Context) {
	c.mu.Lock()
	c.viewers++
	first := c.viewers == 1
	c.mu.Unlock()

	if first && c.camera.State() == capture.Idle {
		startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		c.camera.Start(startCtx)
	}
}

// detachViewer stops the camera when the last live view goes away.
func (c *Console) detachViewer() {
	c.mu.Lock()
	c.viewers--
	last := c.viewers == 0
	c.mu.Unlock()

	if last {
		c.camera.Stop()
	}
}
