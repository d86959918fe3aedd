package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/mermaidlive/pkg/editor"
	"github.com/matzehuels/mermaidlive/pkg/errors"
	mlio "github.com/matzehuels/mermaidlive/pkg/io"
	"github.com/matzehuels/mermaidlive/pkg/render/raster"
	"github.com/matzehuels/mermaidlive/pkg/session"
	"github.com/matzehuels/mermaidlive/pkg/view"
)

// =============================================================================
// Responses
// =============================================================================

type viewResponse struct {
	view.Transform
	Percent int    `json:"percent"`
	CSS     string `json:"css"`
}

type sessionResponse struct {
	ID      string       `json:"id"`
	State   editor.State `json:"state"`
	View    viewResponse `json:"view"`
	Latest  uint64       `json:"latest"`
	Changed *bool        `json:"changed,omitempty"`
}

type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func newSessionResponse(sess *session.Session) sessionResponse {
	snap := sess.Editor().Snapshot()
	return sessionResponse{
		ID:    sess.ID,
		State: snap.State,
		View: viewResponse{
			Transform: snap.View,
			Percent:   snap.View.Percent(),
			CSS:       snap.View.CSS(),
		},
		Latest: sess.Pipeline().Latest(),
	}
}

func changedResponse(sess *session.Session, changed bool) sessionResponse {
	resp := newSessionResponse(sess)
	resp.Changed = &changed
	return resp
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.store.Len()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess := s.store.Create(s.tmpl)
	s.logger.Debug("session created", "id", sess.ID)
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.session(w, r); !ok {
		return
	}
	if err := s.store.Delete(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type loadRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req loadRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := sess.LoadNamed(req.Name, req.Text); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

type editRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleEditStandalone(w http.ResponseWriter, r *http.Request) {
	s.handleEdit(w, r, (*editor.Editor).EditStandalone)
}

func (s *Server) handleEditDocument(w http.ResponseWriter, r *http.Request) {
	s.handleEdit(w, r, (*editor.Editor).EditDocument)
}

// handleEdit applies a buffer edit. Edits to the buffer of the inactive
// mode are no-ops and report changed=false.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request, edit func(*editor.Editor, string) bool) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req editRequest
	if !s.decode(w, r, &req) {
		return
	}
	changed := edit(sess.Editor(), req.Text)
	writeJSON(w, http.StatusOK, changedResponse(sess, changed))
}

type selectRequest struct {
	Index int `json:"index"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if !s.decode(w, r, &req) {
		return
	}
	changed := sess.Editor().Select(req.Index)
	writeJSON(w, http.StatusOK, changedResponse(sess, changed))
}

type modeRequest struct {
	Embedded bool `json:"embedded"`
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req modeRequest
	if !s.decode(w, r, &req) {
		return
	}
	changed := sess.Editor().ToggleMode(req.Embedded)
	writeJSON(w, http.StatusOK, changedResponse(sess, changed))
}

type viewRequest struct {
	Action string   `json:"action"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Delta  float64  `json:"delta,omitempty"`
}

func (req viewRequest) point() (view.Point, bool) {
	if req.X == nil || req.Y == nil {
		return view.Point{}, false
	}
	return view.Point{X: *req.X, Y: *req.Y}, true
}

func (req viewRequest) anchor() *view.Point {
	if p, ok := req.point(); ok {
		return &p
	}
	return nil
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req viewRequest
	if !s.decode(w, r, &req) {
		return
	}

	ed := sess.Editor()
	switch req.Action {
	case "zoom_in":
		ed.ZoomIn()
	case "zoom_out":
		ed.ZoomOut()
	case "reset":
		ed.ResetView()
	case "wheel":
		ed.Wheel(req.Delta, req.anchor())
	case "drag_start", "drag":
		p, ok := req.point()
		if !ok {
			s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "%s needs x and y", req.Action))
			return
		}
		if req.Action == "drag_start" {
			ed.BeginDrag(p)
		} else {
			ed.DragTo(p)
		}
	case "drag_end":
		ed.EndDrag()
	default:
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "unknown view action %q", req.Action))
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// handleRender long-polls for a render result newer than ?after. It
// responds 204 when nothing newer was applied within the poll timeout.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var after uint64
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid after token %q", v))
			return
		}
		after = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.poll)
	defer cancel()

	res, err := sess.Pipeline().Wait(ctx, after)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case r.Context().Err() != nil:
		// Client went away.
	case err == context.DeadlineExceeded:
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeError(w, errors.New(errors.ErrCodeSessionNotFound, "session closed"))
	}
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	name, content := sess.Save()
	contentType := "text/plain; charset=utf-8"
	if mlio.IsDocumentFile(name) {
		contentType = "text/markdown; charset=utf-8"
	}
	writeAttachment(w, name, contentType, []byte(content))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = string(raster.SVG)
	}
	f, err := raster.ParseFormat(format)
	if err != nil {
		s.writeError(w, err)
		return
	}

	name, data, err := sess.Export(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeAttachment(w, name, f.ContentType(), data)
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body"))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "code", code, "error", err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: errors.UserMessage(err)})
}

// statusFor maps an error code to an HTTP status.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidPath, errors.ErrCodeInvalidMode:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound, errors.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case errors.ErrCodeNoDiagram, errors.ErrCodeUnsupported:
		return http.StatusConflict
	case errors.ErrCodeRenderFailed:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeNetwork:
		return http.StatusBadGateway
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAttachment(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", strings.ReplaceAll(name, `"`, "")))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
