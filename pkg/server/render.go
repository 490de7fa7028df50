package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/tikzcell/pkg/errors"
	"github.com/matzehuels/tikzcell/pkg/render"
)

// renderResponse is the JSON form of a rendered image.
type renderResponse struct {
	ID     string `json:"id"`
	PNG    string `json:"image/png"`
	DPI    int    `json:"dpi"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Cached bool   `json:"cached"`
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Code   string `json:"code"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req := s.deps.Defaults

	body := http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, string(errors.ErrCodeInvalidInput),
				"request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes", "")
			return
		}
		writeError(w, http.StatusBadRequest, string(errors.ErrCodeInvalidInput), "invalid JSON body: "+err.Error(), "")
		return
	}

	// The server's filesystem is off limits to clients.
	if req.InputFile != "" || req.ExportFile != "" {
		s.deps.Logger.Debug("ignoring file options", "id", RequestIDFromContext(r.Context()))
	}
	req.InputFile, req.ExportFile, req.Debug = "", "", false

	req.SetDefaults()
	if !slices.Contains(s.deps.Engines, req.Engine) {
		writeError(w, http.StatusBadRequest, string(errors.ErrCodeInvalidEngine),
			"engine "+strconv.Quote(req.Engine)+" is not allowed",
			"allowed engines: "+strings.Join(s.deps.Engines, ", "))
		return
	}

	res, err := s.deps.Renderer.Render(r.Context(), req)
	if err != nil {
		s.deps.Logger.Warn("render failed",
			"id", RequestIDFromContext(r.Context()),
			"code", errors.GetCode(err),
			"err", err)
		writeError(w, statusFor(err), codeFor(err), errors.UserMessage(err), errors.DetailOf(err))
		return
	}

	cache := "miss"
	if res.CacheHit {
		cache = "hit"
	}
	w.Header().Set("X-Render-Cache", cache)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, renderResponse{
			ID:     RequestIDFromContext(r.Context()),
			PNG:    res.Image.Base64(),
			DPI:    res.Image.DPI,
			Width:  res.Image.Width,
			Height: res.Image.Height,
			Cached: res.CacheHit,
		})
		return
	}

	w.Header().Set("Content-Type", render.MimePNG)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Image.PNG)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Image.PNG)
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.IsValidation(err), errors.Is(err, errors.ErrCodeUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrCodeCompilation), errors.Is(err, errors.ErrCodeConversion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrCodeTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func codeFor(err error) string {
	if code := errors.GetCode(err); code != "" {
		return string(code)
	}
	return string(errors.ErrCodeInternal)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg, detail string) {
	writeJSON(w, status, errorResponse{Code: code, Error: msg, Detail: detail})
}
