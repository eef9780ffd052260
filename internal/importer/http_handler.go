package importer

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"booklist/internal/httpx"
	"booklist/internal/isbn"
)

type HTTPHandler struct {
	svc    *Service
	secret string
	log    *slog.Logger
}

func NewHTTPHandler(svc *Service, secret string, log *slog.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, secret: secret, log: log}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/import", h.Import)
	mux.HandleFunc("GET /v1/import/runs/{id}", h.GetRun)
}

// ImportResult is the body of a successful POST /v1/import.
type ImportResult struct {
	Message string `json:"message"`
	Run     Run    `json:"run"`
}

// Import handles POST /v1/import
// @Summary Import books from Open Library
// @Description Search the external catalog and store every result with a valid ISBN
// @Tags import
// @Accept json
// @Produce json
// @Param X-Import-Secret header string false "Required when IMPORT_SECRET is configured"
// @Param request body Request true "Search terms"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 502 {object} httpx.ErrorResponse
// @Router /v1/import [post]
func (h *HTTPHandler) Import(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Import-Secret")), []byte(h.secret)) != 1 {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid import secret", nil)
		return
	}

	var req Request
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	run, err := h.svc.Import(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.JSONSuccess(w, r, ImportResult{
		Message: fmt.Sprintf("Books imported: %d", run.Imported),
		Run:     run,
	}, nil)
}

// GetRun handles GET /v1/import/runs/{id}
func (h *HTTPHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Import run not found", nil)
		return
	}
	run, err := h.svc.GetRun(r.Context(), id.String())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, run, nil)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *isbn.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid ISBN", []httpx.ErrorDetail{
			{Field: "isbn", Message: string(verr.Reason) + ": " + verr.Reason.Message()},
		})
	case errors.Is(err, ErrInvalidRequest):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrNoResults):
		httpx.JSONError(w, r, http.StatusNotFound, "NO_RESULTS", "Books imported: 0", nil)
	case errors.Is(err, ErrRunNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Import run not found", nil)
	default:
		h.log.Error("import request failed", "path", r.URL.Path, "request_id", httpx.RequestIDFrom(r), "error", err)
		httpx.JSONError(w, r, http.StatusBadGateway, "IMPORT_FAILED", "Import failed", nil)
	}
}
