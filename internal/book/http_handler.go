package book

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"booklist/internal/httpx"
	"booklist/internal/isbn"
)

type HTTPHandler struct {
	service *Service
	log     *slog.Logger
}

func NewHTTPHandler(service *Service, log *slog.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, log: log}
}

// Register mounts the book routes on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/books", h.List)
	mux.HandleFunc("POST /v1/books", h.Create)
	mux.HandleFunc("GET /v1/books/{id}", h.Get)
	mux.HandleFunc("PUT /v1/books/{id}", h.Update)
	mux.HandleFunc("DELETE /v1/books/{id}", h.Delete)
	mux.HandleFunc("GET /v1/books/isbn/{isbn}", h.GetByISBN)
	mux.HandleFunc("GET /v1/api/books", h.APIList)
	mux.HandleFunc("GET /v1/isbn/{isbn}", h.CheckISBN)
}

func parseListQuery(r *http.Request) (Query, int, int) {
	query := r.URL.Query()

	params := Query{
		Search:   query.Get("search"),
		Language: query.Get("language"),
	}

	if yearFromStr := query.Get("date_from"); yearFromStr != "" {
		if val, err := strconv.Atoi(yearFromStr); err == nil {
			params.DateFrom = &val
		}
	}

	if yearToStr := query.Get("date_to"); yearToStr != "" {
		if val, err := strconv.Atoi(yearToStr); err == nil {
			params.DateTo = &val
		}
	}

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(query.Get("page_size"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	params.Limit = pageSize
	params.Offset = (page - 1) * pageSize
	return params, page, pageSize
}

// List handles GET /v1/books
// @Summary List books
// @Description List books ordered by author and title, with keyword and publication-year filters
// @Tags books
// @Produce json
// @Param search query string false "Keyword matched against title, author, language and ISBN"
// @Param date_from query int false "Earliest publication year"
// @Param date_to query int false "Latest publication year"
// @Param language query string false "Publication language"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page" default(20)
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /v1/books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	params, page, pageSize := parseListQuery(r)

	books, total, err := h.service.List(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.JSONSuccess(w, r, books, httpx.PageMeta(page, pageSize, total))
}

// APIList handles GET /v1/api/books
// @Summary Read-only book API
// @Tags api
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/api/books [get]
func (h *HTTPHandler) APIList(w http.ResponseWriter, r *http.Request) {
	params, page, pageSize := parseListQuery(r)

	books, total, err := h.service.List(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.JSONSuccess(w, r, SerializeAll(books), httpx.PageMeta(page, pageSize, total))
}

// Get handles GET /v1/books/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// GetByISBN handles GET /v1/books/isbn/{isbn}
// @Summary Get book by ISBN
// @Tags books
// @Produce json
// @Param isbn path string true "ISBN-10 or ISBN-13, hyphens allowed"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /v1/books/isbn/{isbn} [get]
func (h *HTTPHandler) GetByISBN(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetByISBN(r.Context(), r.PathValue("isbn"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Create handles POST /v1/books
// @Summary Add a book
// @Tags books
// @Accept json
// @Produce json
// @Param book body Input true "Book"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /v1/books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	b, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, b)
}

// Update handles PUT /v1/books/{id}
// @Summary Edit a book
// @Tags books
// @Accept json
// @Produce json
// @Param id path string true "Book ID"
// @Param book body Input true "Book"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /v1/books/{id} [put]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	b, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Delete handles DELETE /v1/books/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONNoContent(w)
}

// ISBNCheck is the body of GET /v1/isbn/{isbn}.
type ISBNCheck struct {
	Input      string        `json:"input"`
	Normalized string        `json:"normalized"`
	Valid      bool          `json:"valid"`
	Standard   isbn.Standard `json:"standard,omitempty"`
	Reason     isbn.Reason   `json:"reason,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// CheckISBN handles GET /v1/isbn/{isbn}. An invalid identifier is a normal
// 200 response with valid=false.
// @Summary Validate an ISBN
// @Tags isbn
// @Produce json
// @Param isbn path string true "Identifier to validate"
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/isbn/{isbn} [get]
func (h *HTTPHandler) CheckISBN(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("isbn")
	o := h.service.CheckISBN(raw)
	httpx.JSONSuccess(w, r, ISBNCheck{
		Input:      raw,
		Normalized: o.Normalized,
		Valid:      o.Valid(),
		Standard:   o.Standard,
		Reason:     o.Reason,
		Message:    o.Reason.Message(),
	}, nil)
}

func (h *HTTPHandler) bookID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		return "", false
	}
	return id.String(), true
}

func decodeInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return Input{}, false
	}
	if details := httpx.ValidateStruct(in); details != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return Input{}, false
	}
	return in, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *isbn.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid ISBN", []httpx.ErrorDetail{
			{Field: "isbn", Message: string(verr.Reason) + ": " + verr.Reason.Message()},
		})
	case errors.Is(err, ErrInvalidInput):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	case errors.Is(err, ErrDuplicateISBN):
		httpx.JSONError(w, r, http.StatusConflict, "DUPLICATE_ISBN", err.Error(), nil)
	default:
		h.log.Error("book request failed", "path", r.URL.Path, "request_id", httpx.RequestIDFrom(r), "error", err)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
