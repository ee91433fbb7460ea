// internal/catalog/handler.go
package catalog

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libtrack/internal/liberr"
	"libtrack/internal/membership"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type bookRequest struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Available string `json:"available"`
	ISBN      string `json:"isbn,omitempty"`
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.Search(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, err)
		return
	}

	if books == nil {
		books = []*Book{}
	}
	json.NewEncoder(w).Encode(books)
}

func (h *Handler) HandlePopular(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	books, err := h.service.Popular(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	if books == nil {
		books = []PopularBook{}
	}
	json.NewEncoder(w).Encode(books)
}

func (h *Handler) HandleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		http.Error(w, "invalid book ID", http.StatusBadRequest)
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(book)
}

func (h *Handler) HandleAddBook(w http.ResponseWriter, r *http.Request) {
	actor, ok := membership.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	book, err := h.service.AddBook(r.Context(), actor, req.Title, req.Author, req.Available, req.ISBN)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(book)
}

func (h *Handler) HandleEditBook(w http.ResponseWriter, r *http.Request) {
	actor, ok := membership.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		http.Error(w, "invalid book ID", http.StatusBadRequest)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.EditBook(r.Context(), actor, id, req.Title, req.Author, req.Available, req.ISBN); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) HandleDeleteBook(w http.ResponseWriter, r *http.Request) {
	actor, ok := membership.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		http.Error(w, "invalid book ID", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteBook(r.Context(), actor, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	status := liberr.HTTPStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Printf("catalog request failed: %v", err)
		msg = "internal error"
	}
	http.Error(w, msg, status)
}
