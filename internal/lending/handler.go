// internal/lending/handler.go
package lending

import (
	"encoding/json"
	"log"
	"net/http"

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

func (h *Handler) HandleBorrow(w http.ResponseWriter, r *http.Request) {
	actor, ok := membership.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		http.Error(w, "invalid book ID", http.StatusBadRequest)
		return
	}

	borrow, err := h.service.Borrow(r.Context(), actor, bookID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(borrow)
}

func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	actor, ok := membership.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		http.Error(w, "invalid book ID", http.StatusBadRequest)
		return
	}

	borrow, err := h.service.Return(r.Context(), actor, bookID)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(borrow)
}

// HandleMyBorrows serves the caller's borrow history together with the
// outstanding fine total, the profile page payload.
func (h *Handler) HandleMyBorrows(w http.ResponseWriter, r *http.Request) {
	actor, ok := membership.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	borrows, err := h.service.UserBorrows(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	total, err := h.service.UnpaidFinesTotal(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	if borrows == nil {
		borrows = []BorrowView{}
	}
	json.NewEncoder(w).Encode(map[string]any{
		"borrows":           borrows,
		"unpaid_fine_total": total,
	})
}

func (h *Handler) HandleAdminReturn(w http.ResponseWriter, r *http.Request) {
	actor, ok := membership.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		http.Error(w, "invalid book ID", http.StatusBadRequest)
		return
	}

	borrow, err := h.service.AdminReturn(r.Context(), actor, userID, bookID)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(borrow)
}

func (h *Handler) HandleListFines(w http.ResponseWriter, r *http.Request) {
	fines, err := h.service.UnpaidFines(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if fines == nil {
		fines = []FineView{}
	}
	json.NewEncoder(w).Encode(fines)
}

func (h *Handler) HandleSettleFine(w http.ResponseWriter, r *http.Request) {
	actor, ok := membership.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	borrowID, err := uuid.Parse(chi.URLParam(r, "borrowID"))
	if err != nil {
		http.Error(w, "invalid borrow ID", http.StatusBadRequest)
		return
	}

	if err := h.service.SettleFine(r.Context(), actor, borrowID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	status := liberr.HTTPStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Printf("lending request failed: %v", err)
		msg = "internal error"
	}
	http.Error(w, msg, status)
}
