// internal/audit/handler.go
package audit

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
)

type Handler struct {
	log *Log
}

func NewHandler(auditLog *Log) *Handler {
	return &Handler{log: auditLog}
}

func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.log.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("audit listing failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if entries == nil {
		entries = []Entry{}
	}
	json.NewEncoder(w).Encode(entries)
}
