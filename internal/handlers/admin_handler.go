package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/models"
	"github.com/vikasavnish/listinghub/internal/services"
	"github.com/vikasavnish/listinghub/internal/utils"
)

type AdminHandler struct {
	admin *services.AdminService
	log   logging.Logger
}

func NewAdminHandler(admin *services.AdminService, log logging.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, log: log}
}

func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/listings", h.Queue).Methods("GET")
	router.HandleFunc("/admin/stats", h.Stats).Methods("GET")
	router.HandleFunc("/admin/listings/{id}/status", h.UpdateStatus).Methods("PUT")
}

// Queue lists pending and need_fix listings.
func (h *AdminHandler) Queue(w http.ResponseWriter, r *http.Request) {
	listings, err := h.admin.Queue(r.Context(), utils.ViewerFromContext(r.Context()))
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context(), utils.ViewerFromContext(r.Context()))
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	var req models.StatusUpdateRequest
	if !decode(r, &req) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	listing, err := h.admin.UpdateStatus(r.Context(), utils.ViewerFromContext(r.Context()), id, req.Status)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}
