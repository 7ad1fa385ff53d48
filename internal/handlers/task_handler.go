package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vikasavnish/listinghub/internal/access"
	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/services"
	"github.com/vikasavnish/listinghub/internal/tasks"
	"github.com/vikasavnish/listinghub/internal/utils"
)

// TaskHandler exposes the background task schedule to admins.
type TaskHandler struct {
	manager *tasks.Manager
	log     logging.Logger
}

func NewTaskHandler(manager *tasks.Manager, log logging.Logger) *TaskHandler {
	return &TaskHandler{manager: manager, log: log}
}

func (h *TaskHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/tasks", h.List).Methods("GET")
	router.HandleFunc("/admin/tasks/{name}/run", h.Run).Methods("POST")
}

func (h *TaskHandler) authorize(r *http.Request) error {
	viewer := utils.ViewerFromContext(r.Context())
	if viewer == nil {
		return services.ErrSignInRequired
	}
	if !access.Decide(viewer, access.Intent{Kind: access.NavAdminDashboard}).Visible {
		return services.ErrForbidden
	}
	return nil
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := h.authorize(r); err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": h.manager.Statuses()})
}

// Run executes a task now and reports its error, if any.
func (h *TaskHandler) Run(w http.ResponseWriter, r *http.Request) {
	if err := h.authorize(r); err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}

	err := h.manager.Run(r.Context(), mux.Vars(r)["name"])
	switch {
	case errors.Is(err, tasks.ErrUnknownTask):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		writeError(r.Context(), w, h.log, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"tasks": h.manager.Statuses()})
	}
}
