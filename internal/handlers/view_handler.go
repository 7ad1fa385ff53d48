package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vikasavnish/listinghub/internal/access"
	"github.com/vikasavnish/listinghub/internal/utils"
)

// ViewHandler tells clients which navigation entries and actions to offer.
type ViewHandler struct{}

func NewViewHandler() *ViewHandler { return &ViewHandler{} }

func (h *ViewHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/me/views", h.Views).Methods("GET")
}

func (h *ViewHandler) Views(w http.ResponseWriter, r *http.Request) {
	viewer := utils.ViewerFromContext(r.Context())
	decide := func(k access.IntentKind) access.Decision {
		return access.Decide(viewer, access.Intent{Kind: k})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tabs": access.Tabs(viewer),
		"decisions": map[string]access.Decision{
			"browse_listings":     decide(access.BrowseListings),
			"edit_listing_status": decide(access.EditListingStatus),
			"add_listing":         decide(access.NavAddListing),
			"admin_dashboard":     decide(access.NavAdminDashboard),
			"manage_favorites":    decide(access.ManageFavorites),
		},
	})
}
