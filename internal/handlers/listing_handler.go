package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vikasavnish/listinghub/internal/access"
	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/models"
	"github.com/vikasavnish/listinghub/internal/query"
	"github.com/vikasavnish/listinghub/internal/services"
	"github.com/vikasavnish/listinghub/internal/utils"
)

type ListingHandler struct {
	listings *services.ListingService
	log      logging.Logger
}

func NewListingHandler(listings *services.ListingService, log logging.Logger) *ListingHandler {
	return &ListingHandler{listings: listings, log: log}
}

func (h *ListingHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/listings", h.list(h.listings.Browse)).Methods("GET")
	router.HandleFunc("/listings/search", h.list(h.listings.Search)).Methods("GET")
	router.HandleFunc("/listings/map", h.list(h.listings.Map)).Methods("GET")
	router.HandleFunc("/listings", h.Create).Methods("POST")
	router.HandleFunc("/listings/{id}", h.Get).Methods("GET")
	router.HandleFunc("/listings/{id}", h.Update).Methods("PUT")
	router.HandleFunc("/listings/{id}/prices", h.Prices).Methods("GET")
}

type listFunc func(ctx context.Context, f query.Filters) ([]models.Listing, error)

func (h *ListingHandler) list(fetch listFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listings, err := fetch(r.Context(), query.FiltersFromValues(r.URL.Query()))
		if err != nil {
			writeError(r.Context(), w, h.log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
	}
}

// Get returns one listing and what the viewer may do with it.
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	listing, err := h.listings.Detail(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}

	viewer := utils.ViewerFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"listing": listing,
		"edit":    access.Decide(viewer, access.Intent{Kind: access.EditListing, Listing: &listing}),
		"status":  access.Decide(viewer, access.Intent{Kind: access.EditListingStatus}),
	})
}

func (h *ListingHandler) Prices(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	entries, err := h.listings.PriceHistory(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"trend":   services.PriceTrend(entries),
	})
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft models.ListingDraft
	if !decode(r, &draft) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	listing, err := h.listings.Create(r.Context(), utils.ViewerFromContext(r.Context()), draft)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	var draft models.ListingDraft
	if !decode(r, &draft) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	listing, err := h.listings.Update(r.Context(), utils.ViewerFromContext(r.Context()), id, draft)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}
