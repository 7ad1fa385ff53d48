package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vikasavnish/listinghub/internal/cache"
	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/services"
	"github.com/vikasavnish/listinghub/internal/utils"
)

type FavoriteHandler struct {
	favorites *services.FavoriteService
	log       logging.Logger
}

func NewFavoriteHandler(favorites *services.FavoriteService, log logging.Logger) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites, log: log}
}

func (h *FavoriteHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/favorites", h.List).Methods("GET")
	router.HandleFunc("/favorites/ids", h.IDs).Methods("GET")
	router.HandleFunc("/favorites/{id}", h.Get).Methods("GET")
	router.HandleFunc("/favorites/{id}/toggle", h.Toggle).Methods("POST")
}

func viewParam(r *http.Request) (cache.FavoritesView, bool) {
	v, err := cache.ParseFavoritesView(r.URL.Query().Get("view"))
	return v, err == nil
}

// List returns the user's favourites with their listings.
func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	view, ok := viewParam(r)
	if !ok {
		http.Error(w, "Invalid view", http.StatusBadRequest)
		return
	}
	favs, err := h.favorites.List(r.Context(), utils.SessionFromContext(r.Context()), view)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": favs})
}

func (h *FavoriteHandler) IDs(w http.ResponseWriter, r *http.Request) {
	ids, err := h.favorites.IDs(r.Context(), utils.SessionFromContext(r.Context()))
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids})
}

func (h *FavoriteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	fav, err := h.favorites.IsFavorited(r.Context(), utils.SessionFromContext(r.Context()), id)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorited": fav})
}

// Toggle flips the favourite. Signed-out callers get 401 and a notice.
func (h *FavoriteHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	view, ok := viewParam(r)
	if !ok {
		http.Error(w, "Invalid view", http.StatusBadRequest)
		return
	}

	fav, err := h.favorites.Toggle(r.Context(), utils.SessionFromContext(r.Context()), id, view)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorited": fav})
}
