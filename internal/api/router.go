package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/vikasavnish/listinghub/internal/handlers"
	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/middleware"
	"github.com/vikasavnish/listinghub/internal/services"
	"github.com/vikasavnish/listinghub/internal/tasks"
	"github.com/vikasavnish/listinghub/internal/websocket"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Auth      services.AuthService
	Listings  *services.ListingService
	Admin     *services.AdminService
	Favorites *services.FavoriteService
	Tasks     *tasks.Manager
	Hub       *websocket.Hub
	Log       logging.Logger
}

// SetupRouter configures all routes and returns the router
func SetupRouter(d Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/health", HealthHandler(d.Hub)).Methods("GET")

	// WebSocket route; the token travels as a query parameter
	router.HandleFunc("/ws", d.Hub.HandleWebSocket)

	// Every API route sees the caller's session when a bearer token is sent.
	// Handlers decide whether signed-out callers are allowed.
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(middleware.Session(d.Auth, d.Log))

	var onSignOut func(uuid.UUID)
	if d.Favorites != nil {
		onSignOut = d.Favorites.ForgetUser
	}
	handlers.NewAuthHandler(d.Auth, onSignOut, d.Log).RegisterRoutes(apiRouter)
	handlers.NewListingHandler(d.Listings, d.Log).RegisterRoutes(apiRouter)
	handlers.NewFavoriteHandler(d.Favorites, d.Log).RegisterRoutes(apiRouter)
	handlers.NewAdminHandler(d.Admin, d.Log).RegisterRoutes(apiRouter)
	handlers.NewViewHandler().RegisterRoutes(apiRouter)
	if d.Tasks != nil {
		handlers.NewTaskHandler(d.Tasks, d.Log).RegisterRoutes(apiRouter)
	}

	router.NotFoundHandler = http.HandlerFunc(http.NotFound)
	return router
}
