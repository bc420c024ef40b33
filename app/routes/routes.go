package routes

import (
	"net/http"

	"inkwell/app/controllers"
	"inkwell/app/logger"
	"inkwell/app/middleware"
	"inkwell/app/render"

	"github.com/gorilla/mux"
)

// Handlers groups what the router dispatches to.
type Handlers struct {
	Posts    *controllers.PostController
	Comments *controllers.CommentController
	// Limiter throttles comment writes; nil disables throttling.
	Limiter middleware.Limiter
	// TrustedProxies may set X-Forwarded-For for throttling.
	TrustedProxies middleware.TrustedProxies
	Logger         *logger.Logger
}

// SetupRoutes defines the application's routes and returns a router.
func SetupRoutes(h Handlers) *mux.Router {
	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.Logger))
	router.Use(middleware.Recoverer(h.Logger))
	router.Use(middleware.ContentTypeJSON)

	throttle := func(next http.HandlerFunc) http.Handler {
		if h.Limiter == nil {
			return next
		}
		return middleware.RateLimit(h.Limiter, h.TrustedProxies, h.Logger)(next)
	}

	// Serve static files
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(render.Static())))

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Web routes
	router.HandleFunc("/", h.Posts.Index).Methods("GET")
	router.HandleFunc("/post/{slug}", h.Posts.Show).Methods("GET", "HEAD")
	router.Handle("/post/{slug}", throttle(h.Comments.Submit)).Methods("POST")

	// API routes
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/posts", h.Posts.List).Methods("GET")
	api.Handle("/createComment", throttle(h.Comments.Create)).Methods("POST")

	return router
}
