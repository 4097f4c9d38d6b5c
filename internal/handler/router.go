package handler

import (
	"net/http"

	"github.com/freeeve/blockfall/internal/auth"
	"github.com/freeeve/blockfall/internal/middleware"
)

// Handlers groups every route handler the router mounts.
type Handlers struct {
	Auth     *AuthHandler
	Engine   *EngineHandler
	Sessions *SessionHandler
	SelfPlay *SelfPlayHandler
	Games    *GameHandler
	Health   *HealthHandler
	WS       *WSHandler
}

// NewRouter mounts the public routes, the bearer-protected /api/v1 routes
// and the WebSocket endpoint, wrapped in the global middleware chain.
func NewRouter(h Handlers, jwtMgr *auth.JWTManager, corsOrigins string) http.Handler {
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	mux.HandleFunc("GET /healthz", h.Health.Healthz)
	mux.HandleFunc("POST /auth/token", h.Auth.Token)
	mux.HandleFunc("POST /auth/refresh", h.Auth.Refresh)

	api := http.NewServeMux()
	api.HandleFunc("POST /bestmove", h.Engine.BestMove)
	api.HandleFunc("POST /sessions", h.Sessions.Create)
	api.HandleFunc("GET /sessions/{id}", h.Sessions.Get)
	api.HandleFunc("DELETE /sessions/{id}", h.Sessions.Delete)
	api.HandleFunc("POST /sessions/{id}/step", h.Sessions.Step)
	api.HandleFunc("POST /selfplay", h.SelfPlay.Start)
	api.HandleFunc("GET /games", h.Games.List)
	api.HandleFunc("GET /games/{id}", h.Games.Get)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// Token comes from the query string, not the middleware.
	mux.HandleFunc("GET /api/v1/ws", h.WS.ServeWS)

	return middleware.Chain(mux, middleware.Logger, middleware.Recover, middleware.CORS(corsOrigins), middleware.JSON)
}
