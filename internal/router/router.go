// Package router wires the HTTP routes, their access tiers and the
// middleware chain.
package router

import (
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/film-festival/internal/handler"
	"github.com/iliyamo/film-festival/internal/middleware"
	"github.com/iliyamo/film-festival/internal/policy"
)

// Deps carries everything the routes need.
type Deps struct {
	Auth   *handler.AuthHandler
	Films  *handler.FilmHandler
	Events *handler.EventHandler

	JWTSecret string
	Clock     clockwork.Clock

	// Cache and RateLimit may be nil; the routes then run without them.
	Cache     *middleware.ResponseCache
	RateLimit echo.MiddlewareFunc

	Checks []handler.HealthCheck
}

// RegisterRoutes registers the probes and the metrics endpoint.
func RegisterRoutes(e *echo.Echo, checks ...handler.HealthCheck) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(checks...))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Register installs every route of the API on e.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d.Checks...)

	clock := d.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(d.JWTSecret, clock))
	if d.RateLimit != nil {
		v1.Use(d.RateLimit)
	}
	v1.Use(d.Cache.InvalidateOnWrite())

	RegisterAuth(v1, d.Auth)
	RegisterFilms(v1, d.Films, d.Cache)
	RegisterEvents(v1, d.Events, d.Cache)
}

// RegisterAuth registers the account routes. Register, login, refresh
// and logout need no session; /me does.
func RegisterAuth(g *echo.Group, a *handler.AuthHandler) {
	auth := g.Group("/auth")
	auth.POST("/register", a.Register)
	auth.POST("/login", a.Login)
	auth.POST("/refresh", a.Refresh)
	auth.POST("/logout", a.Logout)

	g.GET("/me", a.Me, middleware.Authorize(policy.ReadOwnActivity))
}

// RegisterFilms registers the watch pool routes.
func RegisterFilms(g *echo.Group, f *handler.FilmHandler, cache *middleware.ResponseCache) {
	cached := cache.Middleware()

	g.GET("/films-to-watch", f.ListToWatch, middleware.Authorize(policy.ReadFilms), cached)
	g.POST("/films-to-watch", f.Propose, middleware.Authorize(policy.ProposeFilm))
	g.GET("/films-watched", f.ListWatched, middleware.Authorize(policy.ReadFilms), cached)
	g.GET("/genres", f.Genres, middleware.Authorize(policy.ReadGenres), cached)

	g.DELETE("/films/:id", f.Delete, middleware.Authorize(policy.DeleteProposal))
	g.POST("/films/:id/upvote", f.Upvote, middleware.Authorize(policy.VoteFilm))
	g.DELETE("/films/:id/upvote", f.RemoveUpvote, middleware.Authorize(policy.VoteFilm))
	g.POST("/films/:id/rating", f.Rate, middleware.Authorize(policy.RateFilm))
	g.POST("/films/:id/watched", f.MarkWatched, middleware.Authorize(policy.MarkWatched))

	g.GET("/me/upvoted-films", f.MyUpvoted, middleware.Authorize(policy.ReadOwnActivity))
	g.GET("/me/rated-films", f.MyRated, middleware.Authorize(policy.ReadOwnActivity))
}

// RegisterEvents registers the event and event film routes.
func RegisterEvents(g *echo.Group, h *handler.EventHandler, cache *middleware.ResponseCache) {
	cached := cache.Middleware()

	g.GET("/events", h.List, middleware.Authorize(policy.ReadEvents), cached)
	g.POST("/events", h.Create, middleware.Authorize(policy.CreateEvent))
	g.GET("/events/:id", h.Get, middleware.Authorize(policy.ReadEvents), cached)
	g.PUT("/events/:id", h.Update, middleware.Authorize(policy.UpdateEvent))
	g.PATCH("/events/:id", h.Update, middleware.Authorize(policy.UpdateEvent))
	g.DELETE("/events/:id", h.Delete, middleware.Authorize(policy.DeleteEvent))
	g.GET("/events/:id/films", h.Films, middleware.Authorize(policy.ReadEvents), cached)
	g.POST("/events/:id/propose-film", h.ProposeFilm, middleware.Authorize(policy.ProposeFilmToEvent))

	g.POST("/event-films/:id/upvote", h.UpvoteFilm, middleware.Authorize(policy.VoteEventFilm))
	g.DELETE("/event-films/:id/upvote", h.RemoveFilmUpvote, middleware.Authorize(policy.VoteEventFilm))
	g.DELETE("/event-films/:id", h.DeleteFilm, middleware.Authorize(policy.DeleteEventProposal))
}
