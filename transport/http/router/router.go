package router

import (
	"hotel/internal/handlers/auth"
	"hotel/internal/handlers/booking"
	"hotel/internal/handlers/room"
	"hotel/internal/handlers/user"

	"github.com/go-chi/chi/v5"
)

const apiVersion = "/v1"

// registrar is implemented by every domain handler.
type registrar interface {
	Router(r chi.Router)
}

type DomainHandlers struct {
	Auth    auth.Handler
	User    user.Handler
	Room    room.Handler
	Booking booking.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
}

func New(domainHandlers DomainHandlers) Router {
	return Router{DomainHandlers: domainHandlers}
}

// SetupRoutes mounts every handler under /v1. Route patterns registered here
// must match the paths in permissions.json.
func (r *Router) SetupRoutes(router chi.Router) {
	handlers := []registrar{
		&r.DomainHandlers.Auth,
		&r.DomainHandlers.User,
		&r.DomainHandlers.Room,
		&r.DomainHandlers.Booking,
	}

	router.Route(apiVersion, func(v1 chi.Router) {
		for _, handler := range handlers {
			handler.Router(v1)
		}
	})
}
