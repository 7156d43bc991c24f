package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"hotel/config"
	"hotel/infras/jwt"
	"hotel/infras/otel"
	"hotel/permissions"
	"hotel/shared/constant"
	"hotel/shared/failure"
	"hotel/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type internalCallKey struct{}

// Auth authenticates requests, by bearer token or by internal API key.
type Auth interface {
	Auth(http.Handler) http.Handler
	APIKey(http.Handler) http.Handler
}

// Role authorizes an authenticated request against the permission table.
type Role interface {
	RBAC(http.Handler) http.Handler
}

type AuthRole interface {
	Auth
	Role
}

type authRoleImpl struct {
	jwtService jwt.JWT
	otel       otel.Otel
	permission *permissions.PermissionData
	cfg        *config.Config
}

func NewAuthRoleMiddleware(jwtService jwt.JWT, otel otel.Otel, permissions *permissions.PermissionData, cfg *config.Config) AuthRole {
	return &authRoleImpl{
		jwtService: jwtService,
		otel:       otel,
		permission: permissions,
		cfg:        cfg,
	}
}

// tokenErrors maps jwt validation errors to client messages.
//
//nolint:gochecknoglobals
var tokenErrors = []struct {
	err     error
	message string
}{
	{err: jwt.ErrExpiredToken, message: "Token has expired"},
	{err: jwt.ErrInvalidToken, message: "Invalid token"},
	{err: jwt.ErrInvalidClaim, message: "Invalid token claims"},
}

// Auth requires a valid access token on every permissioned route that is not
// marked skip. Claims are copied into the request context.
func (m *authRoleImpl) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "auth.middleware")
		defer scope.End()

		path := routePattern(request)
		if m.bypass(request) || path == "" || (m.permission != nil && m.permission.FindPermissions(path, request.Method).Skip) {
			next.ServeHTTP(writer, request)

			return
		}

		scope.SetAttributes(map[string]any{
			"middleware.type": "auth",
			"http.path":       path,
			"http.method":     request.Method,
		})

		ctx, err := m.authenticate(request)
		if err != nil {
			scope.TraceError(err)
			response.WithError(writer, err)

			return
		}

		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

func (m *authRoleImpl) authenticate(request *http.Request) (context.Context, error) {
	header := request.Header.Get(constant.RequestHeaderAuthorization)
	if header == "" {
		return nil, failure.Unauthorized("Missing authorization header")
	}

	token, err := jwt.ExtractTokenFromHeader(header)
	if err != nil {
		return nil, failure.Unauthorized("Invalid authorization header format")
	}

	claims, err := m.jwtService.ValidateToken(token, jwt.AccessToken)
	if err != nil {
		for _, known := range tokenErrors {
			if errors.Is(err, known.err) {
				return nil, failure.Unauthorized(known.message)
			}
		}

		return nil, failure.Unauthorized("Token validation failed")
	}

	if claims.UserID == 0 || claims.Email == "" {
		log.Error().Int64("user_id", claims.UserID).Msg("JWT claims: user id or email is empty")

		return nil, failure.Unauthorized("Invalid token claims")
	}

	ctx := request.Context()
	ctx = context.WithValue(ctx, constant.ContextKeyUserID, strconv.FormatInt(claims.UserID, 10))
	ctx = context.WithValue(ctx, constant.ContextKeyUserEmail, claims.Email)
	ctx = context.WithValue(ctx, constant.ContextKeyUserRole, claims.Role)
	ctx = context.WithValue(ctx, constant.ContextKeyTokenID, claims.ID)

	return ctx, nil
}

// RBAC runs after Auth and checks the caller's role against the route's
// allowed roles. Without a permission table every request is refused.
func (m *authRoleImpl) RBAC(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "rbac.middleware")
		defer scope.End()

		if m.bypass(request) {
			next.ServeHTTP(writer, request)

			return
		}

		if m.permission == nil {
			response.WithError(writer, failure.ForbiddenError)

			return
		}

		path := routePattern(request)
		permission := m.permission.FindPermissions(path, request.Method)

		if m.permission.Skip || path == "" || permission.Skip {
			next.ServeHTTP(writer, request)

			return
		}

		role, _ := request.Context().Value(constant.ContextKeyUserRole).(string)
		if !permission.Allows(role) {
			scope.TraceError(failure.ForbiddenError)
			scope.SetAttributes(map[string]any{
				"user_role":     role,
				"allowed_roles": permission.Roles,
				"reason":        "role_not_allowed",
			})
			response.WithError(writer, failure.ForbiddenError)

			return
		}

		next.ServeHTTP(writer, request)
	})
}

// APIKey lets internal callers presenting the configured key skip Auth and
// RBAC. A wrong key is refused outright; no key means a regular client.
func (m *authRoleImpl) APIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "api_key.middleware")
		defer scope.End()

		key := request.Header.Get(constant.RequestHeaderAPIKey)
		if key == "" {
			scope.SetAttribute("http.source", "client")
			next.ServeHTTP(writer, request)

			return
		}

		scope.SetAttribute("http.source", "internal")

		if m.cfg.App.APIKey == "" || key != m.cfg.App.APIKey {
			scope.TraceError(failure.ForbiddenError)
			response.WithError(writer, failure.ForbiddenError)

			return
		}

		next.ServeHTTP(writer, request.WithContext(context.WithValue(request.Context(), internalCallKey{}, true)))
	})
}

func (m *authRoleImpl) bypass(request *http.Request) bool {
	internal, _ := request.Context().Value(internalCallKey{}).(bool)

	return internal
}

// routePattern resolves the registered chi pattern for the request, e.g.
// "/v1/rooms/adm/{id}". Empty when nothing matches.
func routePattern(request *http.Request) string {
	rctx := chi.RouteContext(request.Context())
	if rctx == nil || rctx.Routes == nil {
		return ""
	}

	return rctx.Routes.Find(chi.NewRouteContext(), request.Method, request.URL.Path)
}
