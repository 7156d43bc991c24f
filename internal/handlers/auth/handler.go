package auth

import (
	"context"
	"net/http"

	"hotel/infras/otel"
	"hotel/internal/domains/auth/model/dto"
	"hotel/internal/domains/auth/service"
	"hotel/shared/constant"
	"hotel/shared/validator"
	"hotel/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Auth
	otel    otel.Otel
}

func New(service service.Auth, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(r chi.Router) {
	r.Post("/auth/register", handler.Register)
	r.Post("/auth/login", handler.Login)
	r.Post("/auth/refresh-token", handler.RefreshToken)
	r.Get("/auth/check", handler.Check)
}

// exchange decodes and validates a credential request, runs call and answers
// with the issued token pair.
func exchange[T any](handler *Handler, w http.ResponseWriter, r *http.Request, operation string, code int, call func(context.Context, T) (dto.AuthResponse, error)) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+"."+operation)
	defer scope.End()

	var req T

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	res, err := call(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Str("operation", operation).Msg("auth request refused")

		response.WithError(w, err)

		return
	}

	scope.SetAttribute("user.id", res.User.ID)

	response.WithJSON(w, code, res)
}

// Register creates a staff account and signs it in.
// @Summary Register a staff user
// @Description Create a MANAGER account unless a role is given, and return a token pair.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Register Request"
// @Success 201 {object} response.Data[dto.AuthResponse]
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/auth/register [post]
func (handler *Handler) Register(w http.ResponseWriter, r *http.Request) {
	exchange(handler, w, r, "Register", http.StatusCreated, handler.service.Register)
}

// Login trades email and password for a token pair.
// @Summary Login
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login Request"
// @Success 200 {object} response.Data[dto.AuthResponse]
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/auth/login [post]
func (handler *Handler) Login(w http.ResponseWriter, r *http.Request) {
	exchange(handler, w, r, "Login", http.StatusOK, handler.service.Login)
}

// RefreshToken trades a refresh token for a new pair.
// @Summary Refresh tokens
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh Token Request"
// @Success 200 {object} response.Data[dto.AuthResponse]
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/auth/refresh-token [post]
func (handler *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	exchange(handler, w, r, "RefreshToken", http.StatusOK, handler.service.RefreshToken)
}

// Check returns the user behind the access token.
// @Summary Current user
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Data[dto.CheckResponse]
// @Failure 401 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/auth/check [get]
// @Security BearerAuth
func (handler *Handler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Check")
	defer scope.End()

	res, err := handler.service.Check(ctx)
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}
