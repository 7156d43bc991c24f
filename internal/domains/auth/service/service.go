package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Auth=MockAuthService

import (
	"context"
	"errors"
	"fmt"

	"hotel/config"
	"hotel/infras/jwt"
	"hotel/infras/otel"
	"hotel/internal/domains/auth/model/dto"
	userModel "hotel/internal/domains/user/model"
	userDto "hotel/internal/domains/user/model/dto"
	userRepo "hotel/internal/domains/user/repository"
	"hotel/shared"
	"hotel/shared/cache"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"
	"hotel/shared/password"

	"github.com/rs/zerolog/log"
)

const (
	errEmailTaken         = "email already registered"
	errInvalidCredentials = "invalid email or password"
	errInvalidRefresh     = "invalid refresh token"
	errUserNotFound       = "user not found"
)

type Auth interface {
	Register(ctx context.Context, req dto.RegisterRequest) (dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error)
	RefreshToken(ctx context.Context, req dto.RefreshTokenRequest) (dto.AuthResponse, error)
	Check(ctx context.Context) (userDto.UserResponse, error)
}

type serviceImpl struct {
	userRepo   userRepo.User
	cfg        *config.Config
	cache      cache.RedisCache
	otel       otel.Otel
	jwtService jwt.JWT
}

func New(userRepo userRepo.User, cfg *config.Config, cache cache.RedisCache, otel otel.Otel, jwt jwt.JWT) Auth {
	return &serviceImpl{
		userRepo:   userRepo,
		cfg:        cfg,
		cache:      cache,
		otel:       otel,
		jwtService: jwt,
	}
}

func emailFilter(email string) gDto.FilterGroup {
	return shared.FilterByID(email, userModel.FieldEmail, userModel.TableName)
}

func (s *serviceImpl) Register(ctx context.Context, req dto.RegisterRequest) (res dto.AuthResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Auth.Register")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	req.Normalize()

	exists, err := s.userRepo.Exist(ctx, emailFilter(req.Email))
	if err != nil {
		log.Error().Err(err).Msg("failed to check if user exists")

		return res, fmt.Errorf("failed to check if user exists: %w", err)
	}

	if exists {
		return res, failure.BadRequestFromString(errEmailTaken) // nolint:wrapcheck
	}

	hashedPassword, err := password.Hash(req.Password)
	if err != nil {
		if errors.Is(err, password.ErrHashingPassword) {
			return res, failure.BadRequest(err) // nolint:wrapcheck
		}

		log.Error().Err(err).Msg("failed to hash password")

		return res, fmt.Errorf("failed to hash password: %w", err)
	}

	user := req.ToModel(constant.ContextGuest, hashedPassword)

	user.ID, err = s.userRepo.Insert(ctx, user)
	if err != nil {
		// a soft-deleted account still owns its email in the unique index
		if shared.IsPqViolation(err, constant.PqErrorCodeUniqueViolation) {
			return res, failure.BadRequestFromString(errEmailTaken) // nolint:wrapcheck
		}

		log.Error().Err(err).Msg("failed to create user")

		return res, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("user registered")

	go func() {
		shared.InvalidateCaches(context.WithoutCancel(ctx), s.cache, userModel.CachePrefix)
	}()

	return s.issue(user)
}

func (s *serviceImpl) Login(ctx context.Context, req dto.LoginRequest) (res dto.AuthResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Auth.Login")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	req.Normalize()

	user, err := s.userRepo.Get(ctx, emailFilter(req.Email))
	if err != nil {
		log.Error().Err(err).Msg("failed to get user")

		return res, fmt.Errorf("failed to get user: %w", err)
	}

	if user.ID == 0 {
		password.Burn(req.Password)
		log.Warn().Str("email", req.Email).Msg("login attempt with unknown email")

		return res, failure.Unauthorized(errInvalidCredentials) // nolint:wrapcheck
	}

	if err = password.Verify(req.Password, user.Password); err != nil {
		if !errors.Is(err, password.ErrInvalidPassword) {
			log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to verify password")

			return res, fmt.Errorf("failed to verify password: %w", err)
		}

		log.Warn().Str("email", req.Email).Msg("login attempt with wrong password")

		return res, failure.Unauthorized(errInvalidCredentials) // nolint:wrapcheck
	}

	return s.issue(user)
}

// RefreshToken re-reads the user so a deleted account cannot refresh and a
// changed role takes effect.
func (s *serviceImpl) RefreshToken(ctx context.Context, req dto.RefreshTokenRequest) (res dto.AuthResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Auth.RefreshToken")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	claims, err := s.jwtService.ValidateToken(req.RefreshToken, jwt.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Msg("failed to validate refresh token")

		return res, failure.Unauthorized(errInvalidRefresh) // nolint:wrapcheck
	}

	user, err := s.liveUser(ctx, claims.UserID)
	if err != nil {
		return res, err
	}

	return s.issue(user)
}

func (s *serviceImpl) Check(ctx context.Context) (res userDto.UserResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Auth.Check")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	rawID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	id, err := shared.ConvertStringToInt64(rawID)
	if err != nil || id == 0 {
		return res, failure.Unauthorized(errUserNotFound) // nolint:wrapcheck
	}

	user, err := s.liveUser(ctx, id)
	if err != nil {
		return res, err
	}

	res.FromModel(user)

	return res, nil
}

func (s *serviceImpl) liveUser(ctx context.Context, id int64) (userModel.User, error) {
	user, err := s.userRepo.Get(ctx, shared.FilterByID(id, userModel.FieldID, userModel.TableName))
	if err != nil {
		log.Error().Err(err).Int64("user_id", id).Msg("failed to get user")

		return user, fmt.Errorf("failed to get user: %w", err)
	}

	if user.ID == 0 {
		return user, failure.Unauthorized(errUserNotFound) // nolint:wrapcheck
	}

	return user, nil
}

func (s *serviceImpl) issue(user userModel.User) (res dto.AuthResponse, err error) {
	tokenPair, err := s.jwtService.GenerateTokenPair(user.ID, user.Email, user.Role)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to generate tokens")

		return res, fmt.Errorf("failed to generate tokens: %w", err)
	}

	res.FromTokenPair(tokenPair, user)

	return res, nil
}
