package dto_test

import (
	"encoding/json"
	"testing"

	"hotel/infras/jwt"
	"hotel/internal/domains/auth/model/dto"
	userModel "hotel/internal/domains/user/model"
	userDto "hotel/internal/domains/user/model/dto"
	gModel "hotel/shared/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthResponse_FromTokenPair(t *testing.T) {
	tokenPair := &jwt.TokenPair{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		ExpiresIn:    900,
	}

	user := userModel.User{
		ID:       5,
		Email:    "admin@hotel.test",
		Password: "$2a$10$secret",
		Name:     "Admin",
		Role:     userModel.RoleAdmin,
		Metadata: gModel.Metadata{DateAdd: 1_767_225_600},
	}

	var response dto.AuthResponse
	response.FromTokenPair(tokenPair, user)

	assert.Equal(t, "access", response.AccessToken)
	assert.Equal(t, "refresh", response.RefreshToken)
	assert.Equal(t, "Bearer", response.TokenType)
	assert.Equal(t, int64(900), response.ExpiresIn)
	assert.Equal(t, int64(5), response.User.ID)
	assert.Equal(t, userModel.RoleAdmin, response.User.Role)

	raw, err := json.Marshal(response)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "$2a$10$secret")
	assert.NotContains(t, string(raw), "password")
}

func TestRegisterRequest_Normalize(t *testing.T) {
	req := dto.RegisterRequest{CreateUserRequest: userDto.CreateUserRequest{
		Email: "  Admin@Hotel.TEST ",
		Name:  " Anna ",
	}}
	req.Normalize()

	assert.Equal(t, "admin@hotel.test", req.Email)
	assert.Equal(t, "Anna", req.Name)

	model := req.ToModel("system", "hash")
	assert.Equal(t, userModel.RoleManager, model.Role)
	assert.Equal(t, "hash", model.Password)
	assert.Equal(t, "system", model.CreatedBy)
}

func TestLoginRequest_Normalize(t *testing.T) {
	req := dto.LoginRequest{Email: " Manager@Hotel.test"}
	req.Normalize()

	assert.Equal(t, "manager@hotel.test", req.Email)
}
