package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"hotel/config"
	otelMocks "hotel/infras/otel/mocks"
	userMocks "hotel/internal/domains/user/mocks"
	"hotel/internal/domains/user/model"
	"hotel/internal/domains/user/model/dto"
	"hotel/internal/domains/user/service"
	"hotel/shared"
	cacheMocks "hotel/shared/cache/mocks"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"
	gModel "hotel/shared/model"
	"hotel/shared/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newCache(ctrl *gomock.Controller) *cacheMocks.MockRedisCache {
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss")).AnyTimes()
	mockCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	return mockCache
}

func newConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Cache.TTL = 60

	return cfg
}

func seed(t *testing.T, users *memory.Table[model.User], emails ...string) {
	t.Helper()

	for _, email := range emails {
		_, err := users.Insert(context.Background(), model.User{
			Email:    email,
			Password: "$2a$10$hash",
			Name:     "Staff",
			Role:     model.RoleManager,
			Metadata: gModel.NewMetadata("seed"),
		})
		require.NoError(t, err)
	}
}

func TestUserService_GetAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := memory.NewTable[model.User](model.TableName, model.FieldID)
	seed(t, users, "a@hotel.test", "b@hotel.test", "c@hotel.test")
	require.NoError(t, users.SoftDelete(context.Background(), "admin", shared.FilterByID(int64(2), model.FieldID, model.TableName)))

	svc := service.New(users, newConfig(), newCache(ctrl), otelMocks.NewOtel())

	res, err := svc.GetAll(context.Background(), gDto.QueryParams{Page: 1, Limit: 1, SortBy: model.FieldEmail, SortDir: gDto.SortDirAsc})
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalData)
	assert.Equal(t, 2, res.TotalPage)
	require.Len(t, res.Users, 1)
	assert.Equal(t, "c@hotel.test", res.Users[0].Email, "newest first regardless of requested sort")

	res, err = svc.GetAll(context.Background(), gDto.QueryParams{Page: 2, Limit: 1})
	require.NoError(t, err)
	require.Len(t, res.Users, 1)
	assert.Equal(t, "a@hotel.test", res.Users[0].Email)
}

func TestUserService_GetAllRepositoryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := userMocks.NewMockUser(ctrl)
	svc := service.New(mockRepo, newConfig(), newCache(ctrl), otelMocks.NewOtel())

	mockRepo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(0, errors.New("db down"))

	_, err := svc.GetAll(context.Background(), gDto.QueryParams{Page: 1, Limit: 20})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, failure.GetCode(err))
}

func TestUserService_GetAllCacheHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := userMocks.NewMockUser(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	svc := service.New(mockRepo, newConfig(), mockCache, otelMocks.NewOtel())

	cached := dto.GetUsersResponse{TotalData: 1, TotalPage: 1, Users: []dto.UserResponse{{ID: 4, Email: "cached@hotel.test"}}}

	mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, value any) error {
			*value.(*dto.GetUsersResponse) = cached

			return nil
		})

	res, err := svc.GetAll(context.Background(), gDto.QueryParams{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, cached, res)
}

func TestUserService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := memory.NewTable[model.User](model.TableName, model.FieldID)
	seed(t, users, "a@hotel.test")

	svc := service.New(users, newConfig(), newCache(ctrl), otelMocks.NewOtel())

	res, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "a@hotel.test", res.Email)
	assert.Equal(t, "seed", res.CreatedBy)

	_, err = svc.Get(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
}
