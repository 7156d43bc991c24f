package user_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	otelMocks "hotel/infras/otel/mocks"
	userMocks "hotel/internal/domains/user/mocks"
	"hotel/internal/domains/user/model/dto"
	"hotel/internal/handlers/user"
	gDto "hotel/shared/dto"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestHandler_GetUsers(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		setupMock func(*userMocks.MockUserService)
		wantCode  int
		wantBody  string
	}{
		{
			name:   "defaults",
			target: "/users",
			setupMock: func(m *userMocks.MockUserService) {
				m.EXPECT().
					GetAll(gomock.Any(), gDto.QueryParams{Page: 1, Limit: 20}).
					Return(dto.GetUsersResponse{Users: []dto.UserResponse{{ID: 2, Email: "desk@hotel.test", Role: "MANAGER"}}, TotalPage: 1, TotalData: 1}, nil)
			},
			wantCode: http.StatusOK,
		},
		{
			name:   "limit capped",
			target: "/users?page=3&limit=500",
			setupMock: func(m *userMocks.MockUserService) {
				m.EXPECT().
					GetAll(gomock.Any(), gDto.QueryParams{Page: 3, Limit: 100}).
					Return(dto.GetUsersResponse{Users: []dto.UserResponse{}}, nil)
			},
			wantCode: http.StatusOK,
			wantBody: `{"data":{"users":[],"total_page":0,"total_data":0}}`,
		},
		{
			name:   "store failure is masked",
			target: "/users",
			setupMock: func(m *userMocks.MockUserService) {
				m.EXPECT().GetAll(gomock.Any(), gomock.Any()).Return(dto.GetUsersResponse{}, errors.New("pq: relation \"users\" does not exist"))
			},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockService := userMocks.NewMockUserService(ctrl)
			tt.setupMock(mockService)

			handler := user.New(mockService, otelMocks.NewOtel())
			router := chi.NewRouter()
			handler.Router(router)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.wantCode, rec.Code)

			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}

			assert.NotContains(t, rec.Body.String(), "password")
		})
	}
}
