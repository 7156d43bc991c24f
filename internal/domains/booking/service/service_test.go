package service_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hotel/config"
	"hotel/infras/kafka"
	kafkaMocks "hotel/infras/kafka/mocks"
	otelMocks "hotel/infras/otel/mocks"
	"hotel/infras/postgres"
	postgresMocks "hotel/infras/postgres/mocks"
	bookingMocks "hotel/internal/domains/booking/mocks"
	"hotel/internal/domains/booking/model"
	"hotel/internal/domains/booking/model/dto"
	"hotel/internal/domains/booking/service"
	roomMocks "hotel/internal/domains/room/mocks"
	roomModel "hotel/internal/domains/room/model"
	cacheMocks "hotel/shared/cache/mocks"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"
	gModel "hotel/shared/model"
	"hotel/shared/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	day   = int64(constant.SecondsPerNight)
	day1  = int64(1_767_225_600) // 2026-01-01T00:00:00Z
	day2  = day1 + day
	day3  = day1 + 2*day
	day5  = day1 + 4*day
	topic = "booking-events"
)

type fixture struct {
	rooms    *memory.Table[roomModel.Room]
	bookings *memory.Table[model.Booking]
	events   chan dto.BookingEvent
	svc      service.Booking
}

func newCache(ctrl *gomock.Controller) *cacheMocks.MockRedisCache {
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss")).AnyTimes()
	mockCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	return mockCache
}

func newConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Cache.TTL = 3600
	cfg.Kafka.Topic.Booking = topic

	return cfg
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	otel := otelMocks.NewOtel()

	f := fixture{
		rooms:  memory.NewTable[roomModel.Room](roomModel.TableName, roomModel.FieldID),
		events: make(chan dto.BookingEvent, 128),
	}

	f.bookings = memory.NewTable[model.Booking](model.TableName, model.FieldID).WithJoin(func(b model.Booking) model.Booking {
		if room, ok := f.rooms.Raw(b.RoomID); ok {
			b.RoomName = room.Name
			b.RoomCategory = room.Category
			b.RoomPrice = room.Price
		}

		return b
	})

	mockKafka := kafkaMocks.NewMockClient(ctrl)
	mockKafka.EXPECT().
		SendMessages(gomock.Any(), topic, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, messages ...kafka.Message) error {
			for _, msg := range messages {
				event, _ := msg.Value.(dto.BookingEvent)
				f.events <- event
			}

			return nil
		}).
		AnyTimes()

	f.svc = service.New(
		f.bookings,
		f.rooms,
		service.NewChecker(f.bookings, otel),
		memory.NewTransactor(),
		mockKafka,
		newConfig(),
		newCache(ctrl),
		otel,
	)

	return f
}

func userContext() context.Context {
	return context.WithValue(context.Background(), constant.ContextKeyUserID, "manager@hotel.test")
}

func (f fixture) seedRoom(t *testing.T, price string, status string) int64 {
	t.Helper()

	id, err := f.rooms.Insert(context.Background(), roomModel.Room{
		Name:        "Room",
		Category:    roomModel.CategoryStandard,
		Price:       decimal.RequireFromString(price),
		Capacity:    2,
		Status:      status,
		Blocks:      roomModel.EmptyBlocks,
		IsPublished: true,
		Metadata:    gModel.NewMetadata("seed"),
	})
	require.NoError(t, err)

	return id
}

func (f fixture) book(t *testing.T, roomID, start, end int64) int64 {
	t.Helper()

	id, err := f.svc.Create(userContext(), dto.CreateBookingRequest{
		RoomID:     roomID,
		GuestName:  "Guest",
		GuestPhone: "+7-999-123-4567",
		DateStart:  start,
		DateEnd:    end,
	})
	require.NoError(t, err)

	return id
}

func (f fixture) stored(t *testing.T, id int64) model.Booking {
	t.Helper()

	booking, ok := f.bookings.Raw(id)
	require.True(t, ok)

	return booking
}

func (f fixture) nextEvent(t *testing.T) dto.BookingEvent {
	t.Helper()

	select {
	case event := <-f.events:
		return event
	case <-time.After(time.Second):
		t.Fatal("no booking event published")

		return dto.BookingEvent{}
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestBookingService_ScenarioA(t *testing.T) {
	f := newFixture(t)
	roomID := f.seedRoom(t, "5000", roomModel.StatusAvailable)

	first := f.book(t, roomID, day1, day3)
	assert.True(t, decimal.NewFromInt(10000).Equal(f.stored(t, first).TotalPrice))
	assert.Equal(t, model.StatusConfirmed, f.stored(t, first).Status)

	_, err := f.svc.Create(userContext(), dto.CreateBookingRequest{
		RoomID: roomID, GuestName: "Second", GuestPhone: "+7-999-123-4567", DateStart: day2, DateEnd: day5,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, failure.GetCode(err))

	third := f.book(t, roomID, day3, day5)
	assert.NotEqual(t, first, third)

	assert.Len(t, f.bookings.All(), 2, "the rejected create must not leave a row behind")
}

func TestBookingService_CreateErrors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, f fixture) dto.CreateBookingRequest
		wantCode int
		message  string
	}{
		{
			name: "room missing",
			setup: func(_ *testing.T, _ fixture) dto.CreateBookingRequest {
				return dto.CreateBookingRequest{RoomID: 42, DateStart: day1, DateEnd: day2}
			},
			wantCode: http.StatusNotFound,
			message:  "room not found",
		},
		{
			name: "room soft deleted",
			setup: func(t *testing.T, f fixture) dto.CreateBookingRequest {
				roomID := f.seedRoom(t, "100", roomModel.StatusAvailable)
				require.NoError(t, f.rooms.SoftDelete(context.Background(), "seed", gDto.FilterGroup{Filters: []any{
					gDto.Filter{Field: roomModel.FieldID, Value: roomID, Operator: gDto.FilterOperatorEq},
				}}))

				return dto.CreateBookingRequest{RoomID: roomID, DateStart: day1, DateEnd: day2}
			},
			wantCode: http.StatusNotFound,
			message:  "room not found",
		},
		{
			name: "room under maintenance",
			setup: func(t *testing.T, f fixture) dto.CreateBookingRequest {
				return dto.CreateBookingRequest{RoomID: f.seedRoom(t, "100", roomModel.StatusMaintenance), DateStart: day1, DateEnd: day2}
			},
			wantCode: http.StatusBadRequest,
			message:  "room is under maintenance",
		},
		{
			name: "end equals start",
			setup: func(t *testing.T, f fixture) dto.CreateBookingRequest {
				return dto.CreateBookingRequest{RoomID: f.seedRoom(t, "100", roomModel.StatusAvailable), DateStart: day2, DateEnd: day2}
			},
			wantCode: http.StatusBadRequest,
			message:  "date_end must be after date_start",
		},
		{
			name: "end before start",
			setup: func(t *testing.T, f fixture) dto.CreateBookingRequest {
				return dto.CreateBookingRequest{RoomID: f.seedRoom(t, "100", roomModel.StatusAvailable), DateStart: day3, DateEnd: day2}
			},
			wantCode: http.StatusBadRequest,
			message:  "date_end must be after date_start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := tt.setup(t, f)
			req.GuestName = "Guest"
			req.GuestPhone = "+7-999-123-4567"

			_, err := f.svc.Create(userContext(), req)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, failure.GetCode(err))
			assert.Equal(t, tt.message, err.Error())
			assert.Empty(t, f.bookings.All())
		})
	}
}

func TestBookingService_PriceRoundsPartialNightsUp(t *testing.T) {
	f := newFixture(t)
	roomID := f.seedRoom(t, "99.99", roomModel.StatusAvailable)

	id := f.book(t, roomID, day1, day3+1)

	assert.True(t, decimal.RequireFromString("299.97").Equal(f.stored(t, id).TotalPrice))

	res, err := f.svc.Get(userContext(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Nights)
	assert.Equal(t, "Room", res.Room.Name)
	assert.True(t, decimal.RequireFromString("99.99").Equal(res.Room.Price))
}

func TestBookingService_ScenarioB(t *testing.T) {
	f := newFixture(t)
	roomID := f.seedRoom(t, "5000", roomModel.StatusAvailable)

	a := f.book(t, roomID, day1, day2)
	f.book(t, roomID, day3, day5)
	before := f.stored(t, a)

	err := f.svc.Update(userContext(), a, dto.UpdateBookingRequest{DateEnd: ptr(day3 + day)})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, failure.GetCode(err))

	after := f.stored(t, a)
	assert.Equal(t, before.DateStart, after.DateStart)
	assert.Equal(t, before.DateEnd, after.DateEnd)
	assert.True(t, before.TotalPrice.Equal(after.TotalPrice))
}

func TestBookingService_UpdateRepricesOnDateChange(t *testing.T) {
	f := newFixture(t)
	roomID := f.seedRoom(t, "5000", roomModel.StatusAvailable)
	id := f.book(t, roomID, day1, day2)

	// the room's current rate is used, not the one the booking was made at
	require.NoError(t, f.rooms.Update(context.Background(), map[string]any{roomModel.FieldPrice: decimal.NewFromInt(6000)},
		gDto.FilterGroup{Filters: []any{gDto.Filter{Field: roomModel.FieldID, Value: roomID, Operator: gDto.FilterOperatorEq}}}))

	require.NoError(t, f.svc.Update(userContext(), id, dto.UpdateBookingRequest{DateEnd: ptr(day3)}))

	booking := f.stored(t, id)
	assert.Equal(t, day3, booking.DateEnd)
	assert.True(t, decimal.NewFromInt(12000).Equal(booking.TotalPrice))
	assert.Equal(t, "manager@hotel.test", booking.ModifiedBy)

	// moving within its own old window never conflicts with itself
	require.NoError(t, f.svc.Update(userContext(), id, dto.UpdateBookingRequest{DateStart: ptr(day2)}))
	assert.True(t, decimal.NewFromInt(6000).Equal(f.stored(t, id).TotalPrice))
}

func TestBookingService_UpdateGuestKeepsPrice(t *testing.T) {
	f := newFixture(t)
	roomID := f.seedRoom(t, "5000", roomModel.StatusAvailable)
	id := f.book(t, roomID, day1, day2)

	require.NoError(t, f.rooms.Update(context.Background(), map[string]any{roomModel.FieldPrice: decimal.NewFromInt(1)},
		gDto.FilterGroup{Filters: []any{gDto.Filter{Field: roomModel.FieldID, Value: roomID, Operator: gDto.FilterOperatorEq}}}))

	require.NoError(t, f.svc.Update(userContext(), id, dto.UpdateBookingRequest{
		GuestName:  ptr("Renamed Guest"),
		GuestPhone: ptr("+7 999 000 1111"),
	}))

	booking := f.stored(t, id)
	assert.Equal(t, "Renamed Guest", booking.GuestName)
	assert.Equal(t, "+7 999 000 1111", booking.GuestPhone)
	assert.True(t, decimal.NewFromInt(5000).Equal(booking.TotalPrice))
}

func TestBookingService_UpdateErrors(t *testing.T) {
	f := newFixture(t)
	roomID := f.seedRoom(t, "5000", roomModel.StatusAvailable)
	id := f.book(t, roomID, day2, day3)

	err := f.svc.Update(userContext(), id, dto.UpdateBookingRequest{})
	assert.True(t, failure.Is(err, http.StatusBadRequest))

	err = f.svc.Update(userContext(), 999, dto.UpdateBookingRequest{GuestName: ptr("Nobody")})
	assert.True(t, failure.Is(err, http.StatusNotFound))

	// the merged window is validated, not only the provided fields
	err = f.svc.Update(userContext(), id, dto.UpdateBookingRequest{DateStart: ptr(day3)})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
	assert.Equal(t, day2, f.stored(t, id).DateStart)
}

func TestBookingService_Cancel(t *testing.T) {
	f := newFixture(t)
	roomID := f.seedRoom(t, "5000", roomModel.StatusAvailable)
	id := f.book(t, roomID, day1, day3)
	assert.Equal(t, model.EventCreated, f.nextEvent(t).Type)

	require.NoError(t, f.svc.Cancel(userContext(), id))
	assert.Equal(t, model.StatusCancelled, f.stored(t, id).Status)

	event := f.nextEvent(t)
	assert.Equal(t, model.EventCancelled, event.Type)
	assert.Equal(t, id, event.BookingID)

	before := f.stored(t, id)

	err := f.svc.Cancel(userContext(), id)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
	assert.Equal(t, "booking already cancelled", err.Error())
	assert.Equal(t, before, f.stored(t, id), "a rejected cancel must not touch the row")

	err = f.svc.Cancel(userContext(), 999)
	assert.True(t, failure.Is(err, http.StatusNotFound))

	// a cancelled booking holds no claim on the room
	f.book(t, roomID, day1, day3)
}

func TestBookingService_RestoreRechecksConflicts(t *testing.T) {
	f := newFixture(t)
	roomID := f.seedRoom(t, "5000", roomModel.StatusAvailable)

	a := f.book(t, roomID, day1, day3)
	require.NoError(t, f.svc.Cancel(userContext(), a))

	b := f.book(t, roomID, day2, day5)

	err := f.svc.Update(userContext(), a, dto.UpdateBookingRequest{Status: ptr(model.StatusConfirmed)})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, failure.GetCode(err))
	assert.Equal(t, model.StatusCancelled, f.stored(t, a).Status)

	require.NoError(t, f.svc.Cancel(userContext(), b))
	require.NoError(t, f.svc.Update(userContext(), a, dto.UpdateBookingRequest{Status: ptr(model.StatusConfirmed)}))
	assert.Equal(t, model.StatusConfirmed, f.stored(t, a).Status)
}

func TestBookingService_CancelThroughUpdateSkipsCheck(t *testing.T) {
	f := newFixture(t)
	roomID := f.seedRoom(t, "5000", roomModel.StatusAvailable)
	id := f.book(t, roomID, day1, day3)
	f.nextEvent(t)

	require.NoError(t, f.svc.Update(userContext(), id, dto.UpdateBookingRequest{Status: ptr(model.StatusCancelled)}))
	assert.Equal(t, model.EventCancelled, f.nextEvent(t).Type)
}

func TestBookingService_EditCancelledPublishesUpdate(t *testing.T) {
	f := newFixture(t)
	roomID := f.seedRoom(t, "5000", roomModel.StatusAvailable)
	id := f.book(t, roomID, day1, day3)
	f.nextEvent(t)

	require.NoError(t, f.svc.Cancel(userContext(), id))
	assert.Equal(t, model.EventCancelled, f.nextEvent(t).Type)

	require.NoError(t, f.svc.Update(userContext(), id, dto.UpdateBookingRequest{GuestName: ptr("Renamed Guest")}))

	event := f.nextEvent(t)
	assert.Equal(t, model.EventUpdated, event.Type)
	assert.Equal(t, "Renamed Guest", f.stored(t, id).GuestName)
}

func TestBookingService_Delete(t *testing.T) {
	f := newFixture(t)
	roomID := f.seedRoom(t, "5000", roomModel.StatusAvailable)
	id := f.book(t, roomID, day1, day3)

	require.NoError(t, f.svc.Delete(userContext(), id))

	raw := f.stored(t, id)
	assert.True(t, raw.IsDeleted(), "soft delete keeps the row")
	assert.Equal(t, "manager@hotel.test", raw.ModifiedBy)

	_, err := f.svc.Get(userContext(), id)
	assert.True(t, failure.Is(err, http.StatusNotFound))

	res, err := f.svc.GetAll(userContext(), gDto.QueryParams{Page: 1, Limit: 20}, gDto.FilterGroup{})
	require.NoError(t, err)
	assert.Empty(t, res.Bookings)

	assert.True(t, failure.Is(f.svc.Delete(userContext(), id), http.StatusNotFound))
	assert.True(t, failure.Is(f.svc.Cancel(userContext(), id), http.StatusNotFound))
	assert.True(t, failure.Is(f.svc.Update(userContext(), id, dto.UpdateBookingRequest{GuestName: ptr("Ghost")}), http.StatusNotFound))

	// deleted bookings are invisible to the checker
	f.book(t, roomID, day1, day3)
}

func TestBookingService_AvailabilityScenarioD(t *testing.T) {
	f := newFixture(t)
	roomID := f.seedRoom(t, "5000", roomModel.StatusAvailable)
	id := f.book(t, roomID, day1, day3)

	res, err := f.svc.Availability(context.Background(), dto.AvailabilityRequest{RoomID: roomID, DateStart: day2, DateEnd: day5})
	require.NoError(t, err)
	assert.False(t, res.Available)
	require.Len(t, res.ConflictingBookings, 1)
	assert.Equal(t, dto.ConflictingBooking{ID: id, GuestName: "Guest", DateStart: day1, DateEnd: day3}, res.ConflictingBookings[0])

	res, err = f.svc.Availability(context.Background(), dto.AvailabilityRequest{RoomID: roomID, DateStart: day2, DateEnd: day5, ExcludeBookingID: id})
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Empty(t, res.ConflictingBookings)

	res, err = f.svc.Availability(context.Background(), dto.AvailabilityRequest{RoomID: roomID, DateStart: day3, DateEnd: day5})
	require.NoError(t, err)
	assert.True(t, res.Available, "checkout day is free for the next check-in")

	_, err = f.svc.Availability(context.Background(), dto.AvailabilityRequest{RoomID: roomID, DateStart: day3, DateEnd: day3})
	assert.True(t, failure.Is(err, http.StatusBadRequest))

	_, err = f.svc.Availability(context.Background(), dto.AvailabilityRequest{RoomID: 999, DateStart: day1, DateEnd: day2})
	assert.True(t, failure.Is(err, http.StatusNotFound))
}

func TestBookingService_GetAllFilters(t *testing.T) {
	f := newFixture(t)
	first := f.seedRoom(t, "100", roomModel.StatusAvailable)
	second := f.seedRoom(t, "200", roomModel.StatusAvailable)

	f.book(t, first, day1, day2)
	later := f.book(t, first, day3, day5)
	f.book(t, second, day1, day2)

	res, err := f.svc.GetAll(userContext(), gDto.QueryParams{
		Page:    1,
		Limit:   20,
		SortBy:  model.FieldDateStart,
		SortDir: gDto.SortDirDesc,
	}, gDto.FilterGroup{Filters: []any{
		gDto.Filter{Field: model.FieldRoomID, Value: first, Operator: gDto.FilterOperatorEq, Table: model.TableName},
	}})
	require.NoError(t, err)
	require.Len(t, res.Bookings, 2)
	assert.Equal(t, later, res.Bookings[0].ID)
	assert.Equal(t, 2, res.TotalData)
	assert.Equal(t, first, res.Bookings[0].Room.ID)
}

func TestBookingService_EventsCarryCommittedState(t *testing.T) {
	f := newFixture(t)
	roomID := f.seedRoom(t, "5000", roomModel.StatusAvailable)
	id := f.book(t, roomID, day1, day3)

	created := f.nextEvent(t)
	assert.Equal(t, model.EventCreated, created.Type)
	assert.Equal(t, id, created.BookingID)
	assert.True(t, decimal.NewFromInt(10000).Equal(created.TotalPrice))

	require.NoError(t, f.svc.Update(userContext(), id, dto.UpdateBookingRequest{DateEnd: ptr(day5)}))

	updated := f.nextEvent(t)
	assert.Equal(t, model.EventUpdated, updated.Type)
	assert.Equal(t, day5, updated.DateEnd)
	assert.True(t, decimal.NewFromInt(20000).Equal(updated.TotalPrice))

	require.NoError(t, f.svc.Delete(userContext(), id))
	assert.Equal(t, model.EventDeleted, f.nextEvent(t).Type)
}

func TestBookingService_RacingCreatesOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	roomID := f.seedRoom(t, "5000", roomModel.StatusAvailable)

	const workers = 20

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
	)

	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			// every window overlaps [day2, day3)
			start := day1 + int64(i%3)*3600

			_, err := f.svc.Create(userContext(), dto.CreateBookingRequest{
				RoomID: roomID, GuestName: "Racer", GuestPhone: "+7-999-123-4567", DateStart: start, DateEnd: day3,
			})

			switch {
			case err == nil:
				succeeded.Add(1)
			case failure.Is(err, http.StatusConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(workers-1), conflicts.Load())
	assert.Len(t, f.bookings.All(), 1)
}

func TestBookingService_RoomsDoNotBlockEachOther(t *testing.T) {
	f := newFixture(t)

	const rooms = 10

	ids := make([]int64, rooms)
	for i := range ids {
		ids[i] = f.seedRoom(t, "100", roomModel.StatusAvailable)
	}

	var wg sync.WaitGroup

	for _, roomID := range ids {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := f.svc.Create(userContext(), dto.CreateBookingRequest{
				RoomID: roomID, GuestName: "Guest", GuestPhone: "+7-999-123-4567", DateStart: day1, DateEnd: day3,
			})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Len(t, f.bookings.All(), rooms)
}

// Random concurrent creates, updates, cancels, restores and deletes must never
// leave two live CONFIRMED bookings of one room overlapping.
func TestBookingService_NoDoubleBookingInvariant(t *testing.T) {
	f := newFixture(t)
	rooms := []int64{
		f.seedRoom(t, "100", roomModel.StatusAvailable),
		f.seedRoom(t, "250.50", roomModel.StatusAvailable),
	}

	const (
		workers    = 8
		operations = 60
	)

	var wg sync.WaitGroup

	for worker := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			rng := rand.New(rand.NewPCG(uint64(worker), 42))

			for range operations {
				start := day1 + rng.Int64N(20)*day/2
				end := start + (1+rng.Int64N(4))*day/2
				target := rng.Int64N(int64(len(f.bookings.All()) + 1))

				var err error

				switch rng.IntN(5) {
				case 0, 1:
					_, err = f.svc.Create(userContext(), dto.CreateBookingRequest{
						RoomID: rooms[rng.IntN(len(rooms))], GuestName: "Guest", GuestPhone: "+7-999-123-4567", DateStart: start, DateEnd: end,
					})
				case 2:
					err = f.svc.Update(userContext(), target, dto.UpdateBookingRequest{DateStart: ptr(start), DateEnd: ptr(end)})
				case 3:
					status := model.StatusCancelled
					if rng.IntN(2) == 0 {
						status = model.StatusConfirmed
					}

					err = f.svc.Update(userContext(), target, dto.UpdateBookingRequest{Status: ptr(status)})
				default:
					err = f.svc.Delete(userContext(), target)
				}

				if err != nil && failure.GetCode(err) == http.StatusInternalServerError {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}()
	}

	wg.Wait()

	live := []model.Booking{}

	for _, booking := range f.bookings.All() {
		if booking.Confirmed() && !booking.IsDeleted() {
			live = append(live, booking)

			assert.Positive(t, model.Nights(booking.DateStart, booking.DateEnd))
		}
	}

	for i := range live {
		for j := i + 1; j < len(live); j++ {
			a, b := live[i], live[j]
			if a.RoomID != b.RoomID {
				continue
			}

			assert.False(t, model.Overlaps(a.DateStart, a.DateEnd, b.DateStart, b.DateEnd),
				"booking %d [%d,%d) overlaps booking %d [%d,%d)", a.ID, a.DateStart, a.DateEnd, b.ID, b.DateStart, b.DateEnd)
		}
	}
}

func TestBookingService_RepositoryFailureRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockRepo := bookingMocks.NewMockBooking(ctrl)
	mockRoomRepo := roomMocks.NewMockRoom(ctrl)
	mockChecker := bookingMocks.NewMockChecker(ctrl)
	mockTransactor := postgresMocks.NewMockTransactor(ctrl)
	mockKafka := kafkaMocks.NewMockClient(ctrl)

	svc := service.New(mockRepo, mockRoomRepo, mockChecker, mockTransactor, mockKafka, newConfig(), newCache(ctrl), otelMocks.NewOtel())

	room := roomModel.Room{ID: 1, Price: decimal.NewFromInt(100), Status: roomModel.StatusAvailable}

	tests := []struct {
		name      string
		setupMock func()
		wantCode  int
	}{
		{
			name: "lock failure",
			setupMock: func() {
				mockRoomRepo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Nil(), gomock.Any()).Return(roomModel.Room{}, errors.New("lock timeout"))
			},
			wantCode: http.StatusInternalServerError,
		},
		{
			name: "checker failure",
			setupMock: func() {
				mockRoomRepo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Nil(), gomock.Any()).Return(room, nil)
				mockChecker.EXPECT().Conflicts(gomock.Any(), gomock.Nil(), service.Window{RoomID: 1, DateStart: day1, DateEnd: day2}).Return(nil, errors.New("db down"))
			},
			wantCode: http.StatusInternalServerError,
		},
		{
			name: "conflict",
			setupMock: func() {
				mockRoomRepo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Nil(), gomock.Any()).Return(room, nil)
				mockChecker.EXPECT().Conflicts(gomock.Any(), gomock.Nil(), gomock.Any()).Return([]model.Booking{{ID: 7}}, nil)
			},
			wantCode: http.StatusConflict,
		},
		{
			name: "insert failure",
			setupMock: func() {
				mockRoomRepo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Nil(), gomock.Any()).Return(room, nil)
				mockChecker.EXPECT().Conflicts(gomock.Any(), gomock.Nil(), gomock.Any()).Return(nil, nil)
				mockRepo.EXPECT().InsertTx(gomock.Any(), gomock.Nil(), gomock.Any()).Return(int64(0), errors.New("insert failed"))
			},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTransactor.EXPECT().
				WithinTx(gomock.Any(), gomock.Any()).
				DoAndReturn(func(ctx context.Context, fn postgres.TxFunc) error {
					return fn(ctx, nil)
				})

			tt.setupMock()

			_, err := svc.Create(userContext(), dto.CreateBookingRequest{
				RoomID: 1, GuestName: "Guest", GuestPhone: "+7-999-123-4567", DateStart: day1, DateEnd: day2,
			})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, failure.GetCode(err))
		})
	}
}
