package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Booking=MockBookingService

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"hotel/config"
	"hotel/infras/kafka"
	"hotel/infras/otel"
	"hotel/infras/postgres"
	"hotel/internal/domains/booking/model"
	"hotel/internal/domains/booking/model/dto"
	"hotel/internal/domains/booking/repository"
	roomModel "hotel/internal/domains/room/model"
	roomRepo "hotel/internal/domains/room/repository"
	"hotel/shared"
	"hotel/shared/cache"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"
	"hotel/shared/timezone"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const (
	cachePrefixBooking = "booking:"
	cacheGetBooking    = "booking:get"
	cacheGetAllBooking = "booking:gets"
	cacheCountBooking  = "booking:count"
)

const (
	errBookingNotFound  = "booking not found"
	errRoomNotFound     = "room not found"
	errRoomMaintenance  = "room is under maintenance"
	errAlreadyCancelled = "booking already cancelled"
	errEmptyUpdate      = "update request cannot be empty"
	errDatesTaken       = "room is already booked for the selected dates"
)

// Booking is the transaction manager for bookings. Every write runs in one
// transaction holding the room row lock while conflicts are checked.
type Booking interface {
	Create(ctx context.Context, req dto.CreateBookingRequest) (int64, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (dto.GetBookingsResponse, error)
	Get(ctx context.Context, id int64) (dto.BookingResponse, error)
	Update(ctx context.Context, id int64, req dto.UpdateBookingRequest) error
	Cancel(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	Availability(ctx context.Context, req dto.AvailabilityRequest) (dto.AvailabilityResponse, error)
}

type serviceImpl struct {
	repo       repository.Booking
	roomRepo   roomRepo.Room
	checker    Checker
	transactor postgres.Transactor
	kafka      kafka.Client
	cfg        *config.Config
	cache      cache.RedisCache
	otel       otel.Otel
}

func New(
	repo repository.Booking,
	roomRepo roomRepo.Room,
	checker Checker,
	transactor postgres.Transactor,
	kafka kafka.Client,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Booking {
	return &serviceImpl{
		repo:       repo,
		roomRepo:   roomRepo,
		checker:    checker,
		transactor: transactor,
		kafka:      kafka,
		cfg:        cfg,
		cache:      cache,
		otel:       otel,
	}
}

func filterByID(id int64) gDto.FilterGroup {
	return shared.FilterByID(id, model.FieldID, model.TableName)
}

func roomFilterByID(id int64) gDto.FilterGroup {
	return shared.FilterByID(id, roomModel.FieldID, roomModel.TableName)
}

func conflictError(conflicts []model.Booking) error {
	ids := make([]string, len(conflicts))
	for i, booking := range conflicts {
		ids[i] = strconv.FormatInt(booking.ID, 10)
	}

	return failure.Conflict(fmt.Sprintf("%s (booking %s)", errDatesTaken, strings.Join(ids, ", "))) // nolint:wrapcheck
}

// committed runs the side effects of a write once its transaction is durable.
// They never change the outcome of the write.
func (s *serviceImpl) committed(ctx context.Context, eventType string, booking model.Booking) {
	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cachePrefixBooking)

		msg := kafka.Message{
			Key:   strconv.FormatInt(booking.ID, 10),
			Value: dto.NewBookingEvent(eventType, booking),
		}

		if err := s.kafka.SendMessages(c, s.cfg.Kafka.Topic.Booking, msg); err != nil {
			log.Error().Err(err).Int64("booking_id", booking.ID).Str("event", eventType).Msg("failed to publish booking event")
		}
	}()
}

// lockRoom takes the row lock that serializes every write on the room's timeline.
func (s *serviceImpl) lockRoom(ctx context.Context, tx *sqlx.Tx, roomID int64) (roomModel.Room, error) {
	room, err := s.roomRepo.GetForUpdateTx(ctx, tx, roomFilterByID(roomID))
	if err != nil {
		log.Error().Err(err).Int64("room_id", roomID).Msg("failed to lock room")

		return room, fmt.Errorf("failed to lock room: %w", err)
	}

	if room.ID == 0 {
		return room, failure.NotFound(errRoomNotFound) // nolint:wrapcheck
	}

	return room, nil
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (id int64, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	window := Window{RoomID: req.RoomID, DateStart: req.DateStart, DateEnd: req.DateEnd}

	if err = window.Validate(); err != nil {
		return 0, err
	}

	var booking model.Booking

	err = s.transactor.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		room, err := s.lockRoom(ctx, tx, req.RoomID)
		if err != nil {
			return err
		}

		if !room.Bookable() {
			return failure.InvalidState(errRoomMaintenance) // nolint:wrapcheck
		}

		conflicts, err := s.checker.Conflicts(ctx, tx, window)
		if err != nil {
			return err
		}

		if len(conflicts) > 0 {
			return conflictError(conflicts)
		}

		booking = req.ToModel(user, room.Price)

		booking.ID, err = s.repo.InsertTx(ctx, tx, booking)
		if err != nil {
			log.Error().Err(err).Int64("room_id", req.RoomID).Msg("failed to create booking")

			return fmt.Errorf("failed to create booking: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Info().Int64("booking_id", booking.ID).Int64("room_id", booking.RoomID).Str("total_price", booking.TotalPrice.String()).Msg("booking created")

	s.committed(ctx, model.EventCreated, booking)

	return booking.ID, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.GetAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBooking, params, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	total, err := s.count(ctx, filter)
	if err != nil {
		return res, err
	}

	models, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models, total, params.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) count(ctx context.Context, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.count")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountBooking, gDto.QueryParams{}, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id int64) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(cacheGetBooking, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking")

		return res, nil
	}

	booking, err := s.repo.Get(ctx, filterByID(id))
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == 0 {
		return res, failure.NotFound(errBookingNotFound) // nolint:wrapcheck
	}

	res.FromModel(booking)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking to cache")
		}
	}()

	return res, nil
}

// Update merges the provided fields into the booking. A date change, or a
// move back into CONFIRMED, re-checks the room timeline under the room lock;
// a date change also reprices the stay at the room's current rate.
func (s *serviceImpl) Update(ctx context.Context, id int64, req dto.UpdateBookingRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Update")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if req.IsEmpty() {
		return failure.BadRequestFromString(errEmptyUpdate) // nolint:wrapcheck
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	var (
		updated   model.Booking
		cancelled bool
	)

	err = s.transactor.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		current, err := s.repo.GetTx(ctx, tx, filterByID(id))
		if err != nil {
			log.Error().Err(err).Int64("id", id).Msg("failed to get booking")

			return fmt.Errorf("failed to get booking: %w", err)
		}

		if current.ID == 0 {
			return failure.NotFound(errBookingNotFound) // nolint:wrapcheck
		}

		room, err := s.lockRoom(ctx, tx, current.RoomID)
		if err != nil {
			return err
		}

		// re-read under the room lock, the booking may have changed meanwhile
		booking, err := s.repo.GetForUpdateTx(ctx, tx, filterByID(id))
		if err != nil {
			log.Error().Err(err).Int64("id", id).Msg("failed to lock booking")

			return fmt.Errorf("failed to lock booking: %w", err)
		}

		if booking.ID == 0 {
			return failure.NotFound(errBookingNotFound) // nolint:wrapcheck
		}

		merged := req.Merge(booking)
		window := Window{RoomID: merged.RoomID, DateStart: merged.DateStart, DateEnd: merged.DateEnd, ExcludeBookingID: merged.ID}

		if err := window.Validate(); err != nil {
			return err
		}

		datesChanged := merged.DateStart != booking.DateStart || merged.DateEnd != booking.DateEnd
		restoring := !booking.Confirmed() && merged.Confirmed()

		if merged.Confirmed() && (datesChanged || restoring) {
			conflicts, err := s.checker.Conflicts(ctx, tx, window)
			if err != nil {
				return err
			}

			if len(conflicts) > 0 {
				return conflictError(conflicts)
			}
		}

		fields := shared.TransformFields(req, user)

		if datesChanged {
			merged.TotalPrice = model.TotalPrice(room.Price, merged.DateStart, merged.DateEnd)
			fields[model.FieldTotalPrice] = merged.TotalPrice
		}

		if err := s.repo.UpdateTx(ctx, tx, fields, filterByID(id)); err != nil {
			log.Error().Err(err).Int64("id", id).Msg("failed to update booking")

			return fmt.Errorf("failed to update booking: %w", err)
		}

		updated = merged
		cancelled = booking.Confirmed() && !merged.Confirmed()

		return nil
	})
	if err != nil {
		return err
	}

	// only the CONFIRMED to CANCELLED transition is a cancellation
	eventType := model.EventUpdated
	if cancelled {
		eventType = model.EventCancelled
	}

	s.committed(ctx, eventType, updated)

	return nil
}

func (s *serviceImpl) Cancel(ctx context.Context, id int64) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Cancel")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	var booking model.Booking

	err = s.transactor.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		booking, err = s.repo.GetForUpdateTx(ctx, tx, filterByID(id))
		if err != nil {
			log.Error().Err(err).Int64("id", id).Msg("failed to lock booking")

			return fmt.Errorf("failed to lock booking: %w", err)
		}

		if booking.ID == 0 {
			return failure.NotFound(errBookingNotFound) // nolint:wrapcheck
		}

		if !booking.Confirmed() {
			return failure.InvalidState(errAlreadyCancelled) // nolint:wrapcheck
		}

		fields := map[string]any{
			model.FieldStatus:        model.StatusCancelled,
			constant.FieldDateEdit:   timezone.Now().Unix(),
			constant.FieldModifiedBy: user,
		}

		if err := s.repo.UpdateTx(ctx, tx, fields, filterByID(id)); err != nil {
			log.Error().Err(err).Int64("id", id).Msg("failed to cancel booking")

			return fmt.Errorf("failed to cancel booking: %w", err)
		}

		booking.Status = model.StatusCancelled

		return nil
	})
	if err != nil {
		return err
	}

	s.committed(ctx, model.EventCancelled, booking)

	return nil
}

// Delete soft deletes the booking. Removing a claim cannot create an
// overlap, so the room timeline is not re-checked.
func (s *serviceImpl) Delete(ctx context.Context, id int64) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Delete")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	var booking model.Booking

	err = s.transactor.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		booking, err = s.repo.GetForUpdateTx(ctx, tx, filterByID(id))
		if err != nil {
			log.Error().Err(err).Int64("id", id).Msg("failed to lock booking")

			return fmt.Errorf("failed to lock booking: %w", err)
		}

		if booking.ID == 0 {
			return failure.NotFound(errBookingNotFound) // nolint:wrapcheck
		}

		if err := s.repo.SoftDeleteTx(ctx, tx, user, filterByID(id)); err != nil {
			log.Error().Err(err).Int64("id", id).Msg("failed to delete booking")

			return fmt.Errorf("failed to delete booking: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.committed(ctx, model.EventDeleted, booking)

	return nil
}

// Availability is advisory: it takes no lock and a later write may still
// be rejected with a conflict.
func (s *serviceImpl) Availability(ctx context.Context, req dto.AvailabilityRequest) (res dto.AvailabilityResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Booking.Availability")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	window := Window{
		RoomID:           req.RoomID,
		DateStart:        req.DateStart,
		DateEnd:          req.DateEnd,
		ExcludeBookingID: req.ExcludeBookingID,
	}

	if err = window.Validate(); err != nil {
		return res, err
	}

	room, err := s.roomRepo.Get(ctx, roomFilterByID(req.RoomID))
	if err != nil {
		log.Error().Err(err).Int64("room_id", req.RoomID).Msg("failed to get room")

		return res, fmt.Errorf("failed to get room: %w", err)
	}

	if room.ID == 0 {
		return res, failure.NotFound(errRoomNotFound) // nolint:wrapcheck
	}

	conflicts, err := s.checker.Conflicts(ctx, nil, window)
	if err != nil {
		return res, err
	}

	res.FromModels(conflicts)

	return res, nil
}
