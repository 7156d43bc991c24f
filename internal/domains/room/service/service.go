package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Room=MockRoomService

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"hotel/config"
	"hotel/infras/otel"
	"hotel/infras/postgres"
	"hotel/infras/s3"
	bookingModel "hotel/internal/domains/booking/model"
	bookingRepository "hotel/internal/domains/booking/repository"
	"hotel/internal/domains/room/model"
	"hotel/internal/domains/room/model/dto"
	"hotel/internal/domains/room/repository"
	"hotel/shared"
	"hotel/shared/cache"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"
	"hotel/shared/timezone"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const (
	cachePrefixRoom       = "room:"
	cachePrefixBooking    = "booking:"
	cacheGetAllRoom       = "room:gets"
	cacheCountRoom        = "room:count"
	cacheGetPublicRoom    = "room:public:get"
	cacheGetAllPublicRoom = "room:public:gets"
	cacheCountPublicRoom  = "room:public:count"
)

const (
	errRoomNotFound       = "room not found"
	errRoomActiveBookings = "room has active future bookings"
)

type Room interface {
	Create(ctx context.Context, req dto.CreateRoomRequest) (int64, error)
	Update(ctx context.Context, id int64, req dto.UpdateRoomRequest) error
	UploadImage(ctx context.Context, id int64, req dto.UploadImageRequest) (dto.ImageResponse, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (dto.GetRoomsResponse, error)
	Get(ctx context.Context, id int64) (dto.RoomResponse, error)
	GetAllPublic(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (dto.GetPublicRoomsResponse, error)
	GetPublic(ctx context.Context, id int64) (dto.PublicRoomResponse, error)
	Delete(ctx context.Context, id int64) error
}

type serviceImpl struct {
	repo        repository.Room
	bookingRepo bookingRepository.Booking
	transactor  postgres.Transactor
	cfg         *config.Config
	cache       cache.RedisCache
	otel        otel.Otel
	s3          s3.S3
}

func New(
	repo repository.Room,
	bookingRepo bookingRepository.Booking,
	transactor postgres.Transactor,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
	s3 s3.S3,
) Room {
	return &serviceImpl{
		repo:        repo,
		bookingRepo: bookingRepo,
		transactor:  transactor,
		cfg:         cfg,
		cache:       cache,
		otel:        otel,
		s3:          s3,
	}
}

func filterByID(id int64) gDto.FilterGroup {
	return shared.FilterByID(id, model.FieldID, model.TableName)
}

func publicFilter(filter gDto.FilterGroup) gDto.FilterGroup {
	return filter.And(gDto.Filter{
		Field:    model.FieldIsPublished,
		Value:    true,
		Operator: gDto.FilterOperatorEq,
		Table:    model.TableName,
	})
}

// invalidate clears room caches plus any extra prefixes. Booking reads embed
// the room's name, category and price, so writes to an existing room pass
// cachePrefixBooking too.
func (s *serviceImpl) invalidate(ctx context.Context, prefixes ...string) {
	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, append([]string{cachePrefixRoom}, prefixes...)...)
	}()
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateRoomRequest) (id int64, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Room.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err = req.Validate(); err != nil {
		return 0, err
	}

	id, err = s.repo.Insert(ctx, req.ToModel(user))
	if err != nil {
		log.Error().Err(err).Msg("failed to create room")

		return 0, fmt.Errorf("failed to create room: %w", err)
	}

	s.invalidate(ctx)

	return id, nil
}

func (s *serviceImpl) Update(ctx context.Context, id int64, req dto.UpdateRoomRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Room.Update")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err = req.Validate(); err != nil {
		return err
	}

	err = s.transactor.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		room, err := s.repo.GetForUpdateTx(ctx, tx, filterByID(id))
		if err != nil {
			log.Error().Err(err).Int64("id", id).Msg("failed to lock room")

			return fmt.Errorf("failed to lock room: %w", err)
		}

		if room.ID == 0 {
			return failure.NotFound(errRoomNotFound) // nolint:wrapcheck
		}

		if err := s.repo.UpdateTx(ctx, tx, req.ToUpdateFields(user), filterByID(id)); err != nil {
			log.Error().Err(err).Int64("id", id).Msg("failed to update room")

			return fmt.Errorf("failed to update room: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, cachePrefixBooking)

	return nil
}

func (s *serviceImpl) UploadImage(ctx context.Context, id int64, req dto.UploadImageRequest) (res dto.ImageResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Room.UploadImage")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	room, err := s.repo.Get(ctx, filterByID(id))
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to get room")

		return res, fmt.Errorf("failed to get room: %w", err)
	}

	if room.ID == 0 {
		return res, failure.NotFound(errRoomNotFound) // nolint:wrapcheck
	}

	key := path.Join(model.EntityName, uuid.NewString()+filepath.Ext(req.Image.Filename))
	contentType := req.Image.Header.Get(constant.RequestHeaderContentType)

	url, err := s.s3.PutObject(ctx, key, contentType, req.ImageFile)
	if err != nil {
		log.Error().Err(err).Msg("failed to upload room image")

		return res, fmt.Errorf("failed to upload image: %w", err)
	}

	fields := shared.TransformFields(struct {
		Image string `db:"image"`
	}{Image: url}, user)

	if err = s.repo.Update(ctx, fields, filterByID(id)); err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to update room image")

		if delErr := s.s3.DeleteObject(ctx, key); delErr != nil {
			log.Error().Err(delErr).Str("object", key).Msg("failed to clean up uploaded image")
		}

		return res, fmt.Errorf("failed to update room image: %w", err)
	}

	if room.Image != constant.Empty {
		if oldKey := s.s3.ObjectKey(room.Image); oldKey != constant.Empty {
			if delErr := s.s3.DeleteObject(ctx, oldKey); delErr != nil {
				log.Error().Err(delErr).Str("object", oldKey).Msg("failed to delete previous room image")
			}
		}
	}

	s.invalidate(ctx, cachePrefixBooking)

	return dto.ImageResponse{Image: url}, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetRoomsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Room.GetAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllRoom, params, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for rooms")

		return res, nil
	}

	total, err := s.count(ctx, cacheCountRoom, filter)
	if err != nil {
		return res, err
	}

	models, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get rooms")

		return res, fmt.Errorf("failed to get rooms: %w", err)
	}

	res.FromModels(models, total, params.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save rooms to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) count(ctx context.Context, prefix string, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Room.count")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(prefix, gDto.QueryParams{}, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count rooms")

		return res, fmt.Errorf("failed to count rooms: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save room count to cache")
		}
	}()

	return res, nil
}

// Get is never cached: it carries the live booking list of the room.
func (s *serviceImpl) Get(ctx context.Context, id int64) (res dto.RoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Room.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	room, err := s.repo.Get(ctx, filterByID(id))
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to get room")

		return res, fmt.Errorf("failed to get room: %w", err)
	}

	if room.ID == 0 {
		return res, failure.NotFound(errRoomNotFound) // nolint:wrapcheck
	}

	bookings, err := s.bookingRepo.GetAll(ctx, gDto.QueryParams{
		SortBy:  bookingModel.FieldDateStart,
		SortDir: gDto.SortDirAsc,
	}, bookingModel.ConfirmedForRoom(id))
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to get room bookings")

		return res, fmt.Errorf("failed to get room bookings: %w", err)
	}

	res.FromModel(room)
	res.WithBookings(bookings)

	return res, nil
}

func (s *serviceImpl) GetAllPublic(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetPublicRoomsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Room.GetAllPublic")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	filter = publicFilter(filter)
	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllPublicRoom, params, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for public rooms")

		return res, nil
	}

	total, err := s.count(ctx, cacheCountPublicRoom, filter)
	if err != nil {
		return res, err
	}

	models, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get public rooms")

		return res, fmt.Errorf("failed to get rooms: %w", err)
	}

	res.FromModels(models, total, params.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save public rooms to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) GetPublic(ctx context.Context, id int64) (res dto.PublicRoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Room.GetPublic")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(cacheGetPublicRoom, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for public room")

		return res, nil
	}

	room, err := s.repo.Get(ctx, publicFilter(filterByID(id)))
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to get public room")

		return res, fmt.Errorf("failed to get room: %w", err)
	}

	if room.ID == 0 {
		return res, failure.NotFound(errRoomNotFound) // nolint:wrapcheck
	}

	res.FromModel(room)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save public room to cache")
		}
	}()

	return res, nil
}

// Delete soft deletes the room unless a CONFIRMED booking still ends in the
// future. The room row stays locked so no booking can slip in meanwhile.
func (s *serviceImpl) Delete(ctx context.Context, id int64) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Room.Delete")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	err = s.transactor.WithinTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		room, err := s.repo.GetForUpdateTx(ctx, tx, filterByID(id))
		if err != nil {
			log.Error().Err(err).Int64("id", id).Msg("failed to lock room")

			return fmt.Errorf("failed to lock room: %w", err)
		}

		if room.ID == 0 {
			return failure.NotFound(errRoomNotFound) // nolint:wrapcheck
		}

		active, err := s.bookingRepo.CountTx(ctx, tx, bookingModel.EndingAfter(id, timezone.Now().Unix()))
		if err != nil {
			log.Error().Err(err).Int64("id", id).Msg("failed to count active bookings")

			return fmt.Errorf("failed to count active bookings: %w", err)
		}

		if active > 0 {
			return failure.InvalidState(errRoomActiveBookings) // nolint:wrapcheck
		}

		if err := s.repo.SoftDeleteTx(ctx, tx, user, filterByID(id)); err != nil {
			log.Error().Err(err).Int64("id", id).Msg("failed to delete room")

			return fmt.Errorf("failed to delete room: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, cachePrefixBooking)

	return nil
}
