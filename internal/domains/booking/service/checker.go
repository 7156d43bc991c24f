package service

//go:generate go run go.uber.org/mock/mockgen -source=./checker.go -destination=../mocks/checker_mock.go -package=mocks

import (
	"context"
	"fmt"

	"hotel/infras/otel"
	"hotel/internal/domains/booking/model"
	"hotel/internal/domains/booking/repository"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const errInvalidWindow = "date_end must be after date_start"

// Window is a candidate stay [DateStart, DateEnd) on one room. A non-zero
// ExcludeBookingID leaves that booking out of the scan.
type Window struct {
	RoomID           int64
	DateStart        int64
	DateEnd          int64
	ExcludeBookingID int64
}

func (w Window) Validate() error {
	if w.DateEnd <= w.DateStart {
		return failure.BadRequestFromString(errInvalidWindow) // nolint:wrapcheck
	}

	return nil
}

// Checker finds live CONFIRMED bookings overlapping a window. With a nil tx it
// reads outside any transaction and the answer is advisory only; writers pass
// the tx that already holds the room lock.
type Checker interface {
	HasConflict(ctx context.Context, tx *sqlx.Tx, window Window) (bool, error)
	Conflicts(ctx context.Context, tx *sqlx.Tx, window Window) ([]model.Booking, error)
}

type checkerImpl struct {
	repo repository.Booking
	otel otel.Otel
}

func NewChecker(repo repository.Booking, otel otel.Otel) Checker {
	return &checkerImpl{
		repo: repo,
		otel: otel,
	}
}

func (c *checkerImpl) HasConflict(ctx context.Context, tx *sqlx.Tx, window Window) (res bool, err error) {
	ctx, scope := c.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Checker.HasConflict")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if err = window.Validate(); err != nil {
		return false, err
	}

	count, err := c.repo.CountTx(ctx, tx, model.OverlappingWindow(window.RoomID, window.DateStart, window.DateEnd, window.ExcludeBookingID))
	if err != nil {
		log.Error().Err(err).Int64("room_id", window.RoomID).Msg("failed to count overlapping bookings")

		return false, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}

	return count > 0, nil
}

func (c *checkerImpl) Conflicts(ctx context.Context, tx *sqlx.Tx, window Window) (res []model.Booking, err error) {
	ctx, scope := c.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Checker.Conflicts")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if err = window.Validate(); err != nil {
		return nil, err
	}

	res, err = c.repo.GetAllTx(ctx, tx, gDto.QueryParams{
		SortBy:  model.FieldDateStart,
		SortDir: gDto.SortDirAsc,
	}, model.OverlappingWindow(window.RoomID, window.DateStart, window.DateEnd, window.ExcludeBookingID))
	if err != nil {
		log.Error().Err(err).Int64("room_id", window.RoomID).Msg("failed to get overlapping bookings")

		return nil, fmt.Errorf("failed to get overlapping bookings: %w", err)
	}

	return res, nil
}
