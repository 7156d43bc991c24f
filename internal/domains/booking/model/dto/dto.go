package dto

import (
	"fmt"
	"net/http"
	"net/url"

	"hotel/internal/domains/booking/model"
	"hotel/shared"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"
	gModel "hotel/shared/model"
	"hotel/shared/timezone"

	"github.com/shopspring/decimal"
)

type CreateBookingRequest struct {
	RoomID     int64  `json:"room_id"     validate:"required,gt=0"`
	GuestName  string `json:"guest_name"  validate:"required,min=2,max=200"`
	GuestPhone string `json:"guest_phone" validate:"required,phone"`
	DateStart  int64  `json:"date_start"  validate:"required,gt=0"`
	DateEnd    int64  `json:"date_end"    validate:"required,gtfield=DateStart"`
}

// ToModel builds a CONFIRMED booking priced at the room's nightly rate.
func (c *CreateBookingRequest) ToModel(user string, nightly decimal.Decimal) model.Booking {
	return model.Booking{
		RoomID:     c.RoomID,
		GuestName:  c.GuestName,
		GuestPhone: c.GuestPhone,
		DateStart:  c.DateStart,
		DateEnd:    c.DateEnd,
		TotalPrice: model.TotalPrice(nightly, c.DateStart, c.DateEnd),
		Status:     model.StatusConfirmed,
		Metadata:   gModel.NewMetadata(user),
	}
}

// UpdateBookingRequest is a partial update; nil fields are left untouched.
type UpdateBookingRequest struct {
	GuestName  *string `db:"guest_name"  json:"guest_name"  validate:"omitempty,min=2,max=200"`
	GuestPhone *string `db:"guest_phone" json:"guest_phone" validate:"omitempty,phone"`
	DateStart  *int64  `db:"date_start"  json:"date_start"  validate:"omitempty,gt=0"`
	DateEnd    *int64  `db:"date_end"    json:"date_end"    validate:"omitempty,gt=0"`
	Status     *string `db:"status"      json:"status"      validate:"omitempty,oneof=CONFIRMED CANCELLED"`
}

func (u *UpdateBookingRequest) IsEmpty() bool {
	return *u == UpdateBookingRequest{}
}

// Merge returns booking with every provided field applied.
func (u *UpdateBookingRequest) Merge(booking model.Booking) model.Booking {
	if u.GuestName != nil {
		booking.GuestName = *u.GuestName
	}

	if u.GuestPhone != nil {
		booking.GuestPhone = *u.GuestPhone
	}

	if u.DateStart != nil {
		booking.DateStart = *u.DateStart
	}

	if u.DateEnd != nil {
		booking.DateEnd = *u.DateEnd
	}

	if u.Status != nil {
		booking.Status = *u.Status
	}

	return booking
}

type AvailabilityRequest struct {
	RoomID           int64 `json:"room_id"            validate:"required,gt=0"`
	DateStart        int64 `json:"date_start"         validate:"required,gt=0"`
	DateEnd          int64 `json:"date_end"           validate:"required,gtfield=DateStart"`
	ExcludeBookingID int64 `json:"exclude_booking_id" validate:"omitempty,gt=0"`
}

// FromRequest reads room_id, date_start, date_end and exclude_booking_id from
// the query string.
func (a *AvailabilityRequest) FromRequest(r *http.Request) error {
	query := r.URL.Query()

	params := []struct {
		name string
		dst  *int64
	}{
		{queryRoomID, &a.RoomID},
		{queryDateStart, &a.DateStart},
		{queryDateEnd, &a.DateEnd},
		{queryExcludeBookingID, &a.ExcludeBookingID},
	}

	for _, param := range params {
		value, err := queryInt64(query, param.name)
		if err != nil {
			return err
		}

		if value != nil {
			*param.dst = *value
		}
	}

	return nil
}

type ConflictingBooking struct {
	ID        int64  `json:"id"`
	GuestName string `json:"guest_name"`
	DateStart int64  `json:"date_start"`
	DateEnd   int64  `json:"date_end"`
}

type AvailabilityResponse struct {
	Available           bool                 `json:"available"`
	ConflictingBookings []ConflictingBooking `json:"conflicting_bookings"`
}

func (r *AvailabilityResponse) FromModels(conflicts []model.Booking) {
	r.Available = len(conflicts) == 0

	r.ConflictingBookings = make([]ConflictingBooking, len(conflicts))
	for i, booking := range conflicts {
		r.ConflictingBookings[i] = ConflictingBooking{
			ID:        booking.ID,
			GuestName: booking.GuestName,
			DateStart: booking.DateStart,
			DateEnd:   booking.DateEnd,
		}
	}
}

type BookingRoomResponse struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"    swaggertype:"string"`
}

type BookingResponse struct {
	ID         int64               `json:"id"`
	RoomID     int64               `json:"room_id"`
	GuestName  string              `json:"guest_name"`
	GuestPhone string              `json:"guest_phone"`
	DateStart  int64               `json:"date_start"`
	DateEnd    int64               `json:"date_end"`
	Nights     int64               `json:"nights"`
	TotalPrice decimal.Decimal     `json:"total_price" swaggertype:"string"`
	Status     string              `json:"status"`
	Room       BookingRoomResponse `json:"room"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(booking model.Booking) {
	r.ID = booking.ID
	r.RoomID = booking.RoomID
	r.GuestName = booking.GuestName
	r.GuestPhone = booking.GuestPhone
	r.DateStart = booking.DateStart
	r.DateEnd = booking.DateEnd
	r.Nights = model.Nights(booking.DateStart, booking.DateEnd)
	r.TotalPrice = booking.TotalPrice
	r.Status = booking.Status
	r.Room = BookingRoomResponse{
		ID:       booking.RoomID,
		Name:     booking.RoomName,
		Category: booking.RoomCategory,
		Price:    booking.RoomPrice,
	}
	r.Metadata.FromModel(booking.Metadata)
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}

// BookingEvent is published to the booking topic after every committed write.
type BookingEvent struct {
	Type       string          `json:"type"`
	BookingID  int64           `json:"booking_id"`
	RoomID     int64           `json:"room_id"`
	GuestName  string          `json:"guest_name"`
	GuestPhone string          `json:"guest_phone"`
	DateStart  int64           `json:"date_start"`
	DateEnd    int64           `json:"date_end"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     string          `json:"status"`
	OccurredAt int64           `json:"occurred_at"`
}

func NewBookingEvent(eventType string, booking model.Booking) BookingEvent {
	return BookingEvent{
		Type:       eventType,
		BookingID:  booking.ID,
		RoomID:     booking.RoomID,
		GuestName:  booking.GuestName,
		GuestPhone: booking.GuestPhone,
		DateStart:  booking.DateStart,
		DateEnd:    booking.DateEnd,
		TotalPrice: booking.TotalPrice,
		Status:     booking.Status,
		OccurredAt: timezone.Now().Unix(),
	}
}

// Nights of the stay described by the event.
func (e BookingEvent) Nights() int64 {
	return model.Nights(e.DateStart, e.DateEnd)
}

// Summary renders the guest notification line for the event.
func (e BookingEvent) Summary() string {
	checkIn := timezone.FormatUnix(e.DateStart, constant.DayFormat)
	checkOut := timezone.FormatUnix(e.DateEnd, constant.DayFormat)

	switch e.Type {
	case model.EventCancelled:
		return fmt.Sprintf("booking #%d for %s (%s to %s) was cancelled", e.BookingID, e.GuestName, checkIn, checkOut)
	case model.EventDeleted:
		return fmt.Sprintf("booking #%d for %s was removed", e.BookingID, e.GuestName)
	default:
		return fmt.Sprintf("booking #%d for %s: check-in %s, check-out %s, %d night(s), total %s",
			e.BookingID, e.GuestName, checkIn, checkOut, e.Nights(), e.TotalPrice.StringFixed(2))
	}
}

const (
	queryBookingID = "booking_id"
	queryRoomID    = "room_id"
	queryGuestName = "guest_name"
	queryStatus    = "status"
	queryDateFrom  = "date_from"
	queryDateTo    = "date_to"
	queryActiveAt  = "active_at"

	queryDateStart        = "date_start"
	queryDateEnd          = "date_end"
	queryExcludeBookingID = "exclude_booking_id"

	argActiveAt = "active_at"
)

// SortColumns are the columns a booking list may be ordered by.
var SortColumns = []string{model.FieldID, model.FieldDateStart, model.FieldDateEnd, model.FieldTotalPrice}

// BookingFilter holds the admin list filters. Nil and zero values are not
// applied. ActiveAt keeps bookings covering that instant.
type BookingFilter struct {
	BookingID int64  `json:"booking_id" validate:"omitempty,gt=0"`
	RoomID    int64  `json:"room_id"    validate:"omitempty,gt=0"`
	GuestName string `json:"guest_name" validate:"omitempty,max=200"`
	Status    string `json:"status"     validate:"omitempty,oneof=CONFIRMED CANCELLED"`
	DateFrom  *int64 `json:"date_from"`
	DateTo    *int64 `json:"date_to"`
	ActiveAt  *int64 `json:"active_at"`
}

func queryInt64(query url.Values, name string) (*int64, error) {
	raw := query.Get(name)
	if raw == constant.Empty {
		return nil, nil
	}

	value, err := shared.ConvertStringToInt64(raw)
	if err != nil {
		return nil, failure.BadRequestFromString(name + " must be an integer") //nolint:wrapcheck
	}

	return &value, nil
}

func (f *BookingFilter) FromRequest(r *http.Request) (err error) {
	query := r.URL.Query()

	var bookingID, roomID *int64

	if bookingID, err = queryInt64(query, queryBookingID); err != nil {
		return err
	}

	if roomID, err = queryInt64(query, queryRoomID); err != nil {
		return err
	}

	if f.DateFrom, err = queryInt64(query, queryDateFrom); err != nil {
		return err
	}

	if f.DateTo, err = queryInt64(query, queryDateTo); err != nil {
		return err
	}

	if f.ActiveAt, err = queryInt64(query, queryActiveAt); err != nil {
		return err
	}

	if bookingID != nil {
		f.BookingID = *bookingID
	}

	if roomID != nil {
		f.RoomID = *roomID
	}

	f.GuestName = query.Get(queryGuestName)
	f.Status = query.Get(queryStatus)

	return nil
}

func (f BookingFilter) ToFilterGroup() gDto.FilterGroup {
	group := gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd}

	add := func(filter gDto.Filter) {
		filter.Table = model.TableName
		group.Filters = append(group.Filters, filter)
	}

	if f.BookingID != 0 {
		add(gDto.Filter{Field: model.FieldID, Value: f.BookingID, Operator: gDto.FilterOperatorEq})
	}

	if f.RoomID != 0 {
		add(gDto.Filter{Field: model.FieldRoomID, Value: f.RoomID, Operator: gDto.FilterOperatorEq})
	}

	if f.GuestName != constant.Empty {
		add(gDto.Filter{Field: model.FieldGuestName, Value: f.GuestName, Operator: gDto.FilterOperatorLike})
	}

	if f.Status != constant.Empty {
		add(gDto.Filter{Field: model.FieldStatus, Value: f.Status, Operator: gDto.FilterOperatorEq})
	}

	if f.DateFrom != nil {
		add(gDto.Filter{Field: model.FieldDateStart, ArgName: queryDateFrom, Value: *f.DateFrom, Operator: gDto.FilterOperatorGreaterEq})
	}

	if f.DateTo != nil {
		add(gDto.Filter{Field: model.FieldDateEnd, ArgName: queryDateTo, Value: *f.DateTo, Operator: gDto.FilterOperatorLessEq})
	}

	if f.ActiveAt != nil {
		add(gDto.Filter{Field: model.FieldDateStart, ArgName: argActiveAt + "_start", Value: *f.ActiveAt, Operator: gDto.FilterOperatorLessEq})
		add(gDto.Filter{Field: model.FieldDateEnd, ArgName: argActiveAt + "_end", Value: *f.ActiveAt, Operator: gDto.FilterOperatorGreater})
	}

	return group
}
