package model

import (
	"hotel/shared/constant"
	"hotel/shared/model"

	"github.com/shopspring/decimal"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID         = "id"
	FieldRoomID     = "room_id"
	FieldGuestName  = "guest_name"
	FieldGuestPhone = "guest_phone"
	FieldDateStart  = "date_start"
	FieldDateEnd    = "date_end"
	FieldTotalPrice = "total_price"
	FieldStatus     = "status"
)

const (
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

const (
	EventCreated   = "booking.created"
	EventUpdated   = "booking.updated"
	EventCancelled = "booking.cancelled"
	EventDeleted   = "booking.deleted"
)

// Booking occupies its room over the half-open interval [DateStart, DateEnd),
// both in unix seconds. TotalPrice is derived, never supplied by callers.
type Booking struct {
	ID         int64           `db:"id"`
	RoomID     int64           `db:"room_id"`
	GuestName  string          `db:"guest_name"`
	GuestPhone string          `db:"guest_phone"`
	DateStart  int64           `db:"date_start"`
	DateEnd    int64           `db:"date_end"`
	TotalPrice decimal.Decimal `db:"total_price"`
	Status     string          `db:"status"`
	model.Metadata

	RoomName     string          `column:"name"     db:"room_name"     table:"rooms"`
	RoomCategory string          `column:"category" db:"room_category" table:"rooms"`
	RoomPrice    decimal.Decimal `column:"price"    db:"room_price"    table:"rooms"`
}

func (Booking) GetJoinQuery() string {
	return "INNER JOIN rooms ON rooms.id = bookings.room_id"
}

func (b Booking) Confirmed() bool {
	return b.Status == StatusConfirmed
}

// Overlaps reports whether [s1, e1) and [s2, e2) share at least one instant.
// Touching intervals (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 int64) bool {
	return s1 < e2 && e1 > s2
}

// Nights counts started nights in [start, end); any positive span is at least one.
func Nights(start, end int64) int64 {
	span := end - start
	if span <= 0 {
		return 0
	}

	return (span + constant.SecondsPerNight - 1) / constant.SecondsPerNight
}

// TotalPrice is the nightly rate times the number of started nights.
func TotalPrice(nightly decimal.Decimal, start, end int64) decimal.Decimal {
	return nightly.Mul(decimal.NewFromInt(Nights(start, end)))
}
