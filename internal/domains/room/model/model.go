package model

import (
	"hotel/shared/model"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldID          = "id"
	FieldName        = "name"
	FieldCategory    = "category"
	FieldPrice       = "price"
	FieldCapacity    = "capacity"
	FieldStatus      = "status"
	FieldBlocks      = "blocks"
	FieldIsPublished = "is_published"
	FieldImage       = "image"
)

const (
	CategoryStandard = "STANDARD"
	CategoryLuxury   = "LUXURY"
	CategorySuite    = "SUITE"
)

const (
	StatusAvailable   = "AVAILABLE"
	StatusBooked      = "BOOKED"
	StatusMaintenance = "MAINTENANCE"
)

// EmptyBlocks is the stored value for a room without description blocks.
var EmptyBlocks = types.JSONText("[]")

type Room struct {
	ID          int64           `db:"id"`
	Name        string          `db:"name"`
	Category    string          `db:"category"`
	Price       decimal.Decimal `db:"price"`
	Capacity    int             `db:"capacity"`
	Status      string          `db:"status"`
	Blocks      types.JSONText  `db:"blocks"`
	IsPublished bool            `db:"is_published"`
	Image       string          `db:"image"`
	model.Metadata
}

// Bookable reports whether new bookings may be placed on the room.
func (r Room) Bookable() bool {
	return r.Status != StatusMaintenance
}
