package dto

import (
	"encoding/json"
	"mime/multipart"
	"net/http"

	bookingModel "hotel/internal/domains/booking/model"
	"hotel/internal/domains/room/model"
	"hotel/shared"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"
	gModel "hotel/shared/model"
	"hotel/shared/timezone"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

// RoomRequest carries every editable room field. Create and update both
// take the full set; update replaces the stored values.
type RoomRequest struct {
	Name        string          `json:"name"         validate:"required,min=1,max=100"`
	Category    string          `json:"category"     validate:"omitempty,oneof=STANDARD LUXURY SUITE"`
	Price       decimal.Decimal `json:"price"        swaggertype:"string"`
	Capacity    int             `json:"capacity"     validate:"required,min=1,max=20"`
	Status      string          `json:"status"       validate:"omitempty,oneof=AVAILABLE BOOKED MAINTENANCE"`
	Blocks      json.RawMessage `json:"blocks"       validate:"omitempty,jsonarray" swaggertype:"array,object"`
	IsPublished *bool           `json:"is_published"`
}

type (
	CreateRoomRequest = RoomRequest
	UpdateRoomRequest = RoomRequest
)

// Validate checks what struct tags cannot express.
func (r *RoomRequest) Validate() error {
	if !r.Price.IsPositive() {
		return failure.BadRequestFromString("price must be greater than 0") //nolint:wrapcheck
	}

	return nil
}

func (r *RoomRequest) category() string {
	if r.Category == constant.Empty {
		return model.CategoryStandard
	}

	return r.Category
}

func (r *RoomRequest) status() string {
	if r.Status == constant.Empty {
		return model.StatusAvailable
	}

	return r.Status
}

func (r *RoomRequest) blocks() types.JSONText {
	if len(r.Blocks) == 0 {
		return model.EmptyBlocks
	}

	return types.JSONText(r.Blocks)
}

func (r *RoomRequest) isPublished() bool {
	if r.IsPublished == nil {
		return true
	}

	return *r.IsPublished
}

func (r *RoomRequest) ToModel(user string) model.Room {
	return model.Room{
		Name:        r.Name,
		Category:    r.category(),
		Price:       r.Price,
		Capacity:    r.Capacity,
		Status:      r.status(),
		Blocks:      r.blocks(),
		IsPublished: r.isPublished(),
		Metadata:    gModel.NewMetadata(user),
	}
}

// ToUpdateFields returns the column set written by a full update.
func (r *RoomRequest) ToUpdateFields(user string) map[string]any {
	return map[string]any{
		model.FieldName:          r.Name,
		model.FieldCategory:      r.category(),
		model.FieldPrice:         r.Price,
		model.FieldCapacity:      r.Capacity,
		model.FieldStatus:        r.status(),
		model.FieldBlocks:        r.blocks(),
		model.FieldIsPublished:   r.isPublished(),
		constant.FieldDateEdit:   timezone.Now().Unix(),
		constant.FieldModifiedBy: user,
	}
}

type UploadImageRequest struct {
	Image     *multipart.FileHeader `json:"image" validate:"required,mimetypes=image/png image/jpg image/jpeg,maxfilesize=1"`
	ImageFile multipart.File        `json:"-"`
}

type ImageResponse struct {
	Image string `json:"image"`
}

type RoomBookingResponse struct {
	ID        int64  `json:"id"`
	GuestName string `json:"guest_name"`
	DateStart int64  `json:"date_start"`
	DateEnd   int64  `json:"date_end"`
	Status    string `json:"status"`
}

type RoomResponse struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	Category    string                `json:"category"`
	Price       decimal.Decimal       `json:"price"        swaggertype:"string"`
	Capacity    int                   `json:"capacity"`
	Status      string                `json:"status"`
	Blocks      json.RawMessage       `json:"blocks"       swaggertype:"array,object"`
	IsPublished bool                  `json:"is_published"`
	Image       string                `json:"image"`
	Bookings    []RoomBookingResponse `json:"bookings,omitempty"`
	gDto.Metadata
}

func (r *RoomResponse) FromModel(room model.Room) {
	r.ID = room.ID
	r.Name = room.Name
	r.Category = room.Category
	r.Price = room.Price
	r.Capacity = room.Capacity
	r.Status = room.Status
	r.Blocks = blocksJSON(room.Blocks)
	r.IsPublished = room.IsPublished
	r.Image = room.Image
	r.Metadata.FromModel(room.Metadata)
}

func (r *RoomResponse) WithBookings(bookings []bookingModel.Booking) {
	r.Bookings = make([]RoomBookingResponse, len(bookings))
	for i, booking := range bookings {
		r.Bookings[i] = RoomBookingResponse{
			ID:        booking.ID,
			GuestName: booking.GuestName,
			DateStart: booking.DateStart,
			DateEnd:   booking.DateEnd,
			Status:    booking.Status,
		}
	}
}

// PublicRoomResponse is the catalogue projection; audit fields stay internal.
type PublicRoomResponse struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"    swaggertype:"string"`
	Capacity int             `json:"capacity"`
	Status   string          `json:"status"`
	Blocks   json.RawMessage `json:"blocks"   swaggertype:"array,object"`
	Image    string          `json:"image"`
}

func (r *PublicRoomResponse) FromModel(room model.Room) {
	r.ID = room.ID
	r.Name = room.Name
	r.Category = room.Category
	r.Price = room.Price
	r.Capacity = room.Capacity
	r.Status = room.Status
	r.Blocks = blocksJSON(room.Blocks)
	r.Image = room.Image
}

type GetRoomsResponse struct {
	Rooms     []RoomResponse `json:"rooms"`
	TotalPage int            `json:"total_page"`
	TotalData int            `json:"total_data"`
}

func (r *GetRoomsResponse) FromModels(models []model.Room, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Rooms = make([]RoomResponse, len(models))
	for i, mod := range models {
		r.Rooms[i].FromModel(mod)
	}
}

type GetPublicRoomsResponse struct {
	Rooms     []PublicRoomResponse `json:"rooms"`
	TotalPage int                  `json:"total_page"`
	TotalData int                  `json:"total_data"`
}

func (r *GetPublicRoomsResponse) FromModels(models []model.Room, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Rooms = make([]PublicRoomResponse, len(models))
	for i, mod := range models {
		r.Rooms[i].FromModel(mod)
	}
}

func blocksJSON(blocks types.JSONText) json.RawMessage {
	if len(blocks) == 0 {
		return json.RawMessage(model.EmptyBlocks)
	}

	return json.RawMessage(blocks)
}

const (
	queryRoomID   = "room_id"
	queryName     = "name"
	queryCategory = "category"
	queryStatus   = "status"
)

// SortColumns are the columns a room list may be ordered by.
var SortColumns = []string{model.FieldID, model.FieldName, model.FieldPrice}

// RoomFilter holds the list filters read from the query string. Zero values
// are not applied.
type RoomFilter struct {
	RoomID   int64  `json:"room_id"  validate:"omitempty,gt=0"`
	Name     string `json:"name"     validate:"omitempty,max=100"`
	Category string `json:"category" validate:"omitempty,oneof=STANDARD LUXURY SUITE"`
	Status   string `json:"status"   validate:"omitempty,oneof=AVAILABLE BOOKED MAINTENANCE"`
}

func (f *RoomFilter) FromRequest(r *http.Request) error {
	query := r.URL.Query()

	if raw := query.Get(queryRoomID); raw != constant.Empty {
		id, err := shared.ConvertStringToInt64(raw)
		if err != nil {
			return failure.BadRequestFromString(queryRoomID + " must be an integer") //nolint:wrapcheck
		}

		f.RoomID = id
	}

	f.Name = query.Get(queryName)
	f.Category = query.Get(queryCategory)
	f.Status = query.Get(queryStatus)

	return nil
}

func (f RoomFilter) ToFilterGroup() gDto.FilterGroup {
	group := gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd}

	if f.RoomID != 0 {
		group.Filters = append(group.Filters, gDto.Filter{Field: model.FieldID, Value: f.RoomID, Operator: gDto.FilterOperatorEq, Table: model.TableName})
	}

	if f.Name != constant.Empty {
		group.Filters = append(group.Filters, gDto.Filter{Field: model.FieldName, Value: f.Name, Operator: gDto.FilterOperatorLike, Table: model.TableName})
	}

	if f.Category != constant.Empty {
		group.Filters = append(group.Filters, gDto.Filter{Field: model.FieldCategory, Value: f.Category, Operator: gDto.FilterOperatorEq, Table: model.TableName})
	}

	if f.Status != constant.Empty {
		group.Filters = append(group.Filters, gDto.Filter{Field: model.FieldStatus, Value: f.Status, Operator: gDto.FilterOperatorEq, Table: model.TableName})
	}

	return group
}
