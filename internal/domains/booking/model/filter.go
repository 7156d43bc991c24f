package model

import (
	gDto "hotel/shared/dto"
)

const (
	argWindowStart = "window_start"
	argWindowEnd   = "window_end"
	argExcludeID   = "exclude_id"
	argEndAfter    = "end_after"
)

// ConfirmedForRoom matches the CONFIRMED bookings of one room.
func ConfirmedForRoom(roomID int64) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: FieldRoomID, Value: roomID, Operator: gDto.FilterOperatorEq, Table: TableName},
			gDto.Filter{Field: FieldStatus, Value: StatusConfirmed, Operator: gDto.FilterOperatorEq, Table: TableName},
		},
	}
}

// OverlappingWindow matches CONFIRMED bookings of the room intersecting
// [start, end), leaving out excludeID when it is non-zero.
func OverlappingWindow(roomID, start, end, excludeID int64) gDto.FilterGroup {
	filters := []any{
		gDto.Filter{Field: FieldDateStart, ArgName: argWindowEnd, Value: end, Operator: gDto.FilterOperatorLess, Table: TableName},
		gDto.Filter{Field: FieldDateEnd, ArgName: argWindowStart, Value: start, Operator: gDto.FilterOperatorGreater, Table: TableName},
	}

	if excludeID != 0 {
		filters = append(filters, gDto.Filter{Field: FieldID, ArgName: argExcludeID, Value: excludeID, Operator: gDto.FilterOperatorNotEq, Table: TableName})
	}

	return ConfirmedForRoom(roomID).And(filters...)
}

// EndingAfter matches CONFIRMED bookings of the room still running after t.
func EndingAfter(roomID, t int64) gDto.FilterGroup {
	return ConfirmedForRoom(roomID).And(
		gDto.Filter{Field: FieldDateEnd, ArgName: argEndAfter, Value: t, Operator: gDto.FilterOperatorGreater, Table: TableName},
	)
}
