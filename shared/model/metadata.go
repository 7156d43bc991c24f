package model

import "hotel/shared/timezone"

// Metadata carries the bookkeeping columns shared by every table.
// Timestamps are unix seconds; a nil DateDelete marks a live row.
type Metadata struct {
	DateAdd    int64  `db:"date_add"`
	DateEdit   *int64 `db:"date_edit"`
	DateDelete *int64 `db:"date_delete"`
	CreatedBy  string `db:"created_by"`
	ModifiedBy string `db:"modified_by"`
}

func NewMetadata(user string) Metadata {
	return Metadata{
		DateAdd:    timezone.Now().Unix(),
		CreatedBy:  user,
		ModifiedBy: user,
	}
}

func (m Metadata) IsDeleted() bool {
	return m.DateDelete != nil
}
