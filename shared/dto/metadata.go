package dto

import (
	"hotel/shared/model"
)

type Metadata struct {
	DateAdd    int64  `json:"date_add"`
	DateEdit   *int64 `json:"date_edit"`
	CreatedBy  string `json:"created_by"`
	ModifiedBy string `json:"modified_by"`
}

func (m *Metadata) FromModel(model model.Metadata) {
	m.DateAdd = model.DateAdd
	m.DateEdit = model.DateEdit
	m.CreatedBy = model.CreatedBy
	m.ModifiedBy = model.ModifiedBy
}

// CreatedResponse is returned by endpoints that create a row.
type CreatedResponse struct {
	ID int64 `json:"id"`
}
