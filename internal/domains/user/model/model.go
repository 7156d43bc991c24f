package model

import "hotel/shared/model"

const (
	TableName  = "users"
	EntityName = "user"

	FieldID       = "id"
	FieldEmail    = "email"
	FieldPassword = "password_hash"
	FieldName     = "name"
	FieldRole     = "role"
)

// CachePrefix covers every cached user read; writers clear it.
const CachePrefix = "user:"

const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
)

type User struct {
	ID       int64  `db:"id"`
	Email    string `db:"email"`
	Password string `db:"password_hash"`
	Name     string `db:"name"`
	Role     string `db:"role"`
	model.Metadata
}
