package models

import (
	"fmt"
)

var (
	ErrAdminNotFound      = fmt.Errorf("admin not found")
	ErrInvalidCredentials = fmt.Errorf("invalid email or password")
)

type Admin struct {
	BaseModel

	Email        string
	Name         string
	PasswordHash string
}
