package models

import (
	"database/sql"
	"time"
)

type BaseModel struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt sql.NullTime
}
