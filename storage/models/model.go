package models

import "time"

// Model is the common primary key and bookkeeping columns. Rows are deleted
// for real; there is no soft-delete column.
type Model struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
