package models

import "time"

type Book struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Author      string    `json:"author" db:"author"`
	IsAvailable bool      `json:"is_available" db:"is_available"`
	CreatedBy   *string   `json:"created_by" db:"created_by"`
	CreatedAt   time.Time `json:"-" db:"created_at"`
	UpdatedAt   time.Time `json:"-" db:"updated_at"`
}

// BookPatch carries a partial update. Nil fields are left untouched.
type BookPatch struct {
	Title  *string
	Author *string
}

func (p BookPatch) Empty() bool { return p.Title == nil && p.Author == nil }
