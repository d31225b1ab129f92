package model

import "time"

// Category represents a transaction category.
type Category struct {
	CreatedAt time.Time
	Name      string
	ID        int64
	IsActive  bool
}

// Account represents a bank account transactions belong to.
type Account struct {
	CreatedAt   time.Time
	Name        string
	Type        string // checking, savings, credit
	Institution string
	ID          int64
	IsActive    bool
}

// Tag represents a user-defined label attachable to transactions.
type Tag struct {
	Name string
	ID   int64
}
