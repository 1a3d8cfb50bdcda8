package entity

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user for data transfer between layers.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsSubscribed bool      `json:"is_subscribed"`
	CreatedAt    time.Time `json:"-"`
}

// Subscription is a user following an author, with the author's recipe count.
type Subscription struct {
	Author       User `json:"author"`
	RecipesCount int  `json:"recipes_count"`
}
