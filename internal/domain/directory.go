package domain

import (
	"github.com/uptrace/bun"
)

// Listing and User are owned by other services; this module only reads them.

type Listing struct {
	bun.BaseModel `bun:"table:listings"`

	ID          string   `bun:"id,pk" dynamodbav:"listingId" json:"id"`
	OwnerID     string   `bun:"owner_id,notnull" dynamodbav:"ownerId" json:"owner_id"`
	Name        string   `bun:"name,notnull" dynamodbav:"name" json:"name"`
	Description string   `bun:"description" dynamodbav:"description,omitempty" json:"description,omitempty"`
	Address     string   `bun:"address" dynamodbav:"address,omitempty" json:"address,omitempty"`
	ImageURLs   []string `bun:"image_urls,array" dynamodbav:"imageUrls,omitempty" json:"image_urls,omitempty"`
}

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID       string `bun:"id,pk" dynamodbav:"userId" json:"id"`
	Username string `bun:"username,notnull" dynamodbav:"username" json:"username"`
	Email    string `bun:"email" dynamodbav:"email,omitempty" json:"email,omitempty"`
	Avatar   string `bun:"avatar" dynamodbav:"avatar,omitempty" json:"avatar,omitempty"`
}
