package models

import "time"

// Client is an onboarding client stored in the clients table. The loginKey
// — not the display name — anchors the client's remote folder tree, because
// names can collide or be edited.
type Client struct {
	LoginKey     string    `db:"login_key" json:"login_key"`
	ClientName   string    `db:"client_name" json:"client_name"`
	ContactEmail string    `db:"contact_email" json:"contact_email"`
	FolderID     string    `db:"folder_id" json:"folder_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClientFilter captures listing criteria for clients.
type ClientFilter struct {
	Search   string
	Page     int
	PageSize int
}
