package dto

// CreateClientRequest creates a client plus its initial question set.
type CreateClientRequest struct {
	ClientName   string   `json:"client_name" binding:"required" validate:"required,min=1,max=200"`
	ContactEmail string   `json:"contact_email" validate:"omitempty,email"`
	Questions    []string `json:"questions"`
}

// UpdateClientRequest edits client master data. Renaming a client does not
// move its folder tree; the loginKey anchors the remote path.
type UpdateClientRequest struct {
	ClientName   string `json:"client_name" validate:"required,min=1,max=200"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
}
