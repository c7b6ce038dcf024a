package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TemplateReference points from a question row to a document placed under
// the question's template subfolder. The remote item id is the only stable
// handle; paths change on rename.
type TemplateReference struct {
	FileName   string     `json:"file_name"`
	FileID     string     `json:"file_id"`
	UploadedAt *time.Time `json:"uploaded_at,omitempty"`
}

// Valid reports whether the reference is persistable. References missing
// either the name or the remote id are dropped during filtering.
func (t TemplateReference) Valid() bool {
	return t.FileName != "" && t.FileID != ""
}

// TemplateList is the serialized JSON form of a question's template
// references, stored in the questions.templates text column.
type TemplateList []TemplateReference

// Valid returns only the references with both file name and remote id set.
func (l TemplateList) Valid() TemplateList {
	out := make(TemplateList, 0, len(l))
	for _, ref := range l {
		if ref.Valid() {
			out = append(out, ref)
		}
	}
	return out
}

// Value implements driver.Valuer for the templates JSON column.
func (l TemplateList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal templates: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner for the templates JSON column.
func (l *TemplateList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = TemplateList{}
		return nil
	case []byte:
		return l.scanBytes(v)
	case string:
		return l.scanBytes([]byte(v))
	default:
		return fmt.Errorf("unsupported templates column type %T", src)
	}
}

func (l *TemplateList) scanBytes(raw []byte) error {
	if len(raw) == 0 {
		*l = TemplateList{}
		return nil
	}
	if err := json.Unmarshal(raw, l); err != nil {
		return fmt.Errorf("unmarshal templates: %w", err)
	}
	return nil
}

// Question is one onboarding question belonging to a client, identified by
// a stable numeric id. Its sanitized text names the remote question folder.
type Question struct {
	ID        int64        `db:"id" json:"id"`
	LoginKey  string       `db:"login_key" json:"login_key"`
	Text      string       `db:"question" json:"question"`
	Templates TemplateList `db:"templates" json:"templates"`
	SortOrder int          `db:"sort_order" json:"sort_order"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}
