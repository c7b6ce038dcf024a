package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/harborfin/onboarding-api/internal/models"
)

// ClientRepository persists onboarding clients.
type ClientRepository struct {
	db *sqlx.DB
}

// NewClientRepository constructs the repository.
func NewClientRepository(db *sqlx.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// Create inserts a new client row.
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	const query = `INSERT INTO clients (login_key, client_name, contact_email, folder_id, created_at, updated_at)
VALUES (:login_key, :client_name, :contact_email, :folder_id, :created_at, :updated_at)`
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now
	if _, err := r.db.NamedExecContext(ctx, query, client); err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// FindByLoginKey fetches one client by its loginKey.
func (r *ClientRepository) FindByLoginKey(ctx context.Context, loginKey string) (*models.Client, error) {
	const query = `SELECT login_key, client_name, contact_email, folder_id, created_at, updated_at
FROM clients WHERE login_key = $1`
	var client models.Client
	if err := r.db.GetContext(ctx, &client, query, loginKey); err != nil {
		return nil, err
	}
	return &client, nil
}

// List returns clients matching the filter, newest first.
func (r *ClientRepository) List(ctx context.Context, filter models.ClientFilter) ([]models.Client, int, error) {
	where := ""
	args := []interface{}{}
	if filter.Search != "" {
		where = "WHERE client_name ILIKE $1"
		args = append(args, "%"+filter.Search+"%")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM clients %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	query := fmt.Sprintf(`SELECT login_key, client_name, contact_email, folder_id, created_at, updated_at
FROM clients %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, where, pageSize, (page-1)*pageSize)

	var clients []models.Client
	if err := r.db.SelectContext(ctx, &clients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	return clients, total, nil
}

// Update edits client master data.
func (r *ClientRepository) Update(ctx context.Context, client *models.Client) error {
	const query = `UPDATE clients SET client_name = :client_name, contact_email = :contact_email,
folder_id = :folder_id, updated_at = :updated_at WHERE login_key = :login_key`
	client.UpdatedAt = time.Now().UTC()
	result, err := r.db.NamedExecContext(ctx, query, client)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update client %s: no rows affected", client.LoginKey)
	}
	return nil
}

// Delete removes a client row. Question rows cascade via FK.
func (r *ClientRepository) Delete(ctx context.Context, loginKey string) error {
	const query = `DELETE FROM clients WHERE login_key = $1`
	if _, err := r.db.ExecContext(ctx, query, loginKey); err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	return nil
}
