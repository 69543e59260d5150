package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rentalhub/rentalhub-be/internal/models"
	"github.com/rentalhub/rentalhub-be/internal/storage"
)

// CreateProperty inserts a listing. Deposits on owner-listed properties are
// forced to zero: direct deals carry no platform-mediated deposit.
func (s *Store) CreateProperty(ctx context.Context, p models.Property) (models.Property, error) {
	if p.ListerKind == models.RoleOwner {
		p.Deposit = 0
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO properties (title, location, lister_id, lister_kind, deposit)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		p.Title, p.Location, p.ListerID, string(p.ListerKind), p.Deposit)
	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return models.Property{}, fmt.Errorf("insert property: %w", err)
	}
	return p, nil
}

// GetProperty fetches a listing by id.
func (s *Store) GetProperty(ctx context.Context, id int64) (models.Property, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, title, location, lister_id, lister_kind, deposit, created_at
		 FROM properties WHERE id = $1`, id)

	var p models.Property
	var kind string
	if err := row.Scan(&p.ID, &p.Title, &p.Location, &p.ListerID, &kind, &p.Deposit, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Property{}, storage.ErrNotFound
		}
		return models.Property{}, fmt.Errorf("scan property: %w", err)
	}
	p.ListerKind = models.Role(kind)
	return p, nil
}
