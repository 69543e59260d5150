package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rentalhub/rentalhub-be/internal/models"
	"github.com/rentalhub/rentalhub-be/internal/storage"
)

// CreateActor inserts an account into the partition named by its role. The
// email is also reserved in account_emails inside the same transaction, so
// uniqueness holds across all four partitions regardless of any prior
// read-then-write check.
func (s *Store) CreateActor(ctx context.Context, actor models.Actor) (models.Actor, error) {
	if !actor.Role.Valid() {
		return models.Actor{}, fmt.Errorf("create actor: unknown role %q", actor.Role)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Actor{}, fmt.Errorf("create actor: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO account_emails (email, role) VALUES ($1, $2)`,
		actor.Email, string(actor.Role),
	); err != nil {
		if isUniqueViolation(err) {
			return models.Actor{}, storage.ErrAlreadyExists
		}
		return models.Actor{}, fmt.Errorf("reserve email: %w", err)
	}

	var row pgx.Row
	switch actor.Role {
	case models.RoleTenant:
		row = tx.QueryRow(ctx,
			`INSERT INTO tenants (name, email, phone, location, password_hash)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at`,
			actor.Name, actor.Email, actor.Phone, actor.Location, actor.PasswordHash)
	case models.RoleOwner, models.RoleBroker:
		row = tx.QueryRow(ctx,
			fmt.Sprintf(`INSERT INTO %s (name, email, phone, location, password_hash)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at`, partitionTable(actor.Role)),
			actor.Name, actor.Email, actor.Phone, actor.Location, actor.PasswordHash)
	case models.RoleAdmin:
		row = tx.QueryRow(ctx,
			`INSERT INTO admins (name, email, phone, location, password_hash)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at`,
			actor.Name, actor.Email, actor.Phone, actor.Location, actor.PasswordHash)
	}

	if err := row.Scan(&actor.ID, &actor.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return models.Actor{}, storage.ErrAlreadyExists
		}
		return models.Actor{}, fmt.Errorf("insert %s: %w", actor.Role, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Actor{}, fmt.Errorf("create actor: commit: %w", err)
	}
	return actor, nil
}

// GetActor looks up id in the partition named by role. A miss is a miss:
// there is no fallback to any other partition.
func (s *Store) GetActor(ctx context.Context, role models.Role, id int64) (models.Actor, error) {
	if !role.Valid() {
		return models.Actor{}, storage.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, selectActorQuery(role)+` WHERE id = $1`, id)
	return scanActor(row, role)
}

// FindActorByEmail scans all four partitions in a fixed order. Only credential
// flows use this; global uniqueness itself is enforced by account_emails.
func (s *Store) FindActorByEmail(ctx context.Context, email string) (models.Actor, error) {
	for _, role := range []models.Role{models.RoleTenant, models.RoleOwner, models.RoleBroker, models.RoleAdmin} {
		row := s.pool.QueryRow(ctx, selectActorQuery(role)+` WHERE email = $1`, email)
		actor, err := scanActor(row, role)
		if err == nil {
			return actor, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return models.Actor{}, err
		}
	}
	return models.Actor{}, storage.ErrNotFound
}

// ListBrokers returns every broker account.
func (s *Store) ListBrokers(ctx context.Context) ([]models.Actor, error) {
	rows, err := s.pool.Query(ctx, selectActorQuery(models.RoleBroker)+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list brokers: %w", err)
	}
	defer rows.Close()

	var brokers []models.Actor
	for rows.Next() {
		broker, err := scanActor(rows, models.RoleBroker)
		if err != nil {
			return nil, err
		}
		brokers = append(brokers, broker)
	}
	return brokers, rows.Err()
}

// HireBroker points the tenant at the broker and records the tenant in the
// broker's client set, in one transaction.
func (s *Store) HireBroker(ctx context.Context, tenantID, brokerID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("hire broker: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE tenants SET hired_broker = $1 WHERE id = $2`, brokerID, tenantID)
	if err != nil {
		return fmt.Errorf("hire broker: update tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO broker_clients (broker_id, tenant_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		brokerID, tenantID,
	); err != nil {
		return fmt.Errorf("hire broker: add client: %w", err)
	}
	return tx.Commit(ctx)
}

// ListBrokerClients returns the tenants in a broker's client set.
func (s *Store) ListBrokerClients(ctx context.Context, brokerID int64) ([]models.Actor, error) {
	rows, err := s.pool.Query(ctx,
		selectActorQuery(models.RoleTenant)+
			` JOIN broker_clients bc ON bc.tenant_id = t.id WHERE bc.broker_id = $1 ORDER BY t.id`,
		brokerID)
	if err != nil {
		return nil, fmt.Errorf("list broker clients: %w", err)
	}
	defer rows.Close()

	var clients []models.Actor
	for rows.Next() {
		tenant, err := scanActor(rows, models.RoleTenant)
		if err != nil {
			return nil, err
		}
		clients = append(clients, tenant)
	}
	return clients, rows.Err()
}

func partitionTable(role models.Role) string {
	switch role {
	case models.RoleTenant:
		return "tenants"
	case models.RoleOwner:
		return "owners"
	case models.RoleBroker:
		return "brokers"
	default:
		return "admins"
	}
}

// selectActorQuery builds a partition-specific projection. Columns that a
// partition does not carry are selected as constants so every actor scans
// through the same code path. The tenants query aliases the table as t for
// the broker_clients join.
func selectActorQuery(role models.Role) string {
	switch role {
	case models.RoleTenant:
		return `SELECT t.id, t.name, t.email, t.phone, t.location, FALSE, t.hired_broker, t.password_hash, t.created_at FROM tenants t`
	case models.RoleOwner:
		return `SELECT id, name, email, phone, location, is_verified, NULL::BIGINT, password_hash, created_at FROM owners`
	case models.RoleBroker:
		return `SELECT id, name, email, phone, location, is_verified, NULL::BIGINT, password_hash, created_at FROM brokers`
	default:
		return `SELECT id, name, email, phone, location, FALSE, NULL::BIGINT, password_hash, created_at FROM admins`
	}
}

func scanActor(row pgx.Row, role models.Role) (models.Actor, error) {
	actor := models.Actor{Role: role}
	if err := row.Scan(&actor.ID, &actor.Name, &actor.Email, &actor.Phone, &actor.Location,
		&actor.Verified, &actor.HiredBroker, &actor.PasswordHash, &actor.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Actor{}, storage.ErrNotFound
		}
		return models.Actor{}, fmt.Errorf("scan %s: %w", role, err)
	}
	return actor, nil
}
