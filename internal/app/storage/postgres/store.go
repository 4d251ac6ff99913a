// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studioshot/platform/internal/app/domain/credit"
	"github.com/studioshot/platform/internal/app/domain/feedback"
	"github.com/studioshot/platform/internal/app/domain/generation"
	"github.com/studioshot/platform/internal/app/domain/person"
	"github.com/studioshot/platform/internal/app/domain/selfie"
	"github.com/studioshot/platform/internal/app/domain/team"
	"github.com/studioshot/platform/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.PersonStore = (*Store)(nil)
var _ storage.TeamStore = (*Store)(nil)
var _ storage.InviteStore = (*Store)(nil)
var _ storage.ContextStore = (*Store)(nil)
var _ storage.SelfieStore = (*Store)(nil)
var _ storage.GenerationStore = (*Store)(nil)
var _ storage.CreditStore = (*Store)(nil)
var _ storage.FeedbackStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- PersonStore ------------------------------------------------------------

func (s *Store) CreatePerson(ctx context.Context, p person.Person) (person.Person, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO persons (id, email, name, password_hash, role, team_id, brand, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.Email, p.Name, p.PasswordHash, p.Role, toNullString(p.TeamID), p.Brand, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return person.Person{}, err
	}
	return p, nil
}

func (s *Store) UpdatePerson(ctx context.Context, p person.Person) (person.Person, error) {
	existing, err := s.GetPerson(ctx, p.ID)
	if err != nil {
		return person.Person{}, err
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE persons
		SET email = $2, name = $3, password_hash = $4, role = $5, team_id = $6, brand = $7, updated_at = $8
		WHERE id = $1
	`, p.ID, p.Email, p.Name, p.PasswordHash, p.Role, toNullString(p.TeamID), p.Brand, p.UpdatedAt)
	if err != nil {
		return person.Person{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return person.Person{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *Store) GetPerson(ctx context.Context, id string) (person.Person, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, role, team_id, brand, created_at, updated_at
		FROM persons
		WHERE id = $1
	`, id)
	return scanPerson(row)
}

func (s *Store) GetPersonByEmail(ctx context.Context, email string) (person.Person, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, role, team_id, brand, created_at, updated_at
		FROM persons
		WHERE lower(email) = lower($1)
	`, email)
	return scanPerson(row)
}

func (s *Store) ListPersons(ctx context.Context, teamID string) ([]person.Person, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, name, password_hash, role, team_id, brand, created_at, updated_at
		FROM persons
		WHERE $1 = '' OR team_id = $1
		ORDER BY created_at
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []person.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) DeletePerson(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM persons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPerson(row rowScanner) (person.Person, error) {
	var (
		p      person.Person
		teamID sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.Role, &teamID, &p.Brand, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return person.Person{}, err
	}
	if teamID.Valid {
		p.TeamID = teamID.String
	}
	return p, nil
}

// --- TeamStore --------------------------------------------------------------

func (s *Store) CreateTeam(ctx context.Context, t team.Team) (team.Team, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teams (id, name, admin_id, seats, brand, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.Name, t.AdminID, t.Seats, t.Brand, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return team.Team{}, err
	}
	return t, nil
}

func (s *Store) UpdateTeam(ctx context.Context, t team.Team) (team.Team, error) {
	existing, err := s.GetTeam(ctx, t.ID)
	if err != nil {
		return team.Team{}, err
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE teams
		SET name = $2, admin_id = $3, seats = $4, brand = $5, updated_at = $6
		WHERE id = $1
	`, t.ID, t.Name, t.AdminID, t.Seats, t.Brand, t.UpdatedAt)
	if err != nil {
		return team.Team{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return team.Team{}, sql.ErrNoRows
	}
	return t, nil
}

func (s *Store) GetTeam(ctx context.Context, id string) (team.Team, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, admin_id, seats, brand, created_at, updated_at
		FROM teams
		WHERE id = $1
	`, id)

	var t team.Team
	if err := row.Scan(&t.ID, &t.Name, &t.AdminID, &t.Seats, &t.Brand, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return team.Team{}, err
	}
	return t, nil
}

func (s *Store) ListTeams(ctx context.Context) ([]team.Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, admin_id, seats, brand, created_at, updated_at
		FROM teams
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []team.Team
	for rows.Next() {
		var t team.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.AdminID, &t.Seats, &t.Brand, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// --- InviteStore ------------------------------------------------------------

func (s *Store) CreateInvite(ctx context.Context, inv team.Invite) (team.Invite, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO team_invites (id, team_id, email, token, status, expires_at, accepted_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, inv.ID, inv.TeamID, inv.Email, inv.Token, inv.Status, inv.ExpiresAt, toNullString(inv.AcceptedBy), inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return team.Invite{}, err
	}
	return inv, nil
}

func (s *Store) UpdateInvite(ctx context.Context, inv team.Invite) (team.Invite, error) {
	existing, err := s.GetInvite(ctx, inv.ID)
	if err != nil {
		return team.Invite{}, err
	}
	inv.TeamID = existing.TeamID
	inv.CreatedAt = existing.CreatedAt
	inv.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE team_invites
		SET email = $2, token = $3, status = $4, expires_at = $5, accepted_by = $6, updated_at = $7
		WHERE id = $1
	`, inv.ID, inv.Email, inv.Token, inv.Status, inv.ExpiresAt, toNullString(inv.AcceptedBy), inv.UpdatedAt)
	if err != nil {
		return team.Invite{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return team.Invite{}, sql.ErrNoRows
	}
	return inv, nil
}

func (s *Store) GetInvite(ctx context.Context, id string) (team.Invite, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, team_id, email, token, status, expires_at, accepted_by, created_at, updated_at
		FROM team_invites
		WHERE id = $1
	`, id)
	return scanInvite(row)
}

func (s *Store) GetInviteByToken(ctx context.Context, token string) (team.Invite, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, team_id, email, token, status, expires_at, accepted_by, created_at, updated_at
		FROM team_invites
		WHERE token = $1
	`, token)
	return scanInvite(row)
}

func (s *Store) ListInvites(ctx context.Context, teamID string) ([]team.Invite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, email, token, status, expires_at, accepted_by, created_at, updated_at
		FROM team_invites
		WHERE $1 = '' OR team_id = $1
		ORDER BY created_at
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvites(rows)
}

func (s *Store) ListPendingInvites(ctx context.Context) ([]team.Invite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, email, token, status, expires_at, accepted_by, created_at, updated_at
		FROM team_invites
		WHERE status = 'pending'
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvites(rows)
}

func scanInvite(row rowScanner) (team.Invite, error) {
	var (
		inv        team.Invite
		acceptedBy sql.NullString
	)
	if err := row.Scan(&inv.ID, &inv.TeamID, &inv.Email, &inv.Token, &inv.Status, &inv.ExpiresAt, &acceptedBy, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return team.Invite{}, err
	}
	if acceptedBy.Valid {
		inv.AcceptedBy = acceptedBy.String
	}
	return inv, nil
}

func collectInvites(rows *sql.Rows) ([]team.Invite, error) {
	var result []team.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

// --- ContextStore -----------------------------------------------------------

func (s *Store) CreateBrandContext(ctx context.Context, bc team.BrandContext) (team.BrandContext, error) {
	if bc.TeamID == "" {
		return team.BrandContext{}, errors.New("team_id required")
	}
	if bc.ID == "" {
		bc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	bc.CreatedAt = now
	bc.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO brand_contexts (id, team_id, name, logo_key, background, clothing, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, bc.ID, bc.TeamID, bc.Name, bc.LogoKey, bc.Background, bc.Clothing, bc.CreatedAt, bc.UpdatedAt)
	if err != nil {
		return team.BrandContext{}, err
	}
	return bc, nil
}

func (s *Store) UpdateBrandContext(ctx context.Context, bc team.BrandContext) (team.BrandContext, error) {
	existing, err := s.GetBrandContext(ctx, bc.ID)
	if err != nil {
		return team.BrandContext{}, err
	}
	bc.TeamID = existing.TeamID
	bc.CreatedAt = existing.CreatedAt
	bc.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE brand_contexts
		SET name = $2, logo_key = $3, background = $4, clothing = $5, updated_at = $6
		WHERE id = $1
	`, bc.ID, bc.Name, bc.LogoKey, bc.Background, bc.Clothing, bc.UpdatedAt)
	if err != nil {
		return team.BrandContext{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return team.BrandContext{}, sql.ErrNoRows
	}
	return bc, nil
}

func (s *Store) GetBrandContext(ctx context.Context, id string) (team.BrandContext, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, team_id, name, logo_key, background, clothing, created_at, updated_at
		FROM brand_contexts
		WHERE id = $1
	`, id)

	var bc team.BrandContext
	if err := row.Scan(&bc.ID, &bc.TeamID, &bc.Name, &bc.LogoKey, &bc.Background, &bc.Clothing, &bc.CreatedAt, &bc.UpdatedAt); err != nil {
		return team.BrandContext{}, err
	}
	return bc, nil
}

func (s *Store) ListBrandContexts(ctx context.Context, teamID string) ([]team.BrandContext, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, name, logo_key, background, clothing, created_at, updated_at
		FROM brand_contexts
		WHERE $1 = '' OR team_id = $1
		ORDER BY created_at
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []team.BrandContext
	for rows.Next() {
		var bc team.BrandContext
		if err := rows.Scan(&bc.ID, &bc.TeamID, &bc.Name, &bc.LogoKey, &bc.Background, &bc.Clothing, &bc.CreatedAt, &bc.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, bc)
	}
	return result, rows.Err()
}

func (s *Store) DeleteBrandContext(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM brand_contexts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- SelfieStore ------------------------------------------------------------

func (s *Store) CreateSelfie(ctx context.Context, sf selfie.Selfie) (selfie.Selfie, error) {
	if sf.PersonID == "" {
		return selfie.Selfie{}, errors.New("person_id required")
	}
	if sf.ID == "" {
		sf.ID = uuid.NewString()
	}
	sf.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO selfies (id, person_id, object_key, content_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sf.ID, sf.PersonID, sf.ObjectKey, sf.ContentType, sf.SizeBytes, sf.CreatedAt)
	if err != nil {
		return selfie.Selfie{}, err
	}
	return sf, nil
}

func (s *Store) GetSelfie(ctx context.Context, id string) (selfie.Selfie, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, person_id, object_key, content_type, size_bytes, created_at
		FROM selfies
		WHERE id = $1
	`, id)

	var sf selfie.Selfie
	if err := row.Scan(&sf.ID, &sf.PersonID, &sf.ObjectKey, &sf.ContentType, &sf.SizeBytes, &sf.CreatedAt); err != nil {
		return selfie.Selfie{}, err
	}
	return sf, nil
}

func (s *Store) ListSelfies(ctx context.Context, personID string) ([]selfie.Selfie, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, object_key, content_type, size_bytes, created_at
		FROM selfies
		WHERE $1 = '' OR person_id = $1
		ORDER BY created_at
	`, personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []selfie.Selfie
	for rows.Next() {
		var sf selfie.Selfie
		if err := rows.Scan(&sf.ID, &sf.PersonID, &sf.ObjectKey, &sf.ContentType, &sf.SizeBytes, &sf.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, sf)
	}
	return result, rows.Err()
}

func (s *Store) DeleteSelfie(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM selfies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- GenerationStore --------------------------------------------------------

func (s *Store) CreateGeneration(ctx context.Context, g generation.Generation) (generation.Generation, error) {
	if g.PersonID == "" {
		return generation.Generation{}, errors.New("person_id required")
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now

	resultsJSON, err := json.Marshal(g.ResultKeys)
	if err != nil {
		return generation.Generation{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO generations (id, person_id, team_id, group_id, regeneration, context_id, style, status,
			composite_key, result_keys, error, credit_source, brand, created_at, updated_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, g.ID, g.PersonID, toNullString(g.TeamID), g.GroupID, g.Regeneration, toNullString(g.ContextID), g.Style, g.Status,
		g.CompositeKey, resultsJSON, g.Error, g.CreditSource, g.Brand, g.CreatedAt, g.UpdatedAt, toNullTime(g.StartedAt), toNullTime(g.CompletedAt))
	if err != nil {
		return generation.Generation{}, err
	}
	return g, nil
}

func (s *Store) UpdateGeneration(ctx context.Context, g generation.Generation) (generation.Generation, error) {
	existing, err := s.GetGeneration(ctx, g.ID)
	if err != nil {
		return generation.Generation{}, err
	}
	g.PersonID = existing.PersonID
	g.GroupID = existing.GroupID
	g.CreatedAt = existing.CreatedAt
	g.UpdatedAt = time.Now().UTC()

	resultsJSON, err := json.Marshal(g.ResultKeys)
	if err != nil {
		return generation.Generation{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE generations
		SET team_id = $2, regeneration = $3, context_id = $4, style = $5, status = $6, composite_key = $7,
			result_keys = $8, error = $9, credit_source = $10, brand = $11, updated_at = $12, started_at = $13, completed_at = $14
		WHERE id = $1
	`, g.ID, toNullString(g.TeamID), g.Regeneration, toNullString(g.ContextID), g.Style, g.Status, g.CompositeKey,
		resultsJSON, g.Error, g.CreditSource, g.Brand, g.UpdatedAt, toNullTime(g.StartedAt), toNullTime(g.CompletedAt))
	if err != nil {
		return generation.Generation{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return generation.Generation{}, sql.ErrNoRows
	}
	return g, nil
}

func (s *Store) GetGeneration(ctx context.Context, id string) (generation.Generation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, person_id, team_id, group_id, regeneration, context_id, style, status, composite_key,
			result_keys, error, credit_source, brand, created_at, updated_at, started_at, completed_at
		FROM generations
		WHERE id = $1
	`, id)
	return scanGeneration(row)
}

func (s *Store) ListGenerations(ctx context.Context, personID string) ([]generation.Generation, error) {
	return s.queryGenerations(ctx, `WHERE $1 = '' OR person_id = $1`, personID)
}

func (s *Store) ListTeamGenerations(ctx context.Context, teamID string) ([]generation.Generation, error) {
	return s.queryGenerations(ctx, `WHERE team_id = $1`, teamID)
}

func (s *Store) ListGroupGenerations(ctx context.Context, groupID string) ([]generation.Generation, error) {
	return s.queryGenerations(ctx, `WHERE group_id = $1`, groupID)
}

func (s *Store) ListPendingGenerations(ctx context.Context) ([]generation.Generation, error) {
	return s.queryGenerations(ctx, `WHERE status = 'pending'`)
}

func (s *Store) ListProcessingGenerations(ctx context.Context) ([]generation.Generation, error) {
	return s.queryGenerations(ctx, `WHERE status = 'processing'`)
}

func (s *Store) queryGenerations(ctx context.Context, where string, args ...interface{}) ([]generation.Generation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, team_id, group_id, regeneration, context_id, style, status, composite_key,
			result_keys, error, credit_source, brand, created_at, updated_at, started_at, completed_at
		FROM generations
	`+where+`
		ORDER BY created_at
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []generation.Generation
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func scanGeneration(row rowScanner) (generation.Generation, error) {
	var (
		g           generation.Generation
		teamID      sql.NullString
		contextID   sql.NullString
		resultsRaw  []byte
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	if err := row.Scan(&g.ID, &g.PersonID, &teamID, &g.GroupID, &g.Regeneration, &contextID, &g.Style, &g.Status,
		&g.CompositeKey, &resultsRaw, &g.Error, &g.CreditSource, &g.Brand, &g.CreatedAt, &g.UpdatedAt, &startedAt, &completedAt); err != nil {
		return generation.Generation{}, err
	}
	if teamID.Valid {
		g.TeamID = teamID.String
	}
	if contextID.Valid {
		g.ContextID = contextID.String
	}
	if len(resultsRaw) > 0 {
		if err := json.Unmarshal(resultsRaw, &g.ResultKeys); err != nil {
			return generation.Generation{}, fmt.Errorf("decode result keys for generation %s: %w", g.ID, err)
		}
	}
	if startedAt.Valid {
		g.StartedAt = startedAt.Time.UTC()
	}
	if completedAt.Valid {
		g.CompletedAt = completedAt.Time.UTC()
	}
	return g, nil
}

// --- CreditStore ------------------------------------------------------------

func (s *Store) CreateCreditTransaction(ctx context.Context, tx credit.Transaction) (credit.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_transactions (id, source_type, source_id, amount, kind, generation_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, tx.ID, tx.SourceType, tx.SourceID, tx.Amount, tx.Kind, toNullString(tx.GenerationID), tx.Note, tx.CreatedAt)
	if err != nil {
		return credit.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) ConsumeCredit(ctx context.Context, sourceType credit.SourceType, sourceID, generationID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	// Concurrent charges against the same balance serialize on an advisory
	// lock; without it two transactions could both read a sufficient balance
	// before either consume row commits.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`,
		string(sourceType)+":"+sourceID); err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO credit_transactions (id, source_type, source_id, amount, kind, generation_id, note, created_at)
		SELECT $1, $2, $3, -1, 'consume', $4, '', $5
		WHERE (
			SELECT COALESCE(SUM(amount), 0) FROM credit_transactions
			WHERE source_type = $2 AND source_id = $3
		) >= 1
	`, uuid.NewString(), sourceType, sourceID, toNullString(generationID), time.Now().UTC())
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}
	return true, tx.Commit()
}

func (s *Store) RefundGenerationCredit(ctx context.Context, generationID string) (bool, error) {
	// The partial unique index on refund rows makes the write idempotent
	// even when two callers pass the NOT EXISTS check concurrently.
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_transactions (id, source_type, source_id, amount, kind, generation_id, note, created_at)
		SELECT $1, c.source_type, c.source_id, -c.amount, 'refund', c.generation_id, '', $3
		FROM credit_transactions c
		WHERE c.generation_id = $2 AND c.kind = 'consume'
			AND NOT EXISTS (
				SELECT 1 FROM credit_transactions r
				WHERE r.generation_id = $2 AND r.kind = 'refund'
			)
		ON CONFLICT (generation_id) WHERE kind = 'refund' DO NOTHING
	`, uuid.NewString(), generationID, time.Now().UTC())
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *Store) ListCreditTransactions(ctx context.Context, sourceType credit.SourceType, sourceID string) ([]credit.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_type, source_id, amount, kind, generation_id, note, created_at
		FROM credit_transactions
		WHERE source_type = $1 AND source_id = $2
		ORDER BY created_at
	`, sourceType, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (s *Store) ListGenerationTransactions(ctx context.Context, generationID string) ([]credit.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_type, source_id, amount, kind, generation_id, note, created_at
		FROM credit_transactions
		WHERE generation_id = $1
		ORDER BY created_at
	`, generationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (s *Store) CreditBalance(ctx context.Context, sourceType credit.SourceType, sourceID string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM credit_transactions
		WHERE source_type = $1 AND source_id = $2
	`, sourceType, sourceID)

	var balance int64
	if err := row.Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

func collectTransactions(rows *sql.Rows) ([]credit.Transaction, error) {
	var result []credit.Transaction
	for rows.Next() {
		var (
			tx    credit.Transaction
			genID sql.NullString
		)
		if err := rows.Scan(&tx.ID, &tx.SourceType, &tx.SourceID, &tx.Amount, &tx.Kind, &genID, &tx.Note, &tx.CreatedAt); err != nil {
			return nil, err
		}
		if genID.Valid {
			tx.GenerationID = genID.String
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

// --- FeedbackStore ----------------------------------------------------------

func (s *Store) CreateFeedback(ctx context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	fb.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, person_id, rating, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, fb.ID, toNullString(fb.PersonID), fb.Rating, fb.Message, fb.CreatedAt)
	if err != nil {
		return feedback.Feedback{}, err
	}
	return fb, nil
}

func (s *Store) ListFeedback(ctx context.Context) ([]feedback.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, rating, message, created_at
		FROM feedback
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []feedback.Feedback
	for rows.Next() {
		var (
			fb       feedback.Feedback
			personID sql.NullString
		)
		if err := rows.Scan(&fb.ID, &personID, &fb.Rating, &fb.Message, &fb.CreatedAt); err != nil {
			return nil, err
		}
		if personID.Valid {
			fb.PersonID = personID.String
		}
		result = append(result, fb)
	}
	return result, rows.Err()
}

// Helpers ---------------------------------------------------------------------

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
