package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"trustlink/internal/attestation/models"
	id "trustlink/pkg/domain"
	"trustlink/pkg/platform/sentinel"
)

// Schema creates the registry tables. Index rows carry a dense position per
// (kind, owner) list, assigned inside the appending transaction, so an entry
// keeps its position once committed.
const Schema = `
CREATE TABLE IF NOT EXISTS registry_admin (
	singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
	address   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS registry_issuers (
	address TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS attestations (
	id         TEXT PRIMARY KEY,
	issuer     TEXT NOT NULL,
	subject    TEXT NOT NULL,
	claim_type TEXT NOT NULL,
	issued_at  TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NULL,
	revoked    BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS attestation_index (
	kind           TEXT NOT NULL,
	owner          TEXT NOT NULL,
	position       BIGINT NOT NULL,
	attestation_id TEXT NOT NULL REFERENCES attestations (id),
	PRIMARY KEY (kind, owner, position)
);
`

// Postgres error codes the store reacts to.
const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists the registry in PostgreSQL. Units of work run at
// SERIALIZABLE isolation and are re-run on serialization failures. COMMIT
// and the unit's commit hooks run under commitMu so hooks fire in commit
// order.
type Postgres struct {
	db         *sql.DB
	maxRetries int
	commitMu   sync.Mutex
}

// PostgresOption configures a Postgres store.
type PostgresOption func(*Postgres)

// WithPostgresMaxRetries bounds re-runs after serialization failures.
func WithPostgresMaxRetries(n int) PostgresOption {
	return func(s *Postgres) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed registry store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	s := &Postgres{db: db, maxRetries: defaultMaxRetries}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Migrate applies Schema. It is idempotent.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply registry schema: %w", err)
	}
	return nil
}

func (s *Postgres) Admin(ctx context.Context) (id.Address, error) {
	admin, err := pgAdmin(ctx, s.db)
	return admin, markUnavailable(err)
}

func (s *Postgres) IsIssuer(ctx context.Context, address id.Address) (bool, error) {
	ok, err := pgIsIssuer(ctx, s.db, address)
	return ok, markUnavailable(err)
}

func (s *Postgres) FindByID(ctx context.Context, attestationID id.AttestationID) (*models.Attestation, error) {
	a, err := pgFindByID(ctx, s.db, attestationID)
	return a, markUnavailable(err)
}

func (s *Postgres) FindByIDs(ctx context.Context, ids []id.AttestationID) ([]*models.Attestation, error) {
	records, err := pgFindByIDs(ctx, s.db, ids)
	return records, markUnavailable(err)
}

func (s *Postgres) ListIndex(ctx context.Context, kind models.IndexKind, owner id.Address, start, limit int) ([]id.AttestationID, error) {
	ids, err := pgListIndex(ctx, s.db, kind, owner, start, limit)
	return ids, markUnavailable(err)
}

func (s *Postgres) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	return retryConflicts(ctx, s.maxRetries, func() error {
		sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return markUnavailable(fmt.Errorf("begin tx: %w", err))
		}
		tx := &postgresTx{tx: sqlTx}
		if err := fn(tx); err != nil {
			_ = sqlTx.Rollback()
			return classifyPostgresErr(err)
		}
		return s.commit(tx)
	})
}

func (s *Postgres) commit(tx *postgresTx) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if err := tx.tx.Commit(); err != nil {
		return classifyPostgresErr(fmt.Errorf("commit tx: %w", err))
	}
	for _, hook := range tx.hooks {
		hook()
	}
	return nil
}

// classifyPostgresErr turns retryable Postgres failures into sentinel.ErrConflict.
// A unique violation that reaches here is a lost race for an index position;
// record id collisions are reported by Create before this point.
func classifyPostgresErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqSerializationFailure, pqDeadlockDetected, pqUniqueViolation:
			return sentinel.ErrConflict
		}
	}
	return markUnavailable(err)
}

type postgresTx struct {
	tx    *sql.Tx
	hooks []func()
}

func (t *postgresTx) OnCommit(fn func()) {
	t.hooks = append(t.hooks, fn)
}

func (t *postgresTx) Admin(ctx context.Context) (id.Address, error) {
	return pgAdmin(ctx, t.tx)
}

func (t *postgresTx) IsIssuer(ctx context.Context, address id.Address) (bool, error) {
	return pgIsIssuer(ctx, t.tx, address)
}

func (t *postgresTx) FindByID(ctx context.Context, attestationID id.AttestationID) (*models.Attestation, error) {
	return pgFindByID(ctx, t.tx, attestationID)
}

func (t *postgresTx) FindByIDs(ctx context.Context, ids []id.AttestationID) ([]*models.Attestation, error) {
	return pgFindByIDs(ctx, t.tx, ids)
}

func (t *postgresTx) ListIndex(ctx context.Context, kind models.IndexKind, owner id.Address, start, limit int) ([]id.AttestationID, error) {
	return pgListIndex(ctx, t.tx, kind, owner, start, limit)
}

func (t *postgresTx) SetAdmin(ctx context.Context, admin id.Address) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO registry_admin (singleton, address) VALUES (TRUE, $1)
		ON CONFLICT (singleton) DO UPDATE SET address = EXCLUDED.address
	`, admin.String())
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	return nil
}

func (t *postgresTx) AddIssuer(ctx context.Context, address id.Address) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO registry_issuers (address) VALUES ($1) ON CONFLICT (address) DO NOTHING`,
		address.String())
	if err != nil {
		return fmt.Errorf("add issuer: %w", err)
	}
	return nil
}

func (t *postgresTx) RemoveIssuer(ctx context.Context, address id.Address) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM registry_issuers WHERE address = $1`, address.String()); err != nil {
		return fmt.Errorf("remove issuer: %w", err)
	}
	return nil
}

func (t *postgresTx) Create(ctx context.Context, a *models.Attestation) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO attestations (id, issuer, subject, claim_type, issued_at, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID.String(), a.Issuer.String(), a.Subject.String(), a.ClaimType.String(), a.Timestamp, nullTime(a.Expiration), a.Revoked)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert attestation: %w", err)
	}
	return nil
}

// Update only ever changes the revoked flag; the other columns are immutable.
func (t *postgresTx) Update(ctx context.Context, a *models.Attestation) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE attestations SET revoked = $2 WHERE id = $1`, a.ID.String(), a.Revoked)
	if err != nil {
		return fmt.Errorf("update attestation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update attestation: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (t *postgresTx) AppendIndex(ctx context.Context, kind models.IndexKind, owner id.Address, attestationID id.AttestationID) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO attestation_index (kind, owner, position, attestation_id)
		SELECT $1, $2, COALESCE(MAX(position), -1) + 1, $3
		FROM attestation_index
		WHERE kind = $1 AND owner = $2
	`, kind.String(), owner.String(), attestationID.String())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append %s index: %w", kind, err)
	}
	return nil
}

func pgAdmin(ctx context.Context, q queryer) (id.Address, error) {
	var address string
	err := q.QueryRowContext(ctx, `SELECT address FROM registry_admin WHERE singleton`).Scan(&address)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read admin: %w", err)
	}
	return id.Address(address), nil
}

func pgIsIssuer(ctx context.Context, q queryer, address id.Address) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registry_issuers WHERE address = $1)`, address.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("read issuer: %w", err)
	}
	return exists, nil
}

const selectAttestation = `SELECT id, issuer, subject, claim_type, issued_at, expires_at, revoked FROM attestations`

func pgFindByID(ctx context.Context, q queryer, attestationID id.AttestationID) (*models.Attestation, error) {
	row := q.QueryRowContext(ctx, selectAttestation+` WHERE id = $1`, attestationID.String())
	a, err := scanAttestation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find attestation: %w", err)
	}
	return a, nil
}

// pgFindByIDs loads a page in one round trip and restores the requested order.
func pgFindByIDs(ctx context.Context, q queryer, ids []id.AttestationID) ([]*models.Attestation, error) {
	if len(ids) == 0 {
		return []*models.Attestation{}, nil
	}
	keys := make([]string, len(ids))
	for i, attestationID := range ids {
		keys[i] = attestationID.String()
	}
	rows, err := q.QueryContext(ctx, selectAttestation+` WHERE id = ANY($1)`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("find attestations: %w", err)
	}
	defer rows.Close()

	byID := make(map[id.AttestationID]*models.Attestation, len(ids))
	for rows.Next() {
		a, err := scanAttestation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attestation: %w", err)
		}
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find attestations: %w", err)
	}

	out := make([]*models.Attestation, 0, len(ids))
	for _, attestationID := range ids {
		a, ok := byID[attestationID]
		if !ok {
			return nil, fmt.Errorf("attestation %s: %w", attestationID, sentinel.ErrNotFound)
		}
		out = append(out, a.Clone())
	}
	return out, nil
}

func pgListIndex(ctx context.Context, q queryer, kind models.IndexKind, owner id.Address, start, limit int) ([]id.AttestationID, error) {
	if limit == 0 {
		return []id.AttestationID{}, nil
	}
	if start < 0 {
		start = 0
	}
	// LIMIT NULL means no limit in Postgres.
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}
	rows, err := q.QueryContext(ctx, `
		SELECT attestation_id FROM attestation_index
		WHERE kind = $1 AND owner = $2
		ORDER BY position
		OFFSET $3 LIMIT $4
	`, kind.String(), owner.String(), start, lim)
	if err != nil {
		return nil, fmt.Errorf("read %s index: %w", kind, err)
	}
	defer rows.Close()

	out := []id.AttestationID{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s index: %w", kind, err)
		}
		out = append(out, id.AttestationID(v))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s index: %w", kind, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttestation(row rowScanner) (*models.Attestation, error) {
	var (
		a          models.Attestation
		attID      string
		issuer     string
		subject    string
		claimType  string
		issuedAt   time.Time
		expiration sql.NullTime
	)
	if err := row.Scan(&attID, &issuer, &subject, &claimType, &issuedAt, &expiration, &a.Revoked); err != nil {
		return nil, err
	}
	a.ID = id.AttestationID(attID)
	a.Issuer = id.Address(issuer)
	a.Subject = id.Address(subject)
	a.ClaimType = id.ClaimType(claimType)
	a.Timestamp = issuedAt.UTC()
	if expiration.Valid {
		e := expiration.Time.UTC()
		a.Expiration = &e
	}
	return &a, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
