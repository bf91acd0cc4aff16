// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

// Package pgstore persists ACLs in PostgreSQL. Two tables hold the
// data: acls carries the identity and ownership of each list, acl_rows
// its rules. Row replacement demotes the current rows to a backup
// status before inserting, so a failed write never leaves an ACL
// without rules.
package pgstore

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	acl "github.com/eea/eionet.acl"
)

// poolIface is the subset of pgxpool.Pool the store needs; pgxmock
// satisfies it for tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Store implements acl.Persistence over PostgreSQL.
type Store struct {
	pool   poolIface
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore wraps an existing pool.
func NewStore(pool poolIface, opts ...Option) *Store {
	s := &Store{pool: pool, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect opens a pool for the given URL and verifies the connection.
func Connect(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code(acl.CodeStorageUnavailable).Wrapf(err, "creating connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code(acl.CodeStorageUnavailable).Wrapf(err, "connecting to database")
	}
	return NewStore(pool, opts...), nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

var _ acl.Persistence = (*Store)(nil)

// ReadPermissions is not supported: the permission catalog and local
// groups stay file-backed even for database deployments.
func (s *Store) ReadPermissions(context.Context) ([]acl.Permission, error) {
	return nil, oops.Code(acl.CodeNotSupported).Errorf("permissions are not stored in the database")
}

func (s *Store) ReadGroups(context.Context, *acl.Registry) error {
	return oops.Code(acl.CodeNotSupported).Errorf("local groups are not stored in the database")
}

func (s *Store) WriteGroups(context.Context, map[string][]string) error {
	return oops.Code(acl.CodeNotSupported).Errorf("local groups are not stored in the database")
}

// InitAcls loads and resolves every stored ACL.
func (s *Store) InitAcls(ctx context.Context, r *acl.Resolver) (map[string]*acl.AccessControlList, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, acl_name, parent_name, owner, description FROM acls ORDER BY parent_name, acl_name`)
	if err != nil {
		return nil, storageErr(err, "loading acls")
	}
	defer rows.Close()

	type aclHead struct {
		id, name, owner, description string
	}
	var heads []aclHead
	for rows.Next() {
		var h aclHead
		var leaf, parent string
		if err := rows.Scan(&h.id, &leaf, &parent, &h.owner, &h.description); err != nil {
			return nil, storageErr(err, "scanning acl")
		}
		h.name = joinAclPath(parent, leaf)
		heads = append(heads, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "iterating acls")
	}
	rows.Close()

	out := make(map[string]*acl.AccessControlList, len(heads))
	for _, h := range heads {
		rawRows, err := s.readAclRows(ctx, h.id)
		if err != nil {
			return nil, err
		}
		list, err := r.BuildAcl(ctx, h.name, h.owner, h.description, rawRows)
		if err != nil {
			return nil, err
		}
		out[h.name] = list
	}
	return out, nil
}

// readAclRows loads one ACL's live rows in text form. Stored tier
// principal types (anonymous, authenticated, owner) normalize to user
// rows the resolver understands.
func (s *Store) readAclRows(ctx context.Context, aclID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT entry_type, principal_type, principal, permissions
		 FROM acl_rows WHERE acl_id = $1 AND status = 1 ORDER BY seq_no, id`, aclID)
	if err != nil {
		return nil, storageErr(err, "loading acl rows")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var entryType, principalType, principal, perms string
		if err := rows.Scan(&entryType, &principalType, &principal, &perms); err != nil {
			return nil, storageErr(err, "scanning acl row")
		}
		switch principalType {
		case "anonymous", "authenticated":
			principal = principalType
			principalType = acl.TypeUser
		case "owner":
			principalType = acl.TypeUser
		}
		line := principalType + ":" + principal + ":" + perms
		if entryType != "object" {
			line += ":" + entryType
		}
		out = append(out, line)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "iterating acl rows")
	}
	return out, nil
}

// AddAcl inserts a new ACL and its initial rows in one transaction.
func (s *Store) AddAcl(ctx context.Context, req acl.AddRequest) error {
	parent, leaf := splitAclPath(req.Path)
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr(err, "beginning transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	id := ulid.Make().String()
	_, err = tx.Exec(ctx,
		`INSERT INTO acls (id, acl_name, parent_name, owner, description) VALUES ($1, $2, $3, $4, $5)`,
		id, leaf, parent, req.Owner, req.Description)
	if isUniqueViolation(err) {
		return oops.Code(acl.CodeAclExists).With("acl", req.Path).Errorf("acl %q already exists", req.Path)
	}
	if err != nil {
		return storageErr(err, "inserting acl")
	}

	seq := 0
	for _, row := range req.TemplateRows {
		if err := insertRow(ctx, tx, id, row, seq); err != nil {
			return err
		}
		seq++
	}
	for _, row := range req.ObjectRows {
		if err := insertRow(ctx, tx, id, row, seq); err != nil {
			return err
		}
		seq++
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr(err, "committing acl insert")
	}
	s.logger.Debug("acl stored", "acl", req.Path, "rows", seq)
	return nil
}

func insertRow(ctx context.Context, tx pgx.Tx, aclID string, row acl.Row, seq int) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO acl_rows (id, acl_id, entry_type, principal_type, principal, permissions, seq_no, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 1)`,
		ulid.Make().String(), aclID, row.Kind.String(), row.PrincipalType, row.PrincipalID,
		acl.JoinPermissions(row.Permissions), seq)
	if err != nil {
		return storageErr(err, "inserting acl row")
	}
	return nil
}

// RemoveAcl deletes the ACL and all its rows.
func (s *Store) RemoveAcl(ctx context.Context, path string) error {
	parent, leaf := splitAclPath(path)
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr(err, "beginning transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var id string
	err = tx.QueryRow(ctx,
		`SELECT id FROM acls WHERE parent_name = $1 AND acl_name = $2`, parent, leaf).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.Code(acl.CodeAclNotFound).With("acl", path).Errorf("no such acl %q", path)
	}
	if err != nil {
		return storageErr(err, "looking up acl")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM acl_rows WHERE acl_id = $1`, id); err != nil {
		return storageErr(err, "deleting acl rows")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM acls WHERE id = $1`, id); err != nil {
		return storageErr(err, "deleting acl")
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr(err, "committing acl delete")
	}
	return nil
}

// RenameAcl changes an ACL's leaf name under its parent.
func (s *Store) RenameAcl(ctx context.Context, oldPath, newPath string) error {
	oldParent, oldLeaf := splitAclPath(oldPath)
	newParent, newLeaf := splitAclPath(newPath)
	if oldParent != newParent {
		return oops.Code(acl.CodeInvalidPath).
			With("from", oldPath).
			With("to", newPath).
			Errorf("rename cannot move an acl to a different parent")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE acls SET acl_name = $1 WHERE parent_name = $2 AND acl_name = $3`,
		newLeaf, oldParent, oldLeaf)
	if isUniqueViolation(err) {
		return oops.Code(acl.CodeAclExists).With("acl", newPath).Errorf("acl %q already exists", newPath)
	}
	if err != nil {
		return storageErr(err, "renaming acl")
	}
	if tag.RowsAffected() == 0 {
		return oops.Code(acl.CodeAclNotFound).With("acl", oldPath).Errorf("no such acl %q", oldPath)
	}
	return nil
}

// WriteAcl replaces an ACL's rows. The current rows are demoted to
// backup status for the duration of the transaction and purged once
// the new rows are in.
func (s *Store) WriteAcl(ctx context.Context, path string, attrs map[string]string, rows []acl.Row) error {
	parent, leaf := splitAclPath(path)
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr(err, "beginning transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var id string
	err = tx.QueryRow(ctx,
		`SELECT id FROM acls WHERE parent_name = $1 AND acl_name = $2`, parent, leaf).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.Code(acl.CodeAclNotFound).With("acl", path).Errorf("no such acl %q", path)
	}
	if err != nil {
		return storageErr(err, "looking up acl")
	}

	if descr, ok := attrs["description"]; ok && descr != "" {
		if _, err := tx.Exec(ctx, `UPDATE acls SET description = $1 WHERE id = $2`, descr, id); err != nil {
			return storageErr(err, "updating acl description")
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE acl_rows SET status = 0 WHERE acl_id = $1`, id); err != nil {
		return storageErr(err, "backing up acl rows")
	}
	seq := 0
	for _, row := range rows {
		if row.PrincipalType == acl.TypeDescription {
			continue
		}
		if err := insertRow(ctx, tx, id, row, seq); err != nil {
			return err
		}
		seq++
	}
	if _, err := tx.Exec(ctx, `DELETE FROM acl_rows WHERE acl_id = $1 AND status = 0`, id); err != nil {
		return storageErr(err, "purging backup rows")
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr(err, "committing acl write")
	}
	return nil
}

func storageErr(err error, op string) error {
	return oops.Code(acl.CodeStorageUnavailable).With("operation", op).Wrap(err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// splitAclPath splits an ACL path into the parent name and leaf stored
// in the acls table. The root ACL "/" stores an empty parent.
func splitAclPath(path string) (parent, leaf string) {
	if path == "/" {
		return "", "/"
	}
	slash := strings.LastIndex(path, "/")
	if slash < 0 {
		return "", path
	}
	if slash == 0 {
		return "/", path[1:]
	}
	return path[:slash], path[slash+1:]
}

// joinAclPath is the inverse of splitAclPath.
func joinAclPath(parent, leaf string) string {
	switch parent {
	case "":
		return leaf
	case "/":
		return "/" + leaf
	default:
		return parent + "/" + leaf
	}
}
