// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

// Package mixstore combines file and database persistence for
// deployments migrating from file-backed ACLs. The permission catalog,
// local groups and legacy ACL files stay on disk while new ACLs and
// all mutations go through the database. A database ACL with the same
// path as a file ACL wins.
package mixstore

import (
	"context"

	"github.com/samber/oops"

	acl "github.com/eea/eionet.acl"
)

// Store implements acl.Persistence by delegating reads to a file
// store and mutations to a database store.
type Store struct {
	files acl.Persistence
	db    acl.Persistence
}

// New combines the two backends. db may be nil, in which case every
// ACL mutation reports NOT_SUPPORTED, matching a file-only deployment.
func New(files, db acl.Persistence) *Store {
	return &Store{files: files, db: db}
}

var _ acl.Persistence = (*Store)(nil)

func (s *Store) ReadPermissions(ctx context.Context) ([]acl.Permission, error) {
	return s.files.ReadPermissions(ctx)
}

func (s *Store) ReadGroups(ctx context.Context, reg *acl.Registry) error {
	return s.files.ReadGroups(ctx, reg)
}

func (s *Store) WriteGroups(ctx context.Context, groups map[string][]string) error {
	return s.files.WriteGroups(ctx, groups)
}

// InitAcls loads the file ACLs first, then lets the database override
// entries with the same path.
func (s *Store) InitAcls(ctx context.Context, r *acl.Resolver) (map[string]*acl.AccessControlList, error) {
	acls, err := s.files.InitAcls(ctx, r)
	if err != nil {
		return nil, err
	}
	if s.db == nil {
		return acls, nil
	}
	fromDB, err := s.db.InitAcls(ctx, r)
	if err != nil {
		return nil, err
	}
	for name, list := range fromDB {
		acls[name] = list
	}
	return acls, nil
}

func (s *Store) AddAcl(ctx context.Context, req acl.AddRequest) error {
	if s.db == nil {
		return errNoDatabase("adding acls")
	}
	return s.db.AddAcl(ctx, req)
}

func (s *Store) RemoveAcl(ctx context.Context, path string) error {
	if s.db == nil {
		return errNoDatabase("removing acls")
	}
	return s.db.RemoveAcl(ctx, path)
}

func (s *Store) RenameAcl(ctx context.Context, oldPath, newPath string) error {
	if s.db == nil {
		return errNoDatabase("renaming acls")
	}
	return s.db.RenameAcl(ctx, oldPath, newPath)
}

// WriteAcl updates the backend the ACL lives in: the database when it
// holds the path, the file store for legacy file ACLs.
func (s *Store) WriteAcl(ctx context.Context, path string, attrs map[string]string, rows []acl.Row) error {
	if s.db == nil {
		return s.files.WriteAcl(ctx, path, attrs, rows)
	}
	err := s.db.WriteAcl(ctx, path, attrs, rows)
	if acl.HasCode(err, acl.CodeAclNotFound) {
		return s.files.WriteAcl(ctx, path, attrs, rows)
	}
	return err
}

func errNoDatabase(op string) error {
	return oops.Code(acl.CodeNotSupported).Errorf("%s requires a database backend", op)
}
