// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package acl

import "context"

// AddRequest is everything a backend needs to create an ACL. The
// initial rows are computed up front from the parent's templates, so
// backends only persist.
type AddRequest struct {
	Path        string
	Owner       string
	Description string
	Container   bool
	// ObjectRows are the child's initial object entries.
	ObjectRows []Row
	// TemplateRows are the doc/dcc rows the child passes on to its own
	// children. Empty for non-container ACLs.
	TemplateRows []Row
}

// Persistence is the storage contract behind a controller. File-backed
// implementations may reject the mutation methods with a NOT_SUPPORTED
// error.
type Persistence interface {
	// ReadPermissions loads the deployment's permission catalog.
	ReadPermissions(ctx context.Context) ([]Permission, error)
	// ReadGroups populates the registry with local groups and their
	// members.
	ReadGroups(ctx context.Context, reg *Registry) error
	// WriteGroups replaces the stored local groups.
	WriteGroups(ctx context.Context, groups map[string][]string) error
	// InitAcls loads and resolves every stored ACL, keyed by name.
	InitAcls(ctx context.Context, r *Resolver) (map[string]*AccessControlList, error)
	// AddAcl persists a new ACL with its initial rows.
	AddAcl(ctx context.Context, req AddRequest) error
	// RemoveAcl deletes an ACL and all its rows.
	RemoveAcl(ctx context.Context, path string) error
	// RenameAcl moves an ACL to a new path under the same parent.
	RenameAcl(ctx context.Context, oldPath, newPath string) error
	// WriteAcl replaces an ACL's rows, and its description when attrs
	// carries one.
	WriteAcl(ctx context.Context, path string, attrs map[string]string, rows []Row) error
}
