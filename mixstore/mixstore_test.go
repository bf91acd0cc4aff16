// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package mixstore_test

import (
	"context"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	acl "github.com/eea/eionet.acl"
	"github.com/eea/eionet.acl/mixstore"
)

// fakeBackend records which Persistence methods were hit.
type fakeBackend struct {
	name     string
	acls     map[string][]string
	calls    []string
	writeErr error
}

func newFakeBackend(name string, acls map[string][]string) *fakeBackend {
	return &fakeBackend{name: name, acls: acls}
}

func (f *fakeBackend) note(op string) { f.calls = append(f.calls, op) }

func (f *fakeBackend) ReadPermissions(context.Context) ([]acl.Permission, error) {
	f.note("ReadPermissions")
	return []acl.Permission{{Token: "v", Description: "view"}}, nil
}

func (f *fakeBackend) ReadGroups(_ context.Context, reg *acl.Registry) error {
	f.note("ReadGroups")
	g := acl.NewGroup("app_admins")
	g.AddMember(acl.NewUser("juhan"))
	reg.AddGroup(g)
	return nil
}

func (f *fakeBackend) WriteGroups(context.Context, map[string][]string) error {
	f.note("WriteGroups")
	return nil
}

func (f *fakeBackend) InitAcls(ctx context.Context, r *acl.Resolver) (map[string]*acl.AccessControlList, error) {
	f.note("InitAcls")
	out := make(map[string]*acl.AccessControlList, len(f.acls))
	for name, rows := range f.acls {
		list, err := r.BuildAcl(ctx, name, f.name, "", rows)
		if err != nil {
			return nil, err
		}
		out[name] = list
	}
	return out, nil
}

func (f *fakeBackend) AddAcl(context.Context, acl.AddRequest) error {
	f.note("AddAcl")
	return nil
}

func (f *fakeBackend) RemoveAcl(context.Context, string) error {
	f.note("RemoveAcl")
	return nil
}

func (f *fakeBackend) RenameAcl(context.Context, string, string) error {
	f.note("RenameAcl")
	return nil
}

func (f *fakeBackend) WriteAcl(context.Context, string, map[string]string, []acl.Row) error {
	f.note("WriteAcl")
	return f.writeErr
}

var _ acl.Persistence = (*fakeBackend)(nil)

func newResolver() *acl.Resolver {
	catalog := acl.NewCatalog()
	catalog.Add(acl.Permission{Token: "v"})
	catalog.Add(acl.Permission{Token: "c"})
	return &acl.Resolver{
		Registry:          acl.NewRegistry(),
		Catalog:           catalog,
		OwnerToken:        "c",
		AnonymousName:     "anonymous",
		AuthenticatedName: "authenticated",
	}
}

func TestStore_ReadsGoToFiles(t *testing.T) {
	files := newFakeBackend("files", nil)
	db := newFakeBackend("db", nil)
	store := mixstore.New(files, db)
	ctx := context.Background()

	perms, err := store.ReadPermissions(ctx)
	require.NoError(t, err)
	assert.Len(t, perms, 1)

	require.NoError(t, store.ReadGroups(ctx, acl.NewRegistry()))
	require.NoError(t, store.WriteGroups(ctx, nil))

	assert.Equal(t, []string{"ReadPermissions", "ReadGroups", "WriteGroups"}, files.calls)
	assert.Empty(t, db.calls)
}

func TestStore_InitAcls_DatabaseOverridesFiles(t *testing.T) {
	files := newFakeBackend("files", map[string][]string{
		"/legacy":   {"user:legacyuser:v"},
		"/datasets": {"user:fileuser:v"},
	})
	db := newFakeBackend("db", map[string][]string{
		"/datasets": {"user:dbuser:v"},
	})
	store := mixstore.New(files, db)

	acls, err := store.InitAcls(context.Background(), newResolver())
	require.NoError(t, err)
	require.Len(t, acls, 2)

	// the overlapping path resolves against the database rows
	ok, err := acls["/datasets"].CheckPermission("dbuser", "v")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = acls["/datasets"].CheckPermission("fileuser", "v")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = acls["/legacy"].CheckPermission("legacyuser", "v")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_MutationsGoToDatabase(t *testing.T) {
	files := newFakeBackend("files", nil)
	db := newFakeBackend("db", nil)
	store := mixstore.New(files, db)
	ctx := context.Background()

	require.NoError(t, store.AddAcl(ctx, acl.AddRequest{Path: "/x", Owner: "o"}))
	require.NoError(t, store.RemoveAcl(ctx, "/x"))
	require.NoError(t, store.RenameAcl(ctx, "/x", "/y"))
	require.NoError(t, store.WriteAcl(ctx, "/x", nil, nil))

	assert.Equal(t, []string{"AddAcl", "RemoveAcl", "RenameAcl", "WriteAcl"}, db.calls)
	assert.Empty(t, files.calls)
}

func TestStore_MutationsWithoutDatabase(t *testing.T) {
	files := newFakeBackend("files", nil)
	store := mixstore.New(files, nil)
	ctx := context.Background()

	err := store.AddAcl(ctx, acl.AddRequest{Path: "/x", Owner: "o"})
	assert.True(t, acl.HasCode(err, acl.CodeNotSupported))
	err = store.RemoveAcl(ctx, "/x")
	assert.True(t, acl.HasCode(err, acl.CodeNotSupported))
	err = store.RenameAcl(ctx, "/x", "/y")
	assert.True(t, acl.HasCode(err, acl.CodeNotSupported))

	// row writes still reach legacy file ACLs
	require.NoError(t, store.WriteAcl(ctx, "/x", nil, nil))
	assert.Equal(t, []string{"WriteAcl"}, files.calls)
}

func TestStore_WriteAcl_FallsBackToFiles(t *testing.T) {
	files := newFakeBackend("files", nil)
	db := newFakeBackend("db", nil)
	db.writeErr = oops.Code(acl.CodeAclNotFound).Errorf("no such acl")
	store := mixstore.New(files, db)

	require.NoError(t, store.WriteAcl(context.Background(), "/legacy", nil, nil))
	assert.Equal(t, []string{"WriteAcl"}, db.calls)
	assert.Equal(t, []string{"WriteAcl"}, files.calls)
}
