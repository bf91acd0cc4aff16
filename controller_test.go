// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package acl_test

import (
	"context"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	acl "github.com/eea/eionet.acl"
)

type fakeAclDef struct {
	name        string
	owner       string
	description string
	rows        []string
}

// fakeStore is an in-memory Persistence for controller tests. It
// records mutations instead of applying them.
type fakeStore struct {
	perms   []acl.Permission
	groups  map[string][]string
	acls    []fakeAclDef
	loadErr error

	initCalls   int
	added       []acl.AddRequest
	removed     []string
	renamed     [][2]string
	wroteGroups map[string][]string
}

func (s *fakeStore) ReadPermissions(context.Context) ([]acl.Permission, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.perms, nil
}

func (s *fakeStore) ReadGroups(_ context.Context, reg *acl.Registry) error {
	for name, members := range s.groups {
		g := acl.NewGroup(name)
		for _, m := range members {
			g.AddMember(acl.NewUser(m))
		}
		reg.AddGroup(g)
	}
	return nil
}

func (s *fakeStore) WriteGroups(_ context.Context, groups map[string][]string) error {
	s.wroteGroups = groups
	return nil
}

func (s *fakeStore) InitAcls(ctx context.Context, r *acl.Resolver) (map[string]*acl.AccessControlList, error) {
	s.initCalls++
	out := make(map[string]*acl.AccessControlList, len(s.acls))
	for _, def := range s.acls {
		list, err := r.BuildAcl(ctx, def.name, def.owner, def.description, def.rows)
		if err != nil {
			return nil, err
		}
		out[def.name] = list
	}
	return out, nil
}

func (s *fakeStore) AddAcl(_ context.Context, req acl.AddRequest) error {
	s.added = append(s.added, req)
	return nil
}

func (s *fakeStore) RemoveAcl(_ context.Context, path string) error {
	s.removed = append(s.removed, path)
	return nil
}

func (s *fakeStore) RenameAcl(_ context.Context, oldPath, newPath string) error {
	s.renamed = append(s.renamed, [2]string{oldPath, newPath})
	return nil
}

func (s *fakeStore) WriteAcl(context.Context, string, map[string]string, []acl.Row) error {
	return nil
}

var _ acl.Persistence = (*fakeStore)(nil)

func newTestStore() *fakeStore {
	return &fakeStore{
		perms: []acl.Permission{
			{Token: "v", Description: "View"},
			{Token: "i", Description: "Insert"},
			{Token: "u", Description: "Update"},
			{Token: "c", Description: "Control"},
		},
		groups: map[string][]string{
			"app_admins":     {"juhan", "kaido"},
			"dataset_owners": {"ander"},
		},
		acls: []fakeAclDef{
			{
				name:  "/",
				owner: "ander",
				rows: []string{
					"localgroup:app_admins:v,c",
					"user:owner:v,u:doc",
					"user:owner:v,i,u:dcc",
				},
			},
			{
				name:        "/datasets",
				owner:       "ander",
				description: "Datasets",
				rows: []string{
					"localgroup:app_admins:v,i",
					"user:kaido:v",
					"localgroup:app_admins:v:doc",
					"user:owner:v,u:doc",
				},
			},
		},
	}
}

func newTestController(t *testing.T, store acl.Persistence) *acl.Controller {
	t.Helper()
	props := acl.DefaultProperties()
	props.DefaultDocPermissions = "v"
	c, err := acl.NewController(props, store)
	require.NoError(t, err)
	return c
}

func TestNewController_InvalidProperties(t *testing.T) {
	props := acl.DefaultProperties()
	props.OwnerPermission = "cc"
	_, err := acl.NewController(props, newTestStore())
	require.Error(t, err)
	assert.True(t, acl.HasCode(err, acl.CodeInvalidConfig))
}

func TestController_LazyLoadAndCache(t *testing.T) {
	store := newTestStore()
	c := newTestController(t, store)
	ctx := context.Background()

	assert.Zero(t, store.initCalls)

	ok, err := c.HasPermission(ctx, "juhan", "/datasets", "v")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, store.initCalls)

	// served from cache
	_, err = c.GetAcl(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, 1, store.initCalls)
}

func TestController_GetAclNotFound(t *testing.T) {
	c := newTestController(t, newTestStore())
	_, err := c.GetAcl(context.Background(), "/nonexistent")
	require.Error(t, err)
	assert.True(t, acl.HasCode(err, acl.CodeAclNotFound))
}

func TestController_Permissions(t *testing.T) {
	c := newTestController(t, newTestStore())

	perms, err := c.Permissions(context.Background(), "kaido", "/datasets")
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, perms)

	perms, err = c.Permissions(context.Background(), "juhan", "/datasets")
	require.NoError(t, err)
	assert.Equal(t, []string{"i", "v"}, perms)
}

func TestController_PermissionsFor(t *testing.T) {
	c := newTestController(t, newTestStore())

	csv, err := c.PermissionsFor(context.Background(), "kaido")
	require.NoError(t, err)
	// root grants come through app_admins, /datasets is masked to v
	assert.Equal(t, ",/:c,,/:v,,/datasets:v,", csv)

	csv, err = c.PermissionsFor(context.Background(), "stranger")
	require.NoError(t, err)
	assert.Empty(t, csv)
}

func TestController_GetAcls(t *testing.T) {
	c := newTestController(t, newTestStore())

	acls, err := c.GetAcls(context.Background())
	require.NoError(t, err)
	require.Len(t, acls, 2)
	assert.Contains(t, acls, "/")
	assert.Contains(t, acls, "/datasets")

	// the returned map is a copy; deleting from it leaves the cache alone
	delete(acls, "/datasets")
	again, err := c.GetAcls(context.Background())
	require.NoError(t, err)
	assert.Len(t, again, 2)
}

func TestController_AddAcl(t *testing.T) {
	store := newTestStore()
	c := newTestController(t, store)
	ctx := context.Background()

	require.NoError(t, c.AddAcl(ctx, "/datasets/birds", "kaido", "Birds dataset"))

	require.Len(t, store.added, 1)
	req := store.added[0]
	assert.Equal(t, "/datasets/birds", req.Path)
	assert.Equal(t, "kaido", req.Owner)
	assert.False(t, req.Container)
	assert.Empty(t, req.TemplateRows)
	require.Len(t, req.ObjectRows, 2)
	assert.Equal(t, "app_admins", req.ObjectRows[0].PrincipalID)
	assert.Equal(t, "kaido", req.ObjectRows[1].PrincipalID)

	// mutation invalidates the cache
	calls := store.initCalls
	_, err := c.GetAcl(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, calls+1, store.initCalls)
}

func TestController_AddContainerAcl(t *testing.T) {
	store := newTestStore()
	c := newTestController(t, store)

	require.NoError(t, c.AddContainerAcl(context.Background(), "/reports", "kaido", "Reports"))

	require.Len(t, store.added, 1)
	req := store.added[0]
	assert.True(t, req.Container)
	// a container child carries the parent's templates forward
	assert.Len(t, req.TemplateRows, 2)
}

func TestController_AddAclFailures(t *testing.T) {
	c := newTestController(t, newTestStore())
	ctx := context.Background()

	tests := []struct {
		name  string
		path  string
		owner string
		code  string
	}{
		{name: "empty owner", path: "/datasets/x", owner: "", code: acl.CodeInvalidOwner},
		{name: "no slash in path", path: "datasets", owner: "kaido", code: acl.CodeInvalidPath},
		{name: "parent does not exist", path: "/nowhere/x", owner: "kaido", code: acl.CodeAclNotFound},
		{name: "already exists", path: "/datasets", owner: "kaido", code: acl.CodeAclExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.AddAcl(ctx, tt.path, tt.owner, "")
			require.Error(t, err)
			assert.True(t, acl.HasCode(err, tt.code), "want code %s, got %v", tt.code, err)
		})
	}
}

func TestController_RemoveAcl(t *testing.T) {
	store := newTestStore()
	c := newTestController(t, store)
	ctx := context.Background()

	require.NoError(t, c.RemoveAcl(ctx, "/datasets"))
	assert.Equal(t, []string{"/datasets"}, store.removed)

	err := c.RemoveAcl(ctx, "/nonexistent")
	require.Error(t, err)
	assert.True(t, acl.HasCode(err, acl.CodeAclNotFound))
}

func TestController_RenameAcl(t *testing.T) {
	store := newTestStore()
	c := newTestController(t, store)
	ctx := context.Background()

	require.NoError(t, c.RenameAcl(ctx, "/datasets", "/species"))
	assert.Equal(t, [][2]string{{"/datasets", "/species"}}, store.renamed)
}

func TestController_RenameAclFailures(t *testing.T) {
	store := newTestStore()
	store.acls = append(store.acls, fakeAclDef{name: "/reports", owner: "ander"})
	c := newTestController(t, store)
	ctx := context.Background()

	err := c.RenameAcl(ctx, "/datasets", "/reports/datasets")
	require.Error(t, err)
	assert.True(t, acl.HasCode(err, acl.CodeInvalidPath))
	assert.Empty(t, store.renamed)

	err = c.RenameAcl(ctx, "/nonexistent", "/other")
	require.Error(t, err)
	assert.True(t, acl.HasCode(err, acl.CodeAclNotFound))

	err = c.RenameAcl(ctx, "/datasets", "/reports")
	require.Error(t, err)
	assert.True(t, acl.HasCode(err, acl.CodeAclExists))
}

func TestController_StorageErrorForcesReload(t *testing.T) {
	store := newTestStore()
	store.loadErr = oops.Code(acl.CodeStorageUnavailable).Errorf("db down")
	c := newTestController(t, store)
	ctx := context.Background()

	_, err := c.GetAcl(ctx, "/")
	require.Error(t, err)

	// storage recovers; the next read rebuilds the cache
	store.loadErr = nil
	_, err = c.GetAcl(ctx, "/")
	require.NoError(t, err)
}

func TestController_Groups(t *testing.T) {
	c := newTestController(t, newTestStore())

	groups, err := c.Groups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"app_admins":     {"juhan", "kaido"},
		"dataset_owners": {"ander"},
	}, groups)
}

func TestController_SetGroups(t *testing.T) {
	store := newTestStore()
	c := newTestController(t, store)
	ctx := context.Background()

	// warm the cache so the reset is observable
	_, err := c.GetAcl(ctx, "/")
	require.NoError(t, err)
	calls := store.initCalls

	next := map[string][]string{"editors": {"mari"}}
	require.NoError(t, c.SetGroups(ctx, next))
	assert.Equal(t, next, store.wroteGroups)

	_, err = c.GetAcl(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, calls+1, store.initCalls)
}

func TestController_PermissionDescriptions(t *testing.T) {
	c := newTestController(t, newTestStore())

	descrs, err := c.PermissionDescriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "View", descrs["v"])
	assert.Len(t, descrs, 4)
}
