// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package acl

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("eionet.acl")

// Controller owns the in-memory cache of resolved ACLs and fronts all
// permission checks and administrative mutations. The cache loads
// lazily on first use and is rebuilt as a whole after every mutation
// or storage failure; readers never see a partially loaded state.
type Controller struct {
	props     Properties
	storage   Persistence
	directory Directory
	logger    *slog.Logger

	mu          sync.RWMutex
	acls        map[string]*AccessControlList
	registry    *Registry
	catalog     *Catalog
	storageDown bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithDirectory supplies the external directory used to resolve role
// occupants.
func WithDirectory(d Directory) Option {
	return func(c *Controller) { c.directory = d }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController validates the properties and wires a controller over
// the given storage. No storage access happens until first use.
func NewController(props Properties, storage Persistence, opts ...Option) (*Controller, error) {
	if err := props.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		props:   props,
		storage: storage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Reset drops the cache; the next call rebuilds it from storage.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.acls = nil
	c.registry = nil
	c.catalog = nil
	c.mu.Unlock()
}

func (c *Controller) ensureLoaded(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.acls != nil && !c.storageDown
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.storageDown {
		c.acls = nil
	}
	if c.acls != nil {
		return nil
	}
	err := c.reloadLocked(ctx)
	recordReload(err)
	if err != nil {
		LogError(c.logger, "acl cache reload failed", err)
	}
	return err
}

// reloadLocked rebuilds registry, catalog and ACLs from storage into
// fresh structures, publishing them only on full success.
func (c *Controller) reloadLocked(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "acl.reload")
	defer span.End()

	registry := NewRegistry()
	catalog := NewCatalog()

	perms, err := c.storage.ReadPermissions(ctx)
	if err != nil {
		return c.failLocked(err)
	}
	for _, p := range perms {
		catalog.Add(p)
	}
	if err := c.storage.ReadGroups(ctx, registry); err != nil {
		return c.failLocked(err)
	}
	resolver := &Resolver{
		Registry:          registry,
		Catalog:           catalog,
		OwnerToken:        c.props.OwnerPermission,
		AnonymousName:     c.props.AnonymousAccess,
		AuthenticatedName: c.props.AuthenticatedAccess,
		Directory:         c.directory,
		Storage:           c.storage,
		Logger:            c.logger,
	}
	acls, err := c.storage.InitAcls(ctx, resolver)
	if err != nil {
		return c.failLocked(err)
	}
	c.registry = registry
	c.catalog = catalog
	c.acls = acls
	c.storageDown = false
	c.logger.Info("acl cache loaded",
		"acls", len(acls),
		"groups", len(registry.GroupNames()),
		"permissions", catalog.Len())
	return nil
}

func (c *Controller) failLocked(err error) error {
	c.acls = nil
	if HasCode(err, CodeStorageUnavailable) {
		c.storageDown = true
	}
	return err
}

// noteStorageErr flags the cache for a forced reload when a mutation
// failed because storage was unreachable.
func (c *Controller) noteStorageErr(err error) {
	if err == nil || !HasCode(err, CodeStorageUnavailable) {
		return
	}
	c.mu.Lock()
	c.storageDown = true
	c.mu.Unlock()
}

// GetAcl returns the resolved ACL with the given name.
func (c *Controller) GetAcl(ctx context.Context, name string) (*AccessControlList, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	acl, ok := c.acls[name]
	c.mu.RUnlock()
	if !ok {
		return nil, oops.Code(CodeAclNotFound).With("acl", name).Errorf("no such acl %q", name)
	}
	return acl, nil
}

// AclNames returns the names of all loaded ACLs, sorted.
func (c *Controller) AclNames(ctx context.Context) ([]string, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.acls))
	for name := range c.acls {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// GetAcls returns all loaded ACLs keyed by name. The map is a copy;
// the ACLs themselves are the shared immutable instances.
func (c *Controller) GetAcls(ctx context.Context) (map[string]*AccessControlList, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*AccessControlList, len(c.acls))
	for name, acl := range c.acls {
		out[name] = acl
	}
	return out, nil
}

// PermissionsFor enumerates the user's effective permissions across
// every loaded ACL in the legacy CSV shape ",aclName:perm," with one
// element per grant. Legacy clients substring-match on the result.
func (c *Controller) PermissionsFor(ctx context.Context, userName string) (string, error) {
	names, err := c.AclNames(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, name := range names {
		acl, err := c.GetAcl(ctx, name)
		if err != nil {
			return "", err
		}
		for _, perm := range acl.Permissions(userName) {
			b.WriteString(",")
			b.WriteString(name)
			b.WriteString(":")
			b.WriteString(perm)
			b.WriteString(",")
		}
	}
	return b.String(), nil
}

// AclExists reports whether an ACL with the given name is loaded.
func (c *Controller) AclExists(ctx context.Context, name string) (bool, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return false, err
	}
	c.mu.RLock()
	_, ok := c.acls[name]
	c.mu.RUnlock()
	return ok, nil
}

// HasPermission reports whether userName holds the permission on the
// named ACL. An empty user name is the anonymous tier.
func (c *Controller) HasPermission(ctx context.Context, userName, aclName, permission string) (allowed bool, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "acl.check",
		trace.WithAttributes(
			attribute.String("acl.name", aclName),
			attribute.String("acl.permission", permission),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Bool("acl.allowed", allowed))
		}
		span.End()
	}()

	acl, err := c.GetAcl(ctx, aclName)
	if err != nil {
		return false, err
	}
	allowed, err = acl.CheckPermission(userName, permission)
	if err != nil {
		return false, err
	}
	recordCheck(time.Since(start), allowed)
	return allowed, nil
}

// Permissions returns the effective permission tokens userName holds
// on the named ACL.
func (c *Controller) Permissions(ctx context.Context, userName, aclName string) ([]string, error) {
	acl, err := c.GetAcl(ctx, aclName)
	if err != nil {
		return nil, err
	}
	return acl.Permissions(userName), nil
}

// IsOwner reports whether userName owns the named ACL.
func (c *Controller) IsOwner(ctx context.Context, userName, aclName string) (bool, error) {
	acl, err := c.GetAcl(ctx, aclName)
	if err != nil {
		return false, err
	}
	return acl.IsOwner(userName), nil
}

// AddAcl creates a non-container ACL at path, inheriting its initial
// rows from the parent's doc templates.
func (c *Controller) AddAcl(ctx context.Context, path, owner, description string) error {
	return c.addAcl(ctx, path, owner, description, false)
}

// AddContainerAcl creates a container ACL at path. The child inherits
// initial rows from the parent's templates and carries all of them
// forward for its own children.
func (c *Controller) AddContainerAcl(ctx context.Context, path, owner, description string) error {
	return c.addAcl(ctx, path, owner, description, true)
}

func (c *Controller) addAcl(ctx context.Context, path, owner, description string, container bool) error {
	if strings.TrimSpace(owner) == "" {
		return oops.Code(CodeInvalidOwner).With("path", path).Errorf("acl owner must be set")
	}
	parentName, err := parentPath(path)
	if err != nil {
		return err
	}
	if err := c.ensureLoaded(ctx); err != nil {
		return err
	}
	c.mu.RLock()
	_, exists := c.acls[path]
	parent, ok := c.acls[parentName]
	c.mu.RUnlock()
	if exists {
		return oops.Code(CodeAclExists).With("acl", path).Errorf("acl %q already exists", path)
	}
	if !ok {
		return oops.Code(CodeAclNotFound).With("acl", parentName).Errorf("no parent acl %q", parentName)
	}
	objects, templates := InheritRows(parent.TemplateRows(), owner, container, c.props.DefaultDocTokens())
	err = c.storage.AddAcl(ctx, AddRequest{
		Path:         path,
		Owner:        owner,
		Description:  description,
		Container:    container,
		ObjectRows:   objects,
		TemplateRows: templates,
	})
	if err != nil {
		c.noteStorageErr(err)
		return err
	}
	c.logger.Info("acl created", "acl", path, "owner", owner, "container", container)
	c.Reset()
	return nil
}

// RemoveAcl deletes the ACL at path.
func (c *Controller) RemoveAcl(ctx context.Context, path string) error {
	ok, err := c.AclExists(ctx, path)
	if err != nil {
		return err
	}
	if !ok {
		return oops.Code(CodeAclNotFound).With("acl", path).Errorf("no such acl %q", path)
	}
	if err := c.storage.RemoveAcl(ctx, path); err != nil {
		c.noteStorageErr(err)
		return err
	}
	c.logger.Info("acl removed", "acl", path)
	c.Reset()
	return nil
}

// RenameAcl moves an ACL to a new name under the same parent.
func (c *Controller) RenameAcl(ctx context.Context, oldPath, newPath string) error {
	oldParent, err := parentPath(oldPath)
	if err != nil {
		return err
	}
	newParent, err := parentPath(newPath)
	if err != nil {
		return err
	}
	if oldParent != newParent {
		return oops.Code(CodeInvalidPath).
			With("from", oldPath).
			With("to", newPath).
			Errorf("rename cannot move an acl to a different parent")
	}
	if err := c.ensureLoaded(ctx); err != nil {
		return err
	}
	c.mu.RLock()
	_, oldOK := c.acls[oldPath]
	_, newTaken := c.acls[newPath]
	c.mu.RUnlock()
	if !oldOK {
		return oops.Code(CodeAclNotFound).With("acl", oldPath).Errorf("no such acl %q", oldPath)
	}
	if newTaken {
		return oops.Code(CodeAclExists).With("acl", newPath).Errorf("acl %q already exists", newPath)
	}
	if err := c.storage.RenameAcl(ctx, oldPath, newPath); err != nil {
		c.noteStorageErr(err)
		return err
	}
	c.logger.Info("acl renamed", "from", oldPath, "to", newPath)
	c.Reset()
	return nil
}

// SetAclRows replaces the named ACL's stored rows and attributes, then
// invalidates the cache.
func (c *Controller) SetAclRows(ctx context.Context, aclName string, attrs map[string]string, rows []Row) error {
	acl, err := c.GetAcl(ctx, aclName)
	if err != nil {
		return err
	}
	if err := acl.SetRows(ctx, attrs, rows); err != nil {
		c.noteStorageErr(err)
		return err
	}
	c.Reset()
	return nil
}

// Groups returns the local groups and their member names.
func (c *Controller) Groups(ctx context.Context) (map[string][]string, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]string)
	for _, name := range c.registry.GroupNames() {
		g, _ := c.registry.Group(name)
		members := g.Members()
		names := make([]string, len(members))
		for i, m := range members {
			names[i] = m.Name()
		}
		out[name] = names
	}
	return out, nil
}

// SetGroups replaces the stored local groups and invalidates the
// cache.
func (c *Controller) SetGroups(ctx context.Context, groups map[string][]string) error {
	if err := c.storage.WriteGroups(ctx, groups); err != nil {
		c.noteStorageErr(err)
		return err
	}
	c.Reset()
	return nil
}

// PermissionDescriptions returns token -> description for every known
// permission.
func (c *Controller) PermissionDescriptions(ctx context.Context) (map[string]string, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.catalog.Descriptions(), nil
}

// parentPath derives the parent ACL name from a path. The parent of a
// top-level ACL is "/".
func parentPath(path string) (string, error) {
	slash := strings.LastIndex(path, "/")
	if slash < 0 {
		return "", oops.Code(CodeInvalidPath).With("path", path).Errorf("acl path must contain a slash")
	}
	if slash == 0 {
		return "/", nil
	}
	return path[:slash], nil
}
