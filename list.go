// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package acl

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/samber/oops"
)

// Resolver carries the environment ACLs are built against: the shared
// principal registry, the permission catalog and the deployment-wide
// names. One resolver serves one controller cache generation.
type Resolver struct {
	Registry          *Registry
	Catalog           *Catalog
	OwnerToken        string
	AnonymousName     string
	AuthenticatedName string
	Directory         Directory
	Storage           Persistence
	Logger            *slog.Logger
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// AccessControlList is one named, fully resolved list of access rules.
// It is immutable after construction; mutation goes through storage
// followed by a controller cache reload.
type AccessControlList struct {
	name        string
	description string
	owner       *User
	owners      []Principal
	entries     []*Entry
	templates   []Row
	resolver    *Resolver
}

// BuildAcl runs the full resolution over the raw text rows of one ACL.
// An empty owner means storage recorded none; the ACL name stands in
// for it.
func (r *Resolver) BuildAcl(ctx context.Context, name, owner, description string, rawRows []string) (*AccessControlList, error) {
	if owner == "" {
		owner = name
	}
	l := &AccessControlList{
		name:        name,
		description: description,
		owner:       NewUser(owner),
		resolver:    r,
	}
	l.owners = append(l.owners, l.owner)
	if err := l.processRows(ctx, rawRows); err != nil {
		return nil, oops.With("acl", name).Wrap(err)
	}
	if l.description == "" {
		l.description = name
	}
	return l, nil
}

// processRows resolves raw rows in two passes. Group and role rows go
// first so their memberships are registered before user rows are
// interpreted against them.
func (l *AccessControlList) processRows(ctx context.Context, rawRows []string) error {
	rows := make([]Row, 0, len(rawRows))
	for _, line := range rawRows {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		row, err := ParseRow(line)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	for _, row := range rows {
		switch row.PrincipalType {
		case TypeDescription:
			l.description = row.PrincipalID
		case TypeLocalGroup:
			if err := l.addGroupRow(row); err != nil {
				return err
			}
		case TypeRole:
			if err := l.addRoleRow(ctx, row); err != nil {
				return err
			}
		}
	}
	for _, row := range rows {
		if row.PrincipalType == TypeUser {
			if err := l.addUserRow(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// addGroupRow resolves a localgroup row. A row naming a group that no
// longer exists in the registry is skipped so stale rows do not break
// the whole ACL.
func (l *AccessControlList) addGroupRow(row Row) error {
	group, ok := l.resolver.Registry.Group(row.PrincipalID)
	if !ok {
		l.resolver.logger().Debug("skipping row for unknown local group",
			"acl", l.name, "group", row.PrincipalID)
		return nil
	}
	entry := NewEntry(group)
	if err := l.addTokens(entry, row.Permissions); err != nil {
		return err
	}
	if row.Kind != KindObject {
		l.templates = append(l.templates, row)
		return nil
	}
	l.addEntry(entry)
	return nil
}

func (l *AccessControlList) addRoleRow(ctx context.Context, row Row) error {
	role := NewRole(ctx, row.PrincipalID, l.resolver.Directory, l.resolver.Registry)
	entry := NewEntry(role)
	if err := l.addTokens(entry, row.Permissions); err != nil {
		return err
	}
	if row.Kind != KindObject {
		l.templates = append(l.templates, row)
		return nil
	}
	l.addEntry(entry)
	return nil
}

// addUserRow resolves a user row. For object rows, group and role
// entries the user belongs to yield one synthesized negative entry
// carrying the last matching entry's grant set; the user's own row
// then re-grants on top of it. The overall effect is that an explicit
// user row overrides what the user would otherwise inherit from
// groups.
func (l *AccessControlList) addUserRow(row Row) error {
	user := l.resolver.Registry.ResolveUser(row.PrincipalID)
	entry := NewEntry(user)
	if err := l.addTokens(entry, row.Permissions); err != nil {
		return err
	}
	if row.Kind != KindObject {
		l.templates = append(l.templates, row)
		return nil
	}
	var masked []string
	for _, e := range l.entries {
		ms, ok := e.Principal().(MemberSet)
		if !ok || e.IsNegative() || !ms.IsMember(user) {
			continue
		}
		masked = e.Permissions()
	}
	if masked != nil {
		neg := NewEntry(user)
		for _, tok := range masked {
			neg.AddPermission(tok)
		}
		neg.SetNegative()
		l.addEntry(neg)
	}
	if user.Name() == l.owner.Name() && !entry.HasPermission(l.resolver.OwnerToken) {
		entry.AddPermission(l.resolver.OwnerToken)
	}
	l.addEntry(entry)
	return nil
}

// addTokens validates tokens against the catalog and applies them to
// the entry. A token equal to the owner token additionally makes the
// principal an owner of this ACL.
func (l *AccessControlList) addTokens(e *Entry, tokens []string) error {
	for _, tok := range tokens {
		if _, ok := l.resolver.Catalog.Resolve(tok); !ok {
			return oops.Code(CodeUnknownPermission).
				With("permission", tok).
				Errorf("unknown permission token %q", tok)
		}
		if tok == l.resolver.OwnerToken {
			l.addOwner(e.Principal())
		}
		e.AddPermission(tok)
	}
	return nil
}

// addEntry appends an entry unless one with the same principal and
// polarity already exists.
func (l *AccessControlList) addEntry(entry *Entry) bool {
	for _, e := range l.entries {
		if e.IsNegative() == entry.IsNegative() && e.Principal().Name() == entry.Principal().Name() &&
			principalTypeOf(e.Principal()) == principalTypeOf(entry.Principal()) {
			return false
		}
	}
	l.entries = append(l.entries, entry)
	return true
}

func (l *AccessControlList) addOwner(p Principal) {
	for _, o := range l.owners {
		if o.Name() == p.Name() {
			return
		}
	}
	l.owners = append(l.owners, p)
}

func (l *AccessControlList) Name() string        { return l.name }
func (l *AccessControlList) Description() string { return l.description }
func (l *AccessControlList) OwnerName() string   { return l.owner.Name() }

// CheckPermission reports whether userName holds the permission on
// this ACL. The empty user name means the anonymous tier; a named user
// is checked against their own entries first and then against the
// authenticated tier.
func (l *AccessControlList) CheckPermission(userName, token string) (bool, error) {
	if _, ok := l.resolver.Catalog.Resolve(token); !ok {
		return false, oops.Code(CodeUnknownPermission).
			With("acl", l.name).
			With("permission", token).
			Errorf("unknown permission token %q", token)
	}
	if strings.TrimSpace(userName) == "" {
		return l.tierGrants(l.resolver.AnonymousName, token), nil
	}
	if p, ok := l.resolver.Registry.User(userName); ok && l.grants(p, token) {
		return true, nil
	}
	return l.tierGrants(l.resolver.AuthenticatedName, token), nil
}

func (l *AccessControlList) tierGrants(tierName, token string) bool {
	p, ok := l.resolver.Registry.User(tierName)
	return ok && l.grants(p, token)
}

// Permissions returns the effective permission tokens userName holds
// on this ACL, sorted. The empty user name means the anonymous tier
// and nothing else; a named but unregistered user falls through to
// the authenticated tier.
func (l *AccessControlList) Permissions(userName string) []string {
	name := strings.TrimSpace(userName)
	if name == "" {
		p, ok := l.resolver.Registry.User(l.resolver.AnonymousName)
		if !ok {
			return nil
		}
		return l.sortedEffective(p)
	}
	p, ok := l.resolver.Registry.User(name)
	if !ok {
		p, ok = l.resolver.Registry.User(l.resolver.AuthenticatedName)
		if !ok {
			return nil
		}
	}
	return l.sortedEffective(p)
}

func (l *AccessControlList) sortedEffective(p Principal) []string {
	eff := l.effective(p)
	out := make([]string, 0, len(eff))
	for tok := range eff {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// IsOwner reports whether userName owns this ACL. The empty user name
// is tested against the anonymous principal and nothing else. A user
// name equal to the ACL name matches a storage-less ACL whose owner
// defaulted to its own name; other unregistered users degrade through
// the authenticated and anonymous tiers.
func (l *AccessControlList) IsOwner(userName string) bool {
	if strings.TrimSpace(userName) == "" {
		u, ok := l.resolver.Registry.User(l.resolver.AnonymousName)
		return ok && l.isOwnerPrincipal(u)
	}
	var p Principal
	if userName == l.name {
		p = NewUser(userName)
	} else {
		u, ok := l.resolver.Registry.User(userName)
		if !ok {
			u, ok = l.resolver.Registry.User(l.resolver.AuthenticatedName)
			if !ok {
				u, ok = l.resolver.Registry.User(l.resolver.AnonymousName)
				if !ok {
					return false
				}
			}
		}
		p = u
	}
	return l.isOwnerPrincipal(p)
}

func (l *AccessControlList) isOwnerPrincipal(p Principal) bool {
	for _, o := range l.owners {
		if ms, ok := o.(MemberSet); ok {
			if ms.IsMember(p) {
				return true
			}
			continue
		}
		if o.Name() == p.Name() {
			return true
		}
	}
	return false
}

func (l *AccessControlList) grants(p Principal, token string) bool {
	return l.effective(p)[token]
}

// effective computes the net permission set for a principal. Negative
// entries mask positive ones at the same scope, and an individual
// negative additionally masks group positives. Explicit user rows rely
// on that last subtraction to override group grants.
func (l *AccessControlList) effective(p Principal) map[string]bool {
	iPos := map[string]bool{}
	iNeg := map[string]bool{}
	gPos := map[string]bool{}
	gNeg := map[string]bool{}
	for _, e := range l.entries {
		var pos, neg map[string]bool
		if ms, ok := e.Principal().(MemberSet); ok {
			if !ms.IsMember(p) {
				continue
			}
			pos, neg = gPos, gNeg
		} else {
			if e.Principal().Name() != p.Name() {
				continue
			}
			pos, neg = iPos, iNeg
		}
		target := pos
		if e.IsNegative() {
			target = neg
		}
		for _, tok := range e.Permissions() {
			target[tok] = true
		}
	}
	indiv := subtract(iPos, iNeg)
	group := subtract(subtract(gPos, gNeg), subtract(iNeg, iPos))
	out := make(map[string]bool, len(indiv)+len(group))
	for tok := range indiv {
		out[tok] = true
	}
	for tok := range group {
		out[tok] = true
	}
	return out
}

func subtract(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a))
	for tok := range a {
		if !b[tok] {
			out[tok] = true
		}
	}
	return out
}

// EntryRows returns the ACL's rows in admin-surface shape: positive
// object entries followed by template rows. Synthesized negative
// entries are an evaluation artifact and are not included.
func (l *AccessControlList) EntryRows() []Row {
	out := make([]Row, 0, len(l.entries)+len(l.templates))
	for _, e := range l.entries {
		if e.IsNegative() {
			continue
		}
		out = append(out, e.Row())
	}
	out = append(out, l.TemplateRows()...)
	return out
}

// TemplateRows returns only the doc and dcc rows.
func (l *AccessControlList) TemplateRows() []Row {
	out := make([]Row, len(l.templates))
	copy(out, l.templates)
	return out
}

// SetRows replaces the ACL's stored rows and attributes. The in-memory
// ACL is not touched; callers reload through the controller.
func (l *AccessControlList) SetRows(ctx context.Context, attrs map[string]string, rows []Row) error {
	if l.resolver.Storage == nil {
		return oops.Code(CodeNotSupported).Errorf("acl %q has no writable storage", l.name)
	}
	return l.resolver.Storage.WriteAcl(ctx, l.name, attrs, rows)
}
