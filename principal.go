// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package acl

import (
	"context"
	"sort"
)

// Principal is anyone an access control entry can name: a single user,
// a locally defined group, or a role resolved from an external directory.
type Principal interface {
	Name() string
}

// MemberSet is the shared capability of Group and Role: a principal
// that contains users.
type MemberSet interface {
	Principal
	IsMember(p Principal) bool
	Members() []*User
}

// Directory resolves role occupants from an external source, typically
// an LDAP tree. Implementations are supplied by the host application.
type Directory interface {
	RoleMembers(ctx context.Context, roleName string) ([]string, error)
}

// User is an individual principal identified by name.
type User struct {
	name string
}

func NewUser(name string) *User { return &User{name: name} }

func (u *User) Name() string { return u.name }

// Group is a locally administered set of users.
type Group struct {
	name    string
	members map[string]*User
}

func NewGroup(name string) *Group {
	return &Group{name: name, members: make(map[string]*User)}
}

func (g *Group) Name() string { return g.name }

// AddMember adds a user to the group. Adding an existing member is a
// no-op.
func (g *Group) AddMember(u *User) {
	g.members[u.Name()] = u
}

func (g *Group) IsMember(p Principal) bool {
	_, ok := g.members[p.Name()]
	return ok
}

func (g *Group) Members() []*User {
	out := make([]*User, 0, len(g.members))
	for _, u := range g.members {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Role is a directory-backed set of users resolved at ACL build time.
// A role whose occupants cannot be resolved is treated as empty, so a
// directory outage degrades to denial rather than failure.
type Role struct {
	name    string
	members map[string]*User
}

// NewRole resolves the role's occupants through dir, registering each
// occupant in the registry so later user lookups find them. A nil
// directory or a resolution error yields an empty role.
func NewRole(ctx context.Context, name string, dir Directory, reg *Registry) *Role {
	r := &Role{name: name, members: make(map[string]*User)}
	if dir == nil {
		return r
	}
	names, err := dir.RoleMembers(ctx, name)
	if err != nil {
		return r
	}
	for _, n := range names {
		u := reg.ResolveUser(n)
		r.members[u.Name()] = u
	}
	return r
}

func (r *Role) Name() string { return r.name }

func (r *Role) IsMember(p Principal) bool {
	_, ok := r.members[p.Name()]
	return ok
}

func (r *Role) Members() []*User {
	out := make([]*User, 0, len(r.members))
	for _, u := range r.members {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Registry holds the users and local groups known to one controller
// generation. It is rebuilt from scratch on every cache reload and is
// not safe for concurrent mutation.
type Registry struct {
	users  map[string]*User
	groups map[string]*Group
}

func NewRegistry() *Registry {
	return &Registry{
		users:  make(map[string]*User),
		groups: make(map[string]*Group),
	}
}

// ResolveUser returns the registered user with the given name,
// creating and registering it on first sight.
func (r *Registry) ResolveUser(name string) *User {
	if u, ok := r.users[name]; ok {
		return u
	}
	u := NewUser(name)
	r.users[name] = u
	return u
}

func (r *Registry) User(name string) (*User, bool) {
	u, ok := r.users[name]
	return u, ok
}

func (r *Registry) Group(name string) (*Group, bool) {
	g, ok := r.groups[name]
	return g, ok
}

// AddGroup registers a local group and all of its members.
func (r *Registry) AddGroup(g *Group) {
	r.groups[g.Name()] = g
	for _, u := range g.Members() {
		r.users[u.Name()] = u
	}
}

// MemberOf returns the names of the local groups the user belongs to,
// sorted.
func (r *Registry) MemberOf(userName string) []string {
	u, ok := r.users[userName]
	if !ok {
		return nil
	}
	var out []string
	for name, g := range r.groups {
		if g.IsMember(u) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// GroupNames returns the registered local group names sorted.
func (r *Registry) GroupNames() []string {
	out := make([]string, 0, len(r.groups))
	for name := range r.groups {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var (
	_ Principal = (*User)(nil)
	_ MemberSet = (*Group)(nil)
	_ MemberSet = (*Role)(nil)
)
