// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package acl

import "strings"

// EntryKind distinguishes rows that grant on the object itself from
// template rows inherited by children created under it.
type EntryKind int

const (
	// KindObject rows grant permissions on the ACL's own object.
	KindObject EntryKind = iota
	// KindDOC rows are templates for non-container children.
	KindDOC
	// KindDCC rows are templates for container children.
	KindDCC
)

func (k EntryKind) String() string {
	switch k {
	case KindDOC:
		return "doc"
	case KindDCC:
		return "dcc"
	default:
		return "object"
	}
}

// ParseEntryKind maps the stored tag back to a kind. The empty tag
// means an object row.
func ParseEntryKind(s string) (EntryKind, bool) {
	switch s {
	case "", "object":
		return KindObject, true
	case "doc":
		return KindDOC, true
	case "dcc":
		return KindDCC, true
	}
	return KindObject, false
}

// Principal type tags used in rows and storage.
const (
	TypeUser       = "user"
	TypeLocalGroup = "localgroup"
	TypeRole       = "circarole"
)

// Row is the uniform record shape an access rule travels in between
// parsing, resolution, storage and the admin surface.
type Row struct {
	Kind          EntryKind
	PrincipalType string
	PrincipalID   string
	Permissions   []string
}

// Key identifies a row for merge purposes: two rows with equal keys
// describe the same principal on the same kind of entry.
func (r Row) Key() string {
	return r.Kind.String() + "\x00" + r.PrincipalType + "\x00" + r.PrincipalID
}

// MergePermissions unions other's tokens into r, preserving first-seen
// order.
func (r *Row) MergePermissions(other []string) {
	for _, tok := range other {
		if !containsToken(r.Permissions, tok) {
			r.Permissions = append(r.Permissions, tok)
		}
	}
}

func containsToken(tokens []string, tok string) bool {
	for _, t := range tokens {
		if t == tok {
			return true
		}
	}
	return false
}

// SplitPermissions parses a comma separated permission list, dropping
// empty items.
func SplitPermissions(csv string) []string {
	var out []string
	for _, tok := range strings.Split(csv, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// JoinPermissions is the inverse of SplitPermissions.
func JoinPermissions(tokens []string) string {
	return strings.Join(tokens, ",")
}

// Entry is one resolved access control entry: a principal plus the
// permission tokens it is granted, or denied when the entry is
// negative.
type Entry struct {
	principal Principal
	tokens    []string
	tokenSet  map[string]struct{}
	negative  bool
}

func NewEntry(p Principal) *Entry {
	return &Entry{principal: p, tokenSet: make(map[string]struct{})}
}

func (e *Entry) Principal() Principal { return e.principal }

// AddPermission adds a token, reporting false if it was already
// present.
func (e *Entry) AddPermission(tok string) bool {
	if _, ok := e.tokenSet[tok]; ok {
		return false
	}
	e.tokenSet[tok] = struct{}{}
	e.tokens = append(e.tokens, tok)
	return true
}

func (e *Entry) HasPermission(tok string) bool {
	_, ok := e.tokenSet[tok]
	return ok
}

// Permissions returns tokens in insertion order.
func (e *Entry) Permissions() []string {
	out := make([]string, len(e.tokens))
	copy(out, e.tokens)
	return out
}

func (e *Entry) SetNegative()     { e.negative = true }
func (e *Entry) IsNegative() bool { return e.negative }

// Row renders the entry as an object row for the admin surface.
func (e *Entry) Row() Row {
	return Row{
		Kind:          KindObject,
		PrincipalType: principalTypeOf(e.principal),
		PrincipalID:   e.principal.Name(),
		Permissions:   e.Permissions(),
	}
}

func principalTypeOf(p Principal) string {
	switch p.(type) {
	case *Group:
		return TypeLocalGroup
	case *Role:
		return TypeRole
	default:
		return TypeUser
	}
}
