// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package acl

// InheritRows computes the initial rows of an ACL created under a
// parent, from the parent's template rows.
//
// Every template row contributes one object row on the child, merged
// by principal with permissions unioned. Rows naming the literal
// principal "owner" are placeholders for the child's actual owner; the
// last such row wins and replaces, rather than extends, any row the
// owner picked up under their real name. Container children keep all
// of the parent's template rows as their own templates; non-container
// children keep none.
//
// When the parent has no template row for the kind being created, a
// default placeholder row with the configured permissions is assumed.
func InheritRows(parent []Row, owner string, container bool, defaultPerms []string) (objects, templates []Row) {
	kind := KindDOC
	if container {
		kind = KindDCC
	}
	rows := make([]Row, len(parent))
	copy(rows, parent)
	hasKind := false
	for _, row := range rows {
		if row.Kind == kind {
			hasKind = true
			break
		}
	}
	if !hasKind {
		rows = append(rows, Row{
			Kind:          kind,
			PrincipalType: TypeUser,
			PrincipalID:   ownerPlaceholder,
			Permissions:   append([]string(nil), defaultPerms...),
		})
	}

	if container {
		templates = make([]Row, len(rows))
		copy(templates, rows)
	}

	type slot struct {
		index int
	}
	staged := make([]Row, 0, len(rows))
	index := make(map[string]slot)
	var ownerRow *Row
	for _, row := range rows {
		obj := Row{
			Kind:          KindObject,
			PrincipalType: row.PrincipalType,
			PrincipalID:   row.PrincipalID,
			Permissions:   append([]string(nil), row.Permissions...),
		}
		if obj.PrincipalType == TypeUser && obj.PrincipalID == ownerPlaceholder {
			obj.PrincipalID = owner
			o := obj
			ownerRow = &o
			continue
		}
		key := obj.PrincipalType + "\x00" + obj.PrincipalID
		if s, ok := index[key]; ok {
			staged[s.index].MergePermissions(obj.Permissions)
			continue
		}
		index[key] = slot{index: len(staged)}
		staged = append(staged, obj)
	}
	if ownerRow != nil {
		key := TypeUser + "\x00" + owner
		if s, ok := index[key]; ok {
			staged[s.index].Permissions = ownerRow.Permissions
		} else {
			staged = append(staged, *ownerRow)
		}
	}
	return staged, templates
}

// ownerPlaceholder is the literal principal id template rows use to
// mean "whoever ends up owning the child".
const ownerPlaceholder = "owner"
