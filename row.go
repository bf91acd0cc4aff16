// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package acl

import (
	"strings"

	"github.com/samber/oops"
)

// TypeDescription is a parse-level row type: the row carries the ACL's
// display description instead of an access rule.
const TypeDescription = "description"

// ParseRow parses one line of the row grammar:
//
//	type:principalId:permission,permission[:templateTag]
//
// Description rows use the principal field for the text. A missing
// template tag means an object row. Callers are expected to have
// trimmed the line and skipped blanks.
func ParseRow(line string) (Row, error) {
	fields := strings.SplitN(line, ":", 4)
	if len(fields) < 2 {
		return Row{}, oops.Code(CodeInvalidConfig).With("row", line).Errorf("malformed acl row")
	}
	row := Row{
		PrincipalType: strings.TrimSpace(fields[0]),
		PrincipalID:   strings.TrimSpace(fields[1]),
	}
	if row.PrincipalType == TypeDescription {
		// everything up to the next field separator is the text
		row.PrincipalID = fields[1]
		return row, nil
	}
	if len(fields) > 2 {
		row.Permissions = SplitPermissions(fields[2])
	}
	if len(fields) > 3 {
		kind, ok := ParseEntryKind(strings.TrimSpace(fields[3]))
		if !ok {
			return Row{}, oops.Code(CodeInvalidConfig).With("row", line).Errorf("unknown entry tag %q", fields[3])
		}
		row.Kind = kind
	}
	return row, nil
}

// FormatRow is the inverse of ParseRow.
func FormatRow(row Row) string {
	if row.PrincipalType == TypeDescription {
		return TypeDescription + ":" + row.PrincipalID
	}
	var b strings.Builder
	b.WriteString(row.PrincipalType)
	b.WriteByte(':')
	b.WriteString(row.PrincipalID)
	b.WriteByte(':')
	b.WriteString(JoinPermissions(row.Permissions))
	if row.Kind != KindObject {
		b.WriteByte(':')
		b.WriteString(row.Kind.String())
	}
	return b.String()
}
