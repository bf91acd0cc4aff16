// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package acl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	acl "github.com/eea/eionet.acl"
)

func TestParseRow(t *testing.T) {
	tests := []struct {
		name string
		line string
		want acl.Row
	}{
		{
			name: "object user row",
			line: "user:kaido:v,i,u",
			want: acl.Row{
				Kind:          acl.KindObject,
				PrincipalType: acl.TypeUser,
				PrincipalID:   "kaido",
				Permissions:   []string{"v", "i", "u"},
			},
		},
		{
			name: "localgroup doc template",
			line: "localgroup:app_admins:v,c:doc",
			want: acl.Row{
				Kind:          acl.KindDOC,
				PrincipalType: acl.TypeLocalGroup,
				PrincipalID:   "app_admins",
				Permissions:   []string{"v", "c"},
			},
		},
		{
			name: "circarole dcc template",
			line: "circarole:eea_pm:v:dcc",
			want: acl.Row{
				Kind:          acl.KindDCC,
				PrincipalType: acl.TypeRole,
				PrincipalID:   "eea_pm",
				Permissions:   []string{"v"},
			},
		},
		{
			name: "empty permission list",
			line: "user:enriko:",
			want: acl.Row{
				Kind:          acl.KindObject,
				PrincipalType: acl.TypeUser,
				PrincipalID:   "enriko",
			},
		},
		{
			name: "permission list with blanks",
			line: "user:kaido: v , ,i",
			want: acl.Row{
				Kind:          acl.KindObject,
				PrincipalType: acl.TypeUser,
				PrincipalID:   "kaido",
				Permissions:   []string{"v", "i"},
			},
		},
		{
			name: "description row",
			line: "description:Dataset catalogue",
			want: acl.Row{
				PrincipalType: acl.TypeDescription,
				PrincipalID:   "Dataset catalogue",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := acl.ParseRow(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRow_Malformed(t *testing.T) {
	_, err := acl.ParseRow("justoneword")
	require.Error(t, err)

	_, err = acl.ParseRow("user:kaido:v:nosuchtag")
	require.Error(t, err)
}

func TestFormatRow_RoundTrip(t *testing.T) {
	lines := []string{
		"user:kaido:v,i,u",
		"localgroup:app_admins:v,c:doc",
		"circarole:eea_pm:v:dcc",
		"user:enriko:",
		"description:Dataset catalogue",
	}
	for _, line := range lines {
		row, err := acl.ParseRow(line)
		require.NoError(t, err)
		assert.Equal(t, line, acl.FormatRow(row), "round trip of %q", line)
	}
}

func TestSplitJoinPermissions(t *testing.T) {
	assert.Equal(t, []string{"v", "i"}, acl.SplitPermissions("v, ,i,"))
	assert.Nil(t, acl.SplitPermissions(""))
	assert.Equal(t, "v,i", acl.JoinPermissions([]string{"v", "i"}))
}
