// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package authn_test

import (
	"context"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	acl "github.com/eea/eionet.acl"
	"github.com/eea/eionet.acl/authn"
)

// fakeDirectory stands in for an LDAP-style backend.
type fakeDirectory struct {
	passwords map[string]string
	fullNames map[string]string
	logins    int
}

func (d *fakeDirectory) Login(_ context.Context, userName, password string) error {
	d.logins++
	stored, ok := d.passwords[userName]
	if !ok {
		return oops.Code(authn.CodeUserNotFound).Errorf("no such directory user")
	}
	if stored != password {
		return oops.Code(authn.CodeBadCredentials).Errorf("password incorrect")
	}
	return nil
}

func (d *fakeDirectory) FullName(_ context.Context, userName string) (string, error) {
	return d.fullNames[userName], nil
}

var _ authn.Service = (*fakeDirectory)(nil)

func newChain(t *testing.T) (*authn.Chain, *fakeDirectory) {
	t.Helper()
	local := newLocalService(t, `<local-users>
  <user username="juhan" password="localpass" fullname="Juhan Tamm"/>
</local-users>`)
	dir := &fakeDirectory{
		passwords: map[string]string{"kaido": "dirpass"},
		fullNames: map[string]string{"kaido": "Kaido Laine"},
	}
	return authn.NewChain(local, dir), dir
}

func TestChain_Login(t *testing.T) {
	chain, dir := newChain(t)
	ctx := context.Background()

	// local account never reaches the directory
	require.NoError(t, chain.Login(ctx, "juhan", "localpass"))
	assert.Zero(t, dir.logins)

	// a wrong local password fails without a directory attempt
	err := chain.Login(ctx, "juhan", "dirpass")
	assert.True(t, acl.HasCode(err, authn.CodeBadCredentials))
	assert.Zero(t, dir.logins)

	// unknown local accounts fall through
	require.NoError(t, chain.Login(ctx, "kaido", "dirpass"))
	assert.Equal(t, 1, dir.logins)

	err = chain.Login(ctx, "stranger", "x")
	assert.True(t, acl.HasCode(err, authn.CodeUserNotFound))
}

func TestChain_LoginWithoutDirectory(t *testing.T) {
	local := newLocalService(t, `<local-users>
  <user username="juhan" password="localpass"/>
</local-users>`)
	chain := authn.NewChain(local, nil)
	ctx := context.Background()

	require.NoError(t, chain.Login(ctx, "juhan", "localpass"))
	err := chain.Login(ctx, "kaido", "dirpass")
	assert.True(t, acl.HasCode(err, authn.CodeUserNotFound))
}

func TestChain_FullName(t *testing.T) {
	chain, _ := newChain(t)
	ctx := context.Background()

	name, err := chain.FullName(ctx, "juhan")
	require.NoError(t, err)
	assert.Equal(t, "Juhan Tamm", name)

	name, err = chain.FullName(ctx, "kaido")
	require.NoError(t, err)
	assert.Equal(t, "Kaido Laine", name)

	// neither backend knows the account
	name, err = chain.FullName(ctx, "stranger")
	require.NoError(t, err)
	assert.Equal(t, "stranger", name)
}

func TestChain_FullNameLocalUnsupported(t *testing.T) {
	local, err := authn.NewLocalService("", nil)
	require.NoError(t, err)
	dir := &fakeDirectory{fullNames: map[string]string{"kaido": "Kaido Laine"}}
	chain := authn.NewChain(local, dir)

	name, err := chain.FullName(context.Background(), "kaido")
	require.NoError(t, err)
	assert.Equal(t, "Kaido Laine", name)
}
