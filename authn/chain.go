// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package authn

import (
	"context"

	"github.com/samber/oops"

	acl "github.com/eea/eionet.acl"
)

// Chain tries the local service first and falls through to the
// directory for accounts the local file does not list. A wrong
// password for a listed local account fails immediately; the
// directory is not consulted for it.
type Chain struct {
	local     Service
	directory Service
}

var _ Service = (*Chain)(nil)

// NewChain combines a local service with an optional directory
// service.
func NewChain(local, directory Service) *Chain {
	return &Chain{local: local, directory: directory}
}

func (c *Chain) Login(ctx context.Context, userName, password string) error {
	err := c.local.Login(ctx, userName, password)
	if err == nil {
		return nil
	}
	if !acl.HasCode(err, CodeUserNotFound) && !acl.HasCode(err, CodeAuthNotLocal) {
		return err
	}
	if c.directory == nil {
		return oops.Code(CodeUserNotFound).Errorf("no such user")
	}
	return c.directory.Login(ctx, userName, password)
}

// FullName resolves the display name, preferring the local file. When
// neither service knows the account the user id itself comes back.
func (c *Chain) FullName(ctx context.Context, userName string) (string, error) {
	name, err := c.local.FullName(ctx, userName)
	if err != nil && !acl.HasCode(err, CodeAuthNotLocal) {
		return "", err
	}
	if name != "" {
		return name, nil
	}
	if c.directory != nil {
		name, err = c.directory.FullName(ctx, userName)
		if err == nil && name != "" {
			return name, nil
		}
	}
	return userName, nil
}
