// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package acl

import "sort"

// Permission is a named capability token, e.g. "v" for view. The token
// is the identity; the description is display text only.
type Permission struct {
	Token       string
	Description string
}

// Catalog is the closed set of permission tokens the deployment knows.
// Any token outside the catalog is a hard failure wherever it appears.
type Catalog struct {
	perms map[string]Permission
}

func NewCatalog() *Catalog {
	return &Catalog{perms: make(map[string]Permission)}
}

// Add registers a permission, overwriting any earlier description for
// the same token.
func (c *Catalog) Add(p Permission) {
	c.perms[p.Token] = p
}

// Resolve looks up a token in the catalog.
func (c *Catalog) Resolve(token string) (Permission, bool) {
	p, ok := c.perms[token]
	return p, ok
}

// Descriptions returns token -> description for every known permission.
func (c *Catalog) Descriptions() map[string]string {
	out := make(map[string]string, len(c.perms))
	for tok, p := range c.perms {
		out[tok] = p.Description
	}
	return out
}

// Tokens returns the known tokens sorted.
func (c *Catalog) Tokens() []string {
	out := make([]string, 0, len(c.perms))
	for tok := range c.perms {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) Len() int { return len(c.perms) }
