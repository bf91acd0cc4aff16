// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package acl

import (
	"context"
	"sort"
	"strings"

	"github.com/samber/oops"
)

// localGroupsAcl guards group administration when present; the root
// ACL's owner permission stands in otherwise.
const localGroupsAcl = "/localgroups"

// AclInfo is the admin-surface view of one ACL.
type AclInfo struct {
	Name        string
	Description string
	Owner       string
	// Flags tells the administration UI which editor to use:
	// "groupperms" for the local groups ACL, "tableperms" otherwise.
	Flags string
	// IsOwner reports whether the requesting user owns the ACL.
	IsOwner bool
	Entries []Row
}

// ManagerInfo bundles what an ACL administration UI needs up front.
type ManagerInfo struct {
	PermissionDescriptions map[string]string
	LocalGroups            map[string][]string
}

// RemoteService exposes the controller to remote administration
// clients on behalf of one authenticated user. Every call requires a
// user; mutations additionally require ownership of the target ACL.
type RemoteService struct {
	controller *Controller
	userName   string
}

func NewRemoteService(c *Controller, userName string) *RemoteService {
	return &RemoteService{controller: c, userName: userName}
}

func (s *RemoteService) requireUser() error {
	if strings.TrimSpace(s.userName) == "" {
		return oops.Code(CodeNotAuthenticated).Errorf("remote acl access requires an authenticated user")
	}
	return nil
}

// AclInfo returns the named ACL's attributes and rows.
func (s *RemoteService) AclInfo(ctx context.Context, aclName string) (AclInfo, error) {
	if err := s.requireUser(); err != nil {
		return AclInfo{}, err
	}
	acl, err := s.controller.GetAcl(ctx, aclName)
	if err != nil {
		return AclInfo{}, err
	}
	flags := "tableperms"
	if aclName == localGroupsAcl {
		flags = "groupperms"
	}
	return AclInfo{
		Name:        acl.Name(),
		Description: acl.Description(),
		Owner:       acl.OwnerName(),
		Flags:       flags,
		IsOwner:     acl.IsOwner(s.userName),
		Entries:     acl.EntryRows(),
	}, nil
}

// UserPermissions returns the permissions another user holds on the
// named ACL. Only the ACL's owner may ask.
func (s *RemoteService) UserPermissions(ctx context.Context, userName, aclName string) ([]string, error) {
	if err := s.requireUser(); err != nil {
		return nil, err
	}
	acl, err := s.controller.GetAcl(ctx, aclName)
	if err != nil {
		return nil, err
	}
	if !acl.IsOwner(s.userName) {
		return nil, oops.Code(CodeNotOwner).
			With("acl", aclName).
			With("user", s.userName).
			Errorf("user %q does not own acl %q", s.userName, aclName)
	}
	return acl.Permissions(userName), nil
}

// groupAdminGate names the ACL and permission protecting group
// administration: the view or update token on /localgroups when that
// ACL exists, the owner token on the root ACL otherwise.
func (s *RemoteService) groupAdminGate(ctx context.Context, token string) (allowed bool, err error) {
	exists, err := s.controller.AclExists(ctx, localGroupsAcl)
	if err != nil {
		return false, err
	}
	aclName := localGroupsAcl
	if !exists {
		aclName = "/"
		token = s.controller.props.OwnerPermission
	}
	return s.controller.HasPermission(ctx, s.userName, aclName, token)
}

// LocalGroups returns the local group rosters. A user without view
// access to the group administration ACL gets an empty map, not an
// error.
func (s *RemoteService) LocalGroups(ctx context.Context) (map[string][]string, error) {
	if err := s.requireUser(); err != nil {
		return nil, err
	}
	allowed, err := s.groupAdminGate(ctx, "v")
	if err != nil {
		return nil, err
	}
	if !allowed {
		return map[string][]string{}, nil
	}
	return s.controller.Groups(ctx)
}

// SetLocalGroups replaces the local group rosters. Requires the update
// token on the group administration ACL.
func (s *RemoteService) SetLocalGroups(ctx context.Context, groups map[string][]string) error {
	if err := s.requireUser(); err != nil {
		return err
	}
	allowed, err := s.groupAdminGate(ctx, "u")
	if err != nil {
		return err
	}
	if !allowed {
		return oops.Code(CodeNotOwner).
			With("user", s.userName).
			Errorf("user %q may not change local groups", s.userName)
	}
	return s.controller.SetGroups(ctx, groups)
}

// AclInfos returns the info of every loaded ACL, sorted by name.
func (s *RemoteService) AclInfos(ctx context.Context) ([]AclInfo, error) {
	names, err := s.AllAcls(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AclInfo, 0, len(names))
	for _, name := range names {
		info, err := s.AclInfo(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// AllAcls returns every loaded ACL name, sorted.
func (s *RemoteService) AllAcls(ctx context.Context) ([]string, error) {
	if err := s.requireUser(); err != nil {
		return nil, err
	}
	return s.controller.AclNames(ctx)
}

// ChildrenAcls returns the names of ACLs directly under the given
// parent path.
func (s *RemoteService) ChildrenAcls(ctx context.Context, parent string) ([]string, error) {
	names, err := s.AllAcls(ctx)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(parent, "/") + "/"
	var out []string
	for _, name := range names {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok || rest == "" || strings.Contains(rest, "/") {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// ManagerInfo returns the permission catalog and local groups for the
// administration UI.
func (s *RemoteService) ManagerInfo(ctx context.Context) (ManagerInfo, error) {
	if err := s.requireUser(); err != nil {
		return ManagerInfo{}, err
	}
	descrs, err := s.controller.PermissionDescriptions(ctx)
	if err != nil {
		return ManagerInfo{}, err
	}
	groups, err := s.LocalGroups(ctx)
	if err != nil {
		return ManagerInfo{}, err
	}
	return ManagerInfo{
		PermissionDescriptions: descrs,
		LocalGroups:            groups,
	}, nil
}

// SetAclRows replaces the target ACL's rows and description on behalf
// of the requesting user, who must own it.
func (s *RemoteService) SetAclRows(ctx context.Context, aclName, description string, rows []Row) error {
	if err := s.requireUser(); err != nil {
		return err
	}
	acl, err := s.controller.GetAcl(ctx, aclName)
	if err != nil {
		return err
	}
	if !acl.IsOwner(s.userName) {
		return oops.Code(CodeNotOwner).
			With("acl", aclName).
			With("user", s.userName).
			Errorf("user %q does not own acl %q", s.userName, aclName)
	}
	attrs := map[string]string{}
	if description != "" {
		attrs["description"] = description
	}
	return s.controller.SetAclRows(ctx, aclName, attrs, rows)
}
