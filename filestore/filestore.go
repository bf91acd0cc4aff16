// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

// Package filestore persists ACLs, local groups and the permission
// catalog in files. ACLs live one per file under a folder, named after
// the ACL path with slashes turned into underscores. Files ending in
// .xml use the XML format; everything else is the plain text row
// format. The backend is read-mostly: structural mutations are not
// supported.
package filestore

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/oops"

	acl "github.com/eea/eionet.acl"
)

// Store implements acl.Persistence over a directory of ACL files.
type Store struct {
	cfg    acl.FilesConfig
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func New(cfg acl.FilesConfig, opts ...Option) *Store {
	s := &Store{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ acl.Persistence = (*Store)(nil)

func isXMLFile(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".xml")
}

// ReadPermissions loads the permission catalog. The text format is one
// "token:description" line per permission.
func (s *Store) ReadPermissions(_ context.Context) ([]acl.Permission, error) {
	if isXMLFile(s.cfg.Permissions) {
		return readPermissionsXML(s.cfg.Permissions)
	}
	lines, err := readFileRows(s.cfg.Permissions)
	if err != nil {
		return nil, err
	}
	perms := make([]acl.Permission, 0, len(lines))
	for _, line := range lines {
		token, descr, ok := strings.Cut(line, ":")
		if !ok {
			return nil, oops.Code(acl.CodeInvalidConfig).
				With("file", s.cfg.Permissions).
				Errorf("malformed permission row %q", line)
		}
		perms = append(perms, acl.Permission{Token: token, Description: descr})
	}
	return perms, nil
}

// ReadGroups loads local groups. The text format is one
// "group:member,member" line per group.
func (s *Store) ReadGroups(_ context.Context, reg *acl.Registry) error {
	if isXMLFile(s.cfg.LocalGroups) {
		groups, err := readGroupsXML(s.cfg.LocalGroups)
		if err != nil {
			return err
		}
		registerGroups(reg, groups)
		return nil
	}
	lines, err := readFileRows(s.cfg.LocalGroups)
	if err != nil {
		return err
	}
	groups := make(map[string][]string, len(lines))
	for _, line := range lines {
		name, members, ok := strings.Cut(line, ":")
		if !ok {
			return oops.Code(acl.CodeInvalidConfig).
				With("file", s.cfg.LocalGroups).
				Errorf("malformed group row %q", line)
		}
		groups[name] = acl.SplitPermissions(members)
	}
	registerGroups(reg, groups)
	return nil
}

func registerGroups(reg *acl.Registry, groups map[string][]string) {
	for name, members := range groups {
		g := acl.NewGroup(name)
		for _, m := range members {
			g.AddMember(acl.NewUser(m))
		}
		reg.AddGroup(g)
	}
}

// WriteGroups replaces the stored groups in the format the configured
// file already uses.
func (s *Store) WriteGroups(_ context.Context, groups map[string][]string) error {
	if isXMLFile(s.cfg.LocalGroups) {
		return writeGroupsXML(s.cfg.LocalGroups, groups)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, name+":"+strings.Join(groups[name], ","))
	}
	return writeFileRows(s.cfg.LocalGroups, lines)
}

// InitAcls loads and resolves every .acl and .acl.xml file in the
// configured folder.
func (s *Store) InitAcls(ctx context.Context, r *acl.Resolver) (map[string]*acl.AccessControlList, error) {
	entries, err := os.ReadDir(s.cfg.AclDir)
	if err != nil {
		return nil, oops.Code(acl.CodeStorageUnavailable).
			With("dir", s.cfg.AclDir).
			Wrapf(err, "reading acl folder")
	}
	out := make(map[string]*acl.AccessControlList)
	for _, entry := range entries {
		if entry.IsDir() || !isAclFile(entry.Name()) {
			continue
		}
		name := aclNameFromFile(entry.Name())
		path := filepath.Join(s.cfg.AclDir, entry.Name())
		rows, description, err := s.readAclFile(path)
		if err != nil {
			return nil, err
		}
		list, err := r.BuildAcl(ctx, name, "", description, rows)
		if err != nil {
			return nil, err
		}
		out[name] = list
	}
	s.logger.Debug("acl files loaded", "dir", s.cfg.AclDir, "count", len(out))
	return out, nil
}

// readAclFile returns the file's rows in text form regardless of the
// on-disk format.
func (s *Store) readAclFile(path string) (rows []string, description string, err error) {
	if isXMLFile(path) {
		return readAclXML(path)
	}
	rows, err = readFileRows(path)
	return rows, "", err
}

// AddAcl is not supported: file ACLs are provisioned by deployment.
func (s *Store) AddAcl(context.Context, acl.AddRequest) error {
	return oops.Code(acl.CodeNotSupported).Errorf("file-backed acls cannot be created at runtime")
}

func (s *Store) RemoveAcl(_ context.Context, path string) error {
	return oops.Code(acl.CodeNotSupported).With("acl", path).Errorf("file-backed acls cannot be removed")
}

func (s *Store) RenameAcl(_ context.Context, oldPath, _ string) error {
	return oops.Code(acl.CodeNotSupported).With("acl", oldPath).Errorf("file-backed acls cannot be renamed")
}

// WriteAcl rewrites an existing ACL file in place, keeping whatever
// format the file already has.
func (s *Store) WriteAcl(_ context.Context, path string, attrs map[string]string, rows []acl.Row) error {
	base := filepath.Join(s.cfg.AclDir, strings.ReplaceAll(path, "/", "_"))
	xmlPath := base + ".acl.xml"
	if _, err := os.Stat(xmlPath); err == nil {
		return writeAclXML(xmlPath, attrs, rows)
	}
	lines := make([]string, 0, len(rows)+1)
	if descr := attrs["description"]; descr != "" {
		lines = append(lines, acl.FormatRow(acl.Row{
			PrincipalType: acl.TypeDescription,
			PrincipalID:   descr,
		}))
	}
	for _, row := range rows {
		lines = append(lines, acl.FormatRow(row))
	}
	return writeFileRows(base+".acl", lines)
}

func isAclFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".acl") || strings.HasSuffix(lower, ".acl.xml")
}

// aclNameFromFile maps a file name back to the ACL name, e.g.
// "_datasets_birds.acl" to "/datasets/birds".
func aclNameFromFile(fileName string) string {
	name := fileName
	if idx := strings.Index(strings.ToLower(name), ".acl"); idx >= 0 {
		name = name[:idx]
	}
	return strings.ReplaceAll(name, "_", "/")
}

// readFileRows loads trimmed, non-blank lines.
func readFileRows(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, oops.Code(acl.CodeStorageUnavailable).With("file", path).Wrapf(err, "opening file")
	}
	defer f.Close()
	var rows []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			rows = append(rows, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, oops.Code(acl.CodeStorageUnavailable).With("file", path).Wrapf(err, "reading file")
	}
	return rows, nil
}

func writeFileRows(path string, rows []string) error {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(row)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return oops.Code(acl.CodeStorageUnavailable).With("file", path).Wrapf(err, "writing file")
	}
	return nil
}
