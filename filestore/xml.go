// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package filestore

import (
	"encoding/xml"
	"os"
	"sort"

	"github.com/samber/oops"

	acl "github.com/eea/eionet.acl"
)

// XML document shapes. The element and attribute names follow the
// historical on-disk format, so existing deployments keep working.

type xmlAcl struct {
	XMLName     xml.Name   `xml:"acl"`
	Description string     `xml:"description,attr,omitempty"`
	Entries     []xmlEntry `xml:"entries>entry"`
}

type xmlEntry struct {
	Type        string          `xml:"type,attr"`
	Principal   xmlPrincipal    `xml:"principal"`
	Permissions []xmlPermission `xml:"permissions>permission"`
}

type xmlPrincipal struct {
	Type string `xml:"type,attr"`
	ID   string `xml:"id,attr"`
}

type xmlPermission struct {
	ID          string `xml:"id,attr"`
	Description string `xml:"description,attr,omitempty"`
}

type xmlGroups struct {
	XMLName xml.Name   `xml:"localgroups"`
	Groups  []xmlGroup `xml:"group"`
}

type xmlGroup struct {
	ID      string      `xml:"id,attr"`
	Members []xmlMember `xml:"member"`
}

type xmlMember struct {
	UserID string `xml:"userid,attr"`
}

type xmlPermissions struct {
	XMLName     xml.Name        `xml:"permissions"`
	Permissions []xmlPermission `xml:"permission"`
}

func decodeXMLFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return oops.Code(acl.CodeStorageUnavailable).With("file", path).Wrapf(err, "opening file")
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return oops.Code(acl.CodeInvalidConfig).With("file", path).Wrapf(err, "parsing xml")
	}
	return nil
}

func encodeXMLFile(path string, v any) error {
	data, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return oops.With("file", path).Wrapf(err, "encoding xml")
	}
	data = append([]byte(xml.Header), data...)
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return oops.Code(acl.CodeStorageUnavailable).With("file", path).Wrapf(err, "writing file")
	}
	return nil
}

// readAclXML returns the ACL's entries converted into text rows, so
// both formats feed the same resolution path.
func readAclXML(path string) (rows []string, description string, err error) {
	var doc xmlAcl
	if err := decodeXMLFile(path, &doc); err != nil {
		return nil, "", err
	}
	rows = make([]string, 0, len(doc.Entries))
	for _, entry := range doc.Entries {
		kind, ok := acl.ParseEntryKind(entry.Type)
		if !ok {
			return nil, "", oops.Code(acl.CodeInvalidConfig).
				With("file", path).
				Errorf("unknown entry type %q", entry.Type)
		}
		if entry.Principal.Type == "" || entry.Principal.ID == "" {
			return nil, "", oops.Code(acl.CodeInvalidConfig).
				With("file", path).
				Errorf("entry principal needs type and id attributes")
		}
		perms := make([]string, 0, len(entry.Permissions))
		for _, p := range entry.Permissions {
			perms = append(perms, p.ID)
		}
		rows = append(rows, acl.FormatRow(acl.Row{
			Kind:          kind,
			PrincipalType: entry.Principal.Type,
			PrincipalID:   entry.Principal.ID,
			Permissions:   perms,
		}))
	}
	return rows, doc.Description, nil
}

func writeAclXML(path string, attrs map[string]string, rows []acl.Row) error {
	doc := xmlAcl{Description: attrs["description"]}
	for _, row := range rows {
		perms := make([]xmlPermission, 0, len(row.Permissions))
		for _, tok := range row.Permissions {
			perms = append(perms, xmlPermission{ID: tok})
		}
		doc.Entries = append(doc.Entries, xmlEntry{
			Type:        row.Kind.String(),
			Principal:   xmlPrincipal{Type: row.PrincipalType, ID: row.PrincipalID},
			Permissions: perms,
		})
	}
	return encodeXMLFile(path, doc)
}

func readGroupsXML(path string) (map[string][]string, error) {
	var doc xmlGroups
	if err := decodeXMLFile(path, &doc); err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(doc.Groups))
	for _, g := range doc.Groups {
		members := make([]string, 0, len(g.Members))
		for _, m := range g.Members {
			members = append(members, m.UserID)
		}
		out[g.ID] = members
	}
	return out, nil
}

func writeGroupsXML(path string, groups map[string][]string) error {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	doc := xmlGroups{}
	for _, name := range names {
		g := xmlGroup{ID: name}
		for _, m := range groups[name] {
			g.Members = append(g.Members, xmlMember{UserID: m})
		}
		doc.Groups = append(doc.Groups, g)
	}
	return encodeXMLFile(path, doc)
}

func readPermissionsXML(path string) ([]acl.Permission, error) {
	var doc xmlPermissions
	if err := decodeXMLFile(path, &doc); err != nil {
		return nil, err
	}
	out := make([]acl.Permission, 0, len(doc.Permissions))
	for _, p := range doc.Permissions {
		out = append(out, acl.Permission{Token: p.ID, Description: p.Description})
	}
	return out, nil
}
