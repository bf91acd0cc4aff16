// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package acl

import (
	"os"
	"unicode/utf8"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Persistence provider names accepted in configuration.
const (
	ProviderFile     = "file"
	ProviderPostgres = "postgres"
	ProviderMix      = "mix"
)

// FilesConfig locates the file-backed artifacts: the ACL folder plus
// the group, user and permission definition files. Files ending in
// .xml are parsed as XML, anything else as the text format.
type FilesConfig struct {
	AclDir      string `koanf:"acl_dir"`
	LocalGroups string `koanf:"local_groups"`
	LocalUsers  string `koanf:"local_users"`
	Permissions string `koanf:"permissions"`
}

// DatabaseConfig configures the PostgreSQL backend.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// PersistenceConfig selects and configures the storage backend.
type PersistenceConfig struct {
	Provider string         `koanf:"provider"`
	Files    FilesConfig    `koanf:"files"`
	Database DatabaseConfig `koanf:"database"`
}

// Properties is the deployment configuration. Values load in layers:
// struct defaults, then an optional YAML file, then ACL_* environment
// variables.
type Properties struct {
	// OwnerPermission is the single-character token whose grant makes
	// a principal an owner of the ACL carrying it.
	OwnerPermission string `koanf:"owner_permission"`
	// AnonymousAccess is the registry user name checked for requests
	// with no user.
	AnonymousAccess string `koanf:"anonymous_access"`
	// AuthenticatedAccess is the registry user name every signed-in
	// user falls back to.
	AuthenticatedAccess string `koanf:"authenticated_access"`
	// DefaultDocPermissions seeds the synthesized template row when a
	// parent has none for the kind being created.
	DefaultDocPermissions string            `koanf:"defaultdoc_permissions"`
	Persistence           PersistenceConfig `koanf:"persistence"`
}

func DefaultProperties() Properties {
	return Properties{
		OwnerPermission:       "c",
		AnonymousAccess:       "anonymous",
		AuthenticatedAccess:   "authenticated",
		DefaultDocPermissions: "v",
		Persistence: PersistenceConfig{
			Provider: ProviderFile,
			Files: FilesConfig{
				AclDir:      "acls",
				LocalGroups: "acls/groups.xml",
				LocalUsers:  "acls/users.xml",
				Permissions: "acls/permissions.txt",
			},
		},
	}
}

// envKeyMap routes ACL_* environment variables onto nested keys. Flat
// keys with underscores in their own names make a generic transform
// ambiguous, so the mapping is explicit.
var envKeyMap = map[string]string{
	"ACL_OWNER_PERMISSION":       "owner_permission",
	"ACL_ANONYMOUS_ACCESS":       "anonymous_access",
	"ACL_AUTHENTICATED_ACCESS":   "authenticated_access",
	"ACL_DEFAULTDOC_PERMISSIONS": "defaultdoc_permissions",
	"ACL_PERSISTENCE_PROVIDER":   "persistence.provider",
	"ACL_FILES_ACL_DIR":          "persistence.files.acl_dir",
	"ACL_FILES_LOCAL_GROUPS":     "persistence.files.local_groups",
	"ACL_FILES_LOCAL_USERS":      "persistence.files.local_users",
	"ACL_FILES_PERMISSIONS":      "persistence.files.permissions",
	"ACL_DATABASE_URL":           "persistence.database.url",
}

// flagKeyMap routes command line flags onto nested keys.
var flagKeyMap = map[string]string{
	"provider":     "persistence.provider",
	"acl-dir":      "persistence.files.acl_dir",
	"database-url": "persistence.database.url",
}

// LoadProperties loads configuration with layered precedence:
// environment over file over defaults. An empty path skips the file
// layer; a named file must exist.
func LoadProperties(path string) (Properties, error) {
	return LoadPropertiesWithFlags(path, nil)
}

// LoadPropertiesWithFlags is LoadProperties with a final layer of
// command line flags on top. Only flags named in flagKeyMap and
// changed from their defaults override the other layers.
func LoadPropertiesWithFlags(path string, flags *pflag.FlagSet) (Properties, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultProperties(), "koanf"), nil); err != nil {
		return Properties{}, oops.Code(CodeInvalidConfig).Wrapf(err, "loading defaults")
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Properties{}, oops.Code(CodeInvalidConfig).With("path", path).Wrapf(err, "config file not readable")
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Properties{}, oops.Code(CodeInvalidConfig).With("path", path).Wrapf(err, "parsing config file")
		}
	}

	envProvider := env.Provider("ACL_", ".", func(s string) string {
		return envKeyMap[s]
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Properties{}, oops.Code(CodeInvalidConfig).Wrapf(err, "loading environment")
	}

	if flags != nil {
		flagProvider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return flagKeyMap[f.Name], posflag.FlagVal(flags, f)
		})
		if err := k.Load(flagProvider, nil); err != nil {
			return Properties{}, oops.Code(CodeInvalidConfig).Wrapf(err, "loading flags")
		}
	}

	var props Properties
	if err := k.Unmarshal("", &props); err != nil {
		return Properties{}, oops.Code(CodeInvalidConfig).Wrapf(err, "unmarshaling configuration")
	}
	if err := props.Validate(); err != nil {
		return Properties{}, err
	}
	return props, nil
}

// Validate enforces the structural constraints the engine depends on.
func (p Properties) Validate() error {
	if utf8.RuneCountInString(p.OwnerPermission) != 1 {
		return oops.Code(CodeInvalidConfig).
			With("owner_permission", p.OwnerPermission).
			Errorf("owner permission must be exactly one character")
	}
	if p.AnonymousAccess == "" || p.AuthenticatedAccess == "" {
		return oops.Code(CodeInvalidConfig).Errorf("anonymous and authenticated access names must be set")
	}
	switch p.Persistence.Provider {
	case ProviderFile, ProviderPostgres, ProviderMix:
	default:
		return oops.Code(CodeInvalidConfig).
			With("provider", p.Persistence.Provider).
			Errorf("unknown persistence provider")
	}
	if p.Persistence.Provider != ProviderFile && p.Persistence.Database.URL == "" {
		return oops.Code(CodeInvalidConfig).Errorf("persistence provider %q requires a database url", p.Persistence.Provider)
	}
	return nil
}

// DefaultDocTokens returns the configured default permissions as a
// token list.
func (p Properties) DefaultDocTokens() []string {
	return SplitPermissions(p.DefaultDocPermissions)
}
