// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package authn

import (
	"context"
	"crypto/subtle"
	"encoding/xml"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
)

// Error codes raised by authentication services.
const (
	CodeUserNotFound   = "USER_NOT_FOUND"
	CodeBadCredentials = "BAD_CREDENTIALS"
	CodeAuthNotLocal   = "AUTH_NOT_LOCAL"
)

// Service authenticates users and resolves their display names.
type Service interface {
	// Login verifies the credentials. A CodeUserNotFound error means
	// the account is unknown to this service and another service may
	// be tried; CodeBadCredentials means the password was wrong.
	Login(ctx context.Context, userName, password string) error

	// FullName returns the user's display name, or "" if the service
	// does not know the account.
	FullName(ctx context.Context, userName string) (string, error)
}

type localUser struct {
	password string
	fullName string
}

// LocalService authenticates against the local users XML file. Stored
// passwords are argon2id PHC strings; bare values are accepted as
// legacy plaintext passwords.
type LocalService struct {
	users     map[string]localUser
	supported bool
	logger    *slog.Logger
}

var _ Service = (*LocalService)(nil)

type xmlLocalUsers struct {
	XMLName xml.Name       `xml:"local-users"`
	Users   []xmlLocalUser `xml:"user"`
}

type xmlLocalUser struct {
	Username string `xml:"username,attr"`
	Password string `xml:"password,attr"`
	FullName string `xml:"fullname,attr"`
}

// NewLocalService reads the local users file. An empty path or a
// missing file yields an unsupported service whose Login always
// reports CodeAuthNotLocal, so deployments without local users fall
// straight through to the directory.
func NewLocalService(path string, logger *slog.Logger) (*LocalService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &LocalService{users: map[string]localUser{}, logger: logger}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Debug("local users file missing, local authentication disabled", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, oops.Code("AUTH_FILE_UNREADABLE").With("path", path).Wrap(err)
	}

	var parsed xmlLocalUsers
	if err := xml.Unmarshal(data, &parsed); err != nil {
		return nil, oops.Code("AUTH_FILE_MALFORMED").With("path", path).Wrap(err)
	}
	for _, u := range parsed.Users {
		if u.Username == "" {
			continue
		}
		s.users[u.Username] = localUser{password: u.Password, fullName: strings.TrimSpace(u.FullName)}
	}
	s.supported = true
	return s, nil
}

// Supported reports whether a local users file was loaded.
func (s *LocalService) Supported() bool { return s.supported }

func (s *LocalService) Login(_ context.Context, userName, password string) error {
	if !s.supported {
		return oops.Code(CodeAuthNotLocal).Errorf("local authentication not available")
	}
	u, ok := s.users[userName]
	if !ok {
		return oops.Code(CodeUserNotFound).Errorf("no such local user")
	}

	if IsHashed(u.password) {
		match, err := VerifyPassword(password, u.password)
		if err != nil {
			return err
		}
		if !match {
			return oops.Code(CodeBadCredentials).Errorf("password incorrect")
		}
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(u.password)) != 1 {
		return oops.Code(CodeBadCredentials).Errorf("password incorrect")
	}
	return nil
}

// FullName returns the fullname attribute, falling back to the user id
// for accounts listed without one.
func (s *LocalService) FullName(_ context.Context, userName string) (string, error) {
	if !s.supported {
		return "", oops.Code(CodeAuthNotLocal).Errorf("local authentication not available")
	}
	u, ok := s.users[userName]
	if !ok {
		return "", nil
	}
	if u.fullName == "" {
		return userName, nil
	}
	return u.fullName, nil
}
