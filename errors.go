// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package acl

import (
	"log/slog"

	"github.com/samber/oops"
)

// Error codes attached to oops errors raised by this module. Callers
// should branch on codes via HasCode rather than matching messages.
const (
	CodeUnknownPermission  = "UNKNOWN_PERMISSION"
	CodeAclNotFound        = "ACL_NOT_FOUND"
	CodeAclExists          = "ACL_EXISTS"
	CodeNotOwner           = "NOT_OWNER"
	CodeInvalidPath        = "INVALID_PATH"
	CodeInvalidOwner       = "INVALID_OWNER"
	CodeInvalidConfig      = "INVALID_CONFIG"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeNotAuthenticated   = "NOT_AUTHENTICATED"
	CodeNotSupported       = "NOT_SUPPORTED"
)

// HasCode reports whether err (or any error it wraps) carries the
// given oops code.
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Code() == code
	}
	return false
}

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code, and context.
// For standard errors, it logs the error string.
func LogError(logger *slog.Logger, msg string, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != "" {
			attrs = append(attrs, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
		logger.Error(msg, attrs...)
	} else {
		logger.Error(msg, "error", err)
	}
}
