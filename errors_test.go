// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package acl_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	acl "github.com/eea/eionet.acl"
)

func TestHasCode(t *testing.T) {
	err := oops.Code(acl.CodeAclNotFound).Errorf("no such acl")
	assert.True(t, acl.HasCode(err, acl.CodeAclNotFound))
	assert.False(t, acl.HasCode(err, acl.CodeNotOwner))
	assert.False(t, acl.HasCode(errors.New("plain"), acl.CodeAclNotFound))
	assert.False(t, acl.HasCode(nil, acl.CodeAclNotFound))
}

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code(acl.CodeUnknownPermission).
		With("permission", "zz").
		Errorf("unknown permission token")

	acl.LogError(logger, "check failed", err)

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Equal(t, "check failed", logEntry["msg"])
	assert.Equal(t, acl.CodeUnknownPermission, logEntry["code"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	acl.LogError(logger, "check failed", errors.New("boom"))

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Contains(t, logEntry["error"], "boom")
}
