// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

// Package provider constructs the persistence backend named by the
// configuration.
package provider

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	acl "github.com/eea/eionet.acl"
	"github.com/eea/eionet.acl/filestore"
	"github.com/eea/eionet.acl/mixstore"
	"github.com/eea/eionet.acl/pgstore"
)

// New builds the acl.Persistence for props. The returned cleanup
// releases any database pool and is safe to call exactly once.
func New(ctx context.Context, props acl.Properties, logger *slog.Logger) (acl.Persistence, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	files := filestore.New(props.Persistence.Files, filestore.WithLogger(logger))

	switch props.Persistence.Provider {
	case acl.ProviderFile:
		return files, func() {}, nil

	case acl.ProviderPostgres:
		db, err := pgstore.Connect(ctx, props.Persistence.Database.URL, pgstore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil

	case acl.ProviderMix:
		db, err := pgstore.Connect(ctx, props.Persistence.Database.URL, pgstore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return mixstore.New(files, db), db.Close, nil

	default:
		return nil, nil, oops.Code(acl.CodeInvalidConfig).
			With("provider", props.Persistence.Provider).
			Errorf("unknown persistence provider %q", props.Persistence.Provider)
	}
}
