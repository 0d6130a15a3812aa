/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package livestore

import (
	"context"

	"github.com/suparena/livestore/errors"
	"github.com/suparena/livestore/storagemodels"
)

// PreparedExecSQL runs a raw write statement.
type PreparedExecSQL struct {
	store *Store
	query storagemodels.RawQuery
}

// ExecSQL prepares q for execution. Its AffectsRelations are announced after
// a successful run.
func ExecSQL(s *Store, q storagemodels.RawQuery) *PreparedExecSQL {
	return &PreparedExecSQL{store: s, query: q}
}

// Execute runs the statement and returns the number of rows it changed. The
// affected relations are announced even when no rows changed, since the
// store cannot tell what a raw statement did.
func (p *PreparedExecSQL) Execute(ctx context.Context) (int64, error) {
	if err := p.query.Validate(); err != nil {
		return 0, errors.NewConfigurationError("exec sql", "", err)
	}
	n, err := p.store.ds.Exec(ctx, p.query)
	if err != nil {
		return 0, errors.NewStorageError("exec sql", "", err)
	}
	p.store.publish(p.query.AffectsRelations, nil)
	return n, nil
}
