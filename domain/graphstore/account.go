package graphstore

import (
	"context"
	"log/slog"

	"github.com/emergent-company/typegraph/domain/ontology"
	"github.com/emergent-company/typegraph/pkg/apperror"
	"github.com/emergent-company/typegraph/pkg/pgutils"
)

// InsertAccountID registers an account so records can reference it.
func (s *Store) InsertAccountID(ctx context.Context, id ontology.AccountID) error {
	_, err := s.db.NewInsert().
		Model(&Account{AccountID: id}).
		Returning("account_id").
		Exec(ctx)
	observeWrite("insert_account", err)
	if pgutils.IsUniqueViolation(err) {
		return apperror.ErrConflict.WithMessage("Account already exists").WithInternal(err).WithDetail(detailAccountID, id.String())
	}
	if err != nil {
		return ErrInsertion.WithInternal(err).WithDetail(detailAccountID, id.String())
	}

	s.log.Info("account inserted", slog.String("account_id", id.String()))
	return nil
}
