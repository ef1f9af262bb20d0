package graphstore

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/emergent-company/typegraph/domain/knowledge"
	"github.com/emergent-company/typegraph/domain/ontology"
	"github.com/emergent-company/typegraph/internal/config"
	"github.com/emergent-company/typegraph/pkg/apperror"
)

var errConnectionLost = errors.New("connection lost")

// unavailableDB fails to open any transaction.
type unavailableDB struct {
	bun.IDB
}

func (unavailableDB) BeginTx(context.Context, *sql.TxOptions) (bun.Tx, error) {
	return bun.Tx{}, errConnectionLost
}

func newUnavailableStore() *Store {
	return newStore(unavailableDB{}, nil, config.QueryConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func requireKind(t *testing.T, err error, kind *apperror.Error, status int) *apperror.Error {
	t.Helper()
	require.ErrorIs(t, err, kind)
	assert.ErrorIs(t, err, errConnectionLost)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, status, appErr.HTTPStatus)
	return appErr
}

func TestWrites_TransactionFailure(t *testing.T) {
	ctx := context.Background()
	store := newUnavailableStore()

	dataType, err := ontology.ParseDataType([]byte(textJSON))
	require.NoError(t, err)

	link := knowledge.Link{SourceEntityID: aliceID, TargetEntityID: bobID, LinkTypeID: friendURI}

	t.Run("create data type", func(t *testing.T) {
		_, err := store.CreateDataType(ctx, dataType, account, account)
		appErr := requireKind(t, err, ErrInsertion, http.StatusInternalServerError)
		assert.Equal(t, textURI.String(), appErr.Details[detailVersionedURI])
	})

	t.Run("update data type", func(t *testing.T) {
		_, err := store.UpdateDataType(ctx, dataType, account)
		appErr := requireKind(t, err, ErrUpdate, http.StatusInternalServerError)
		assert.Equal(t, textURI.String(), appErr.Details[detailVersionedURI])
	})

	t.Run("create entity", func(t *testing.T) {
		_, err := store.CreateEntity(ctx, knowledge.Entity{"name": "Alice"}, personURI, account, account)
		appErr := requireKind(t, err, ErrInsertion, http.StatusInternalServerError)
		assert.NotEmpty(t, appErr.Details[detailEntityID])
	})

	t.Run("update entity", func(t *testing.T) {
		_, err := store.UpdateEntity(ctx, aliceID, knowledge.Entity{"name": "Alice"}, personURI, account)
		appErr := requireKind(t, err, ErrUpdate, http.StatusInternalServerError)
		assert.Equal(t, aliceID.String(), appErr.Details[detailEntityID])
	})

	t.Run("create link", func(t *testing.T) {
		err := store.CreateLink(ctx, link, account, account)
		appErr := requireKind(t, err, ErrInsertion, http.StatusInternalServerError)
		assert.Equal(t, friendURI.String(), appErr.Details[detailVersionedURI])
	})

	t.Run("remove link", func(t *testing.T) {
		err := store.RemoveLink(ctx, link, account)
		appErr := requireKind(t, err, ErrLinkRemoval, http.StatusInternalServerError)
		assert.Equal(t, aliceID.String(), appErr.Details["source_entity_id"])
	})
}

func TestWriteError(t *testing.T) {
	details := map[string]any{detailBaseURI: "https://example.com/data-type/text/"}

	assert.NoError(t, writeError(nil, ErrInsertion, details))

	missing := ErrBaseURIDoesNotExist.WithDetail(detailBaseURI, "https://example.com/data-type/text/")
	assert.Same(t, missing, writeError(missing, ErrUpdate, details))

	err := writeError(errConnectionLost, ErrUpdate, details)
	assert.ErrorIs(t, err, ErrUpdate)
	assert.ErrorIs(t, err, errConnectionLost)
	assert.NotErrorIs(t, err, ErrInsertion)
}

func TestErrLinkRemoval_Statuses(t *testing.T) {
	assert.ErrorIs(t, errLinkRemovalFailed, ErrLinkRemoval)
	assert.Equal(t, http.StatusNotFound, ErrLinkRemoval.HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, errLinkRemovalFailed.HTTPStatus)
}
