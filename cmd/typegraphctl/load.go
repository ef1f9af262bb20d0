package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/emergent-company/typegraph/domain/graphstore"
	"github.com/emergent-company/typegraph/domain/ontology"
	"github.com/emergent-company/typegraph/internal/database"
	"github.com/emergent-company/typegraph/pkg/apperror"
	"github.com/emergent-company/typegraph/pkg/logger"
)

var loadFlags struct {
	account       string
	createAccount bool
}

// kindOrder is the order in which documents are stored so that references
// point at types that already exist.
var kindOrder = map[ontology.Kind]int{
	ontology.KindDataType:     0,
	ontology.KindPropertyType: 1,
	ontology.KindLinkType:     2,
	ontology.KindEntityType:   3,
}

type document struct {
	path string
	kind ontology.Kind
	data []byte
}

func newLoadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load FILE...",
		Short: "Store ontology type documents",
		Long: `Read JSON or YAML type documents and store them in dependency order: data types,
property types, link types, then entity types. Within a kind, files are
stored in the order given.

A document at version 1 creates a new type; any later version updates it.

Examples:
  typegraphctl load --account 2f1c6a0e-7d4b-4e39-9a51-6b8f0c2d3e41 types/*.json
  typegraphctl load --create-account --account 2f1c6a0e-... text.yaml name.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runLoad,
	}

	cmd.Flags().StringVar(&loadFlags.account, "account", "", "account ID owning the stored types (required)")
	cmd.Flags().BoolVar(&loadFlags.createAccount, "create-account", false, "register the account before loading")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	accountID, err := ontology.ParseAccountID(loadFlags.account)
	if err != nil {
		return err
	}

	docs := make([]document, 0, len(args))
	for _, path := range args {
		doc, err := readDocument(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	orderDocuments(docs)

	cfg, dsn, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	log := logger.NewLogger().With(logger.Scope("load"))
	db := database.Bun(pool, cfg.Database, log)
	defer db.Close()

	store := graphstore.NewStore(db, pool, cfg, log)

	if loadFlags.createAccount {
		err := store.InsertAccountID(ctx, accountID)
		if err != nil && !errors.Is(err, apperror.ErrConflict) {
			return err
		}
	}

	for _, doc := range docs {
		uri, err := storeDocument(ctx, store, doc, accountID)
		if err != nil {
			return fmt.Errorf("%s: %w", doc.path, err)
		}
		log.Info("stored type", slog.String("kind", string(doc.kind)), slog.String("uri", uri.String()))
		fmt.Fprintln(cmd.OutOrStdout(), uri)
	}
	return nil
}

func readDocument(path string) (document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document{}, err
	}
	return parseDocument(path, data)
}

func parseDocument(path string, data []byte) (document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		converted, err := yamlToJSON(data)
		if err != nil {
			return document{}, fmt.Errorf("%s: %w", path, err)
		}
		data = converted
	}

	var header struct {
		Kind ontology.Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return document{}, fmt.Errorf("%s: %w", path, err)
	}
	if _, ok := kindOrder[header.Kind]; !ok {
		return document{}, fmt.Errorf("%s: unknown kind %q", path, header.Kind)
	}
	return document{path: path, kind: header.Kind, data: data}, nil
}

// yamlToJSON re-encodes a YAML document as JSON, which is what the type
// parsers read.
func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func orderDocuments(docs []document) {
	slices.SortStableFunc(docs, func(a, b document) int {
		return kindOrder[a.kind] - kindOrder[b.kind]
	})
}

func storeDocument(ctx context.Context, store *graphstore.Store, doc document, account ontology.AccountID) (ontology.VersionedURI, error) {
	switch doc.kind {
	case ontology.KindDataType:
		return storeType(ctx, doc.data, ontology.ParseDataType, store.CreateDataType, store.UpdateDataType, account)
	case ontology.KindPropertyType:
		return storeType(ctx, doc.data, ontology.ParsePropertyType, store.CreatePropertyType, store.UpdatePropertyType, account)
	case ontology.KindLinkType:
		return storeType(ctx, doc.data, ontology.ParseLinkType, store.CreateLinkType, store.UpdateLinkType, account)
	default:
		return storeType(ctx, doc.data, ontology.ParseEntityType, store.CreateEntityType, store.UpdateEntityType, account)
	}
}

func storeType[T ontology.Type](
	ctx context.Context,
	data []byte,
	parse func([]byte) (T, error),
	create func(context.Context, T, ontology.AccountID, ontology.AccountID) (ontology.Metadata, error),
	update func(context.Context, T, ontology.AccountID) (ontology.Metadata, error),
	account uuid.UUID,
) (ontology.VersionedURI, error) {
	doc, err := parse(data)
	if err != nil {
		return ontology.VersionedURI{}, err
	}

	var meta ontology.Metadata
	if doc.ID().Version == 1 {
		meta, err = create(ctx, doc, account, account)
	} else {
		meta, err = update(ctx, doc, account)
	}
	if err != nil {
		return ontology.VersionedURI{}, err
	}
	return meta.Identifier.URI, nil
}
