package graphstore

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/emergent-company/typegraph/domain/knowledge"
	"github.com/emergent-company/typegraph/domain/ontology"
	"github.com/emergent-company/typegraph/domain/subgraph"
	"github.com/emergent-company/typegraph/pkg/apperror"
)

// Handler handles HTTP requests for the graph store.
type Handler struct {
	store *Store
}

// NewHandler creates a new graph store handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// OntologyTypeRequest carries a type document and the acting account.
type OntologyTypeRequest struct {
	Schema    json.RawMessage    `json:"schema"`
	AccountID ontology.AccountID `json:"accountId"`
}

type EntityRequest struct {
	Entity       knowledge.Entity      `json:"entity"`
	EntityTypeID ontology.VersionedURI `json:"entityTypeId"`
	AccountID    ontology.AccountID    `json:"accountId"`
}

type LinkRequest struct {
	Link      knowledge.Link     `json:"link"`
	AccountID ontology.AccountID `json:"accountId"`
}

type AccountRequest struct {
	AccountID ontology.AccountID `json:"accountId"`
}

func bindTypeRequest[T ontology.Type](c echo.Context, parse func([]byte) (T, error)) (T, ontology.AccountID, error) {
	var zero T
	var req OntologyTypeRequest
	if err := c.Bind(&req); err != nil {
		return zero, uuid.Nil, apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	if len(req.Schema) == 0 {
		return zero, uuid.Nil, apperror.ErrBadRequest.WithMessage("schema is required")
	}
	if req.AccountID == uuid.Nil {
		return zero, uuid.Nil, apperror.ErrBadRequest.WithMessage("accountId is required")
	}
	doc, err := parse(req.Schema)
	if err != nil {
		return zero, uuid.Nil, apperror.NewBadRequest(err.Error())
	}
	return doc, req.AccountID, nil
}

func createTypeHandler[T ontology.Type](parse func([]byte) (T, error), create func(context.Context, T, ontology.AccountID, ontology.AccountID) (ontology.Metadata, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		doc, accountID, err := bindTypeRequest(c, parse)
		if err != nil {
			return err
		}
		result, err := create(c.Request().Context(), doc, accountID, accountID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, result)
	}
}

func updateTypeHandler[T ontology.Type](parse func([]byte) (T, error), update func(context.Context, T, ontology.AccountID) (ontology.Metadata, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		doc, accountID, err := bindTypeRequest(c, parse)
		if err != nil {
			return err
		}
		result, err := update(c.Request().Context(), doc, accountID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, result)
	}
}

func queryHandler[Q any](get func(context.Context, Q) (*subgraph.Subgraph, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		var q Q
		if err := c.Bind(&q); err != nil {
			return apperror.ErrBadRequest.WithMessage("invalid query").WithInternal(err)
		}
		result, err := get(c.Request().Context(), q)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, result)
	}
}

// POST /api/data-types
func (h *Handler) CreateDataType(c echo.Context) error {
	return createTypeHandler(ontology.ParseDataType, h.store.CreateDataType)(c)
}

// PUT /api/data-types
func (h *Handler) UpdateDataType(c echo.Context) error {
	return updateTypeHandler(ontology.ParseDataType, h.store.UpdateDataType)(c)
}

// POST /api/data-types/query
func (h *Handler) QueryDataTypes(c echo.Context) error {
	return queryHandler(h.store.GetDataType)(c)
}

// POST /api/property-types
func (h *Handler) CreatePropertyType(c echo.Context) error {
	return createTypeHandler(ontology.ParsePropertyType, h.store.CreatePropertyType)(c)
}

// PUT /api/property-types
func (h *Handler) UpdatePropertyType(c echo.Context) error {
	return updateTypeHandler(ontology.ParsePropertyType, h.store.UpdatePropertyType)(c)
}

// POST /api/property-types/query
func (h *Handler) QueryPropertyTypes(c echo.Context) error {
	return queryHandler(h.store.GetPropertyType)(c)
}

// POST /api/link-types
func (h *Handler) CreateLinkType(c echo.Context) error {
	return createTypeHandler(ontology.ParseLinkType, h.store.CreateLinkType)(c)
}

// PUT /api/link-types
func (h *Handler) UpdateLinkType(c echo.Context) error {
	return updateTypeHandler(ontology.ParseLinkType, h.store.UpdateLinkType)(c)
}

// POST /api/link-types/query
func (h *Handler) QueryLinkTypes(c echo.Context) error {
	return queryHandler(h.store.GetLinkType)(c)
}

// POST /api/entity-types
func (h *Handler) CreateEntityType(c echo.Context) error {
	return createTypeHandler(ontology.ParseEntityType, h.store.CreateEntityType)(c)
}

// PUT /api/entity-types
func (h *Handler) UpdateEntityType(c echo.Context) error {
	return updateTypeHandler(ontology.ParseEntityType, h.store.UpdateEntityType)(c)
}

// POST /api/entity-types/query
func (h *Handler) QueryEntityTypes(c echo.Context) error {
	return queryHandler(h.store.GetEntityType)(c)
}

func bindEntityRequest(c echo.Context) (EntityRequest, error) {
	var req EntityRequest
	if err := c.Bind(&req); err != nil {
		return req, apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	if req.Entity == nil {
		return req, apperror.ErrBadRequest.WithMessage("entity is required")
	}
	if req.EntityTypeID.BaseURI == "" {
		return req, apperror.ErrBadRequest.WithMessage("entityTypeId is required")
	}
	if req.AccountID == uuid.Nil {
		return req, apperror.ErrBadRequest.WithMessage("accountId is required")
	}
	return req, nil
}

// POST /api/entities
func (h *Handler) CreateEntity(c echo.Context) error {
	req, err := bindEntityRequest(c)
	if err != nil {
		return err
	}

	result, err := h.store.CreateEntity(c.Request().Context(), req.Entity, req.EntityTypeID, req.AccountID, req.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

// PUT /api/entities/:id
func (h *Handler) UpdateEntity(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid entity id")
	}
	req, err := bindEntityRequest(c)
	if err != nil {
		return err
	}

	result, err := h.store.UpdateEntity(c.Request().Context(), id, req.Entity, req.EntityTypeID, req.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// POST /api/entities/query
func (h *Handler) QueryEntities(c echo.Context) error {
	return queryHandler(h.store.GetEntity)(c)
}

func bindLinkRequest(c echo.Context) (LinkRequest, error) {
	var req LinkRequest
	if err := c.Bind(&req); err != nil {
		return req, apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	if req.Link.SourceEntityID == uuid.Nil || req.Link.TargetEntityID == uuid.Nil {
		return req, apperror.ErrBadRequest.WithMessage("sourceEntityId and targetEntityId are required")
	}
	if req.Link.LinkTypeID.BaseURI == "" {
		return req, apperror.ErrBadRequest.WithMessage("linkTypeId is required")
	}
	if req.AccountID == uuid.Nil {
		return req, apperror.ErrBadRequest.WithMessage("accountId is required")
	}
	return req, nil
}

// POST /api/links
func (h *Handler) CreateLink(c echo.Context) error {
	req, err := bindLinkRequest(c)
	if err != nil {
		return err
	}

	if err := h.store.CreateLink(c.Request().Context(), req.Link, req.AccountID, req.AccountID); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, req.Link)
}

// DELETE /api/links
func (h *Handler) RemoveLink(c echo.Context) error {
	req, err := bindLinkRequest(c)
	if err != nil {
		return err
	}

	if err := h.store.RemoveLink(c.Request().Context(), req.Link, req.AccountID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// POST /api/links/query
func (h *Handler) QueryLinks(c echo.Context) error {
	return queryHandler(h.store.GetLink)(c)
}

// POST /api/accounts
func (h *Handler) CreateAccount(c echo.Context) error {
	var req AccountRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	if req.AccountID == uuid.Nil {
		req.AccountID = uuid.New()
	}

	if err := h.store.InsertAccountID(c.Request().Context(), req.AccountID); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, req)
}
