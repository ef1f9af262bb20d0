package graphstore

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the graph store routes.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api")

	dataTypes := g.Group("/data-types")
	dataTypes.POST("", h.CreateDataType)
	dataTypes.PUT("", h.UpdateDataType)
	dataTypes.POST("/query", h.QueryDataTypes)

	propertyTypes := g.Group("/property-types")
	propertyTypes.POST("", h.CreatePropertyType)
	propertyTypes.PUT("", h.UpdatePropertyType)
	propertyTypes.POST("/query", h.QueryPropertyTypes)

	linkTypes := g.Group("/link-types")
	linkTypes.POST("", h.CreateLinkType)
	linkTypes.PUT("", h.UpdateLinkType)
	linkTypes.POST("/query", h.QueryLinkTypes)

	entityTypes := g.Group("/entity-types")
	entityTypes.POST("", h.CreateEntityType)
	entityTypes.PUT("", h.UpdateEntityType)
	entityTypes.POST("/query", h.QueryEntityTypes)

	entities := g.Group("/entities")
	entities.POST("", h.CreateEntity)
	entities.PUT("/:id", h.UpdateEntity)
	entities.POST("/query", h.QueryEntities)

	links := g.Group("/links")
	links.POST("", h.CreateLink)
	links.DELETE("", h.RemoveLink)
	links.POST("/query", h.QueryLinks)

	g.POST("/accounts", h.CreateAccount)
}
