package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"portal-service/internal/model"
	"portal-service/internal/tenant"
	"portal-service/pkg/logger"
	"portal-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ItemResolver resolves a company name to its tenant schema and reads the
// items table.
type ItemResolver interface {
	FetchItems(ctx context.Context, companyName string) ([]model.Item, error)
}

// ItemHandler serves the tenant item lookup endpoint.
type ItemHandler struct {
	resolver   ItemResolver
	production bool
}

func NewItemHandler(resolver ItemResolver, production bool) *ItemHandler {
	return &ItemHandler{resolver: resolver, production: production}
}

// GetItems returns all rows from the tenant's items table, newest first.
func (h *ItemHandler) GetItems(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.ItemLookupCounter.Inc()

	companyName := c.QueryParam("companyName")
	if companyName == "" {
		log.Warn("Company name is missing in request")
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": "Company name is required",
		})
	}

	log.Info("Fetching tenant items", zap.String("company_name", companyName))

	defer prometheus.TrackDBOperation("item_fetch")(time.Now())
	items, err := h.resolver.FetchItems(c.Request().Context(), companyName)
	switch {
	case errors.Is(err, tenant.ErrSchemaNotFound):
		prometheus.RecordTenantError("schema_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{
			"success": false,
			"message": fmt.Sprintf("Company schema '%s' not found", companyName),
			"error":   "SCHEMA_NOT_FOUND",
		})
	case errors.Is(err, tenant.ErrTableNotFound):
		prometheus.RecordTenantError("table_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{
			"success": false,
			"message": fmt.Sprintf("Items table not found in company schema '%s'", companyName),
			"error":   "TABLE_NOT_FOUND",
		})
	case err != nil:
		log.Error("Failed to fetch items",
			zap.String("company_name", companyName),
			zap.Error(err))
		prometheus.RecordTenantError("query_failed")
		resp := echo.Map{
			"success": false,
			"message": "Failed to fetch items",
			"error":   err.Error(),
		}
		if !h.production {
			resp["stack"] = string(debug.Stack())
		}
		return c.JSON(http.StatusInternalServerError, resp)
	}

	log.Info("Items fetched",
		zap.String("company_name", companyName),
		zap.Int("count", len(items)))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"items":   items,
	})
}
