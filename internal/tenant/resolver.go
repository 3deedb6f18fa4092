package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"portal-service/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sentinel errors for the two resolvable failure modes. Handlers match them
// with errors.Is; anything else is an internal error.
var (
	ErrSchemaNotFound = errors.New("company schema not found")
	ErrTableNotFound  = errors.New("items table not found")
)

// Resolver maps a company name to its database schema and reads the tenant's
// items table. It is the single owner of schema and table existence checks,
// so both the item lookup endpoint and any in-process caller probe tenants
// through the same code path.
type Resolver struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewResolver(db *gorm.DB, log *zap.Logger) *Resolver {
	return &Resolver{db: db, log: log}
}

// FetchItems returns all rows from <companyName>.items ordered by createdat
// descending. The schema name is the literal company name; existence of the
// schema and the items table is probed before the fetch. All three queries
// run on one pooled connection which is released on every exit path.
func (r *Resolver) FetchItems(ctx context.Context, companyName string) ([]model.Item, error) {
	var rows []map[string]interface{}

	err := r.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		exists, err := schemaExists(conn, companyName)
		if err != nil {
			return fmt.Errorf("checking schema %q: %w", companyName, err)
		}
		if !exists {
			r.logAvailableSchemas(conn, companyName)
			return fmt.Errorf("schema %q: %w", companyName, ErrSchemaNotFound)
		}

		exists, err = tableExists(conn, companyName, "items")
		if err != nil {
			return fmt.Errorf("checking items table in %q: %w", companyName, err)
		}
		if !exists {
			return fmt.Errorf("schema %q: %w", companyName, ErrTableNotFound)
		}

		// The company name goes into identifier position, so it cannot be a
		// bind parameter; QuoteIdentifier escapes it instead.
		query := fmt.Sprintf("SELECT * FROM %s.items ORDER BY createdat DESC", QuoteIdentifier(companyName))
		return conn.Raw(query).Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	items := make([]model.Item, len(rows))
	for i, row := range rows {
		items[i] = model.Item(row)
	}
	return items, nil
}

// SchemaExists reports whether a schema named after the company exists.
func (r *Resolver) SchemaExists(ctx context.Context, companyName string) (bool, error) {
	var exists bool
	err := r.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		var connErr error
		exists, connErr = schemaExists(conn, companyName)
		return connErr
	})
	return exists, err
}

func schemaExists(conn *gorm.DB, name string) (bool, error) {
	var exists bool
	err := conn.Raw(
		"SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = ?)",
		name,
	).Scan(&exists).Error
	return exists, err
}

func tableExists(conn *gorm.DB, schema, table string) (bool, error) {
	var exists bool
	err := conn.Raw(
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = ? AND table_name = ?)",
		schema, table,
	).Scan(&exists).Error
	return exists, err
}

// logAvailableSchemas logs the non-system schemas for diagnostics when a
// lookup misses. The list never reaches the client.
func (r *Resolver) logAvailableSchemas(conn *gorm.DB, wanted string) {
	var schemas []string
	err := conn.Raw(
		"SELECT schema_name FROM information_schema.schemata WHERE schema_name NOT LIKE 'pg_%' AND schema_name <> 'information_schema'",
	).Scan(&schemas).Error
	if err != nil {
		r.log.Warn("Failed to list available schemas", zap.Error(err))
		return
	}
	r.log.Warn("Company schema not found",
		zap.String("company_name", wanted),
		zap.Strings("available_schemas", schemas))
}

// QuoteIdentifier escapes a name for use in identifier position: embedded
// double quotes are doubled and NUL bytes dropped, then the whole name is
// quoted. The schema keeps its literal spelling, including case and spaces.
func QuoteIdentifier(name string) string {
	name = strings.ReplaceAll(name, "\x00", "")
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
