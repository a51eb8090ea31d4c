package remote

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SchemaAdapter captures deployment-specific naming of the backing tables.
// Older deployments key the profiles table on user_id instead of id; the
// column is resolved once at startup and the adapter is passed by
// reference, never cached globally.
type SchemaAdapter struct {
	ProfileIDColumn string
}

func DefaultSchema() SchemaAdapter {
	return SchemaAdapter{ProfileIDColumn: "id"}
}

// DetectSchema probes information_schema for the profile key column.
// Called once during startup wiring.
func DetectSchema(ctx context.Context, db *sqlx.DB) (SchemaAdapter, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = 'profiles' AND column_name = 'user_id'
		)`

	var hasUserID bool
	if err := db.GetContext(ctx, &hasUserID, query); err != nil {
		return SchemaAdapter{}, fmt.Errorf("failed to probe profiles schema: %w", err)
	}
	if hasUserID {
		return SchemaAdapter{ProfileIDColumn: "user_id"}, nil
	}
	return DefaultSchema(), nil
}
