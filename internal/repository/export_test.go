package repository

import (
	"database/sql"
	"testing"
)

// Exported for the repository_test package, which drives services against
// the shared container database.
var (
	CreateTestUser    = createTestUser
	CreateTestProduct = createTestProduct
	NewTestAddress    = newTestAddress
)

func SharedDB(t *testing.T) *sql.DB {
	t.Helper()
	requireDB(t)
	return testDB
}
