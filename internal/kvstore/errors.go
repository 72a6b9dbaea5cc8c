package kvstore

import "errors"

// Sentinel errors returned by the typed record layer. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrRecordNotFound is returned by Records getters when no record
	// exists under the requested key, or when a stored record was
	// unparseable and has been discarded.
	ErrRecordNotFound = errors.New("record not found")
)

// Low-level database operation errors used by the SQL adapter.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a query against the
	// database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrScanningRows is returned when scanning column values from a result
	// set fails.
	ErrScanningRows = errors.New("failed to scan rows")
)
