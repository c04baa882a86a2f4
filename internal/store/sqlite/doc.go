// Package sqlite provides a SQLite implementation of the energy storage ports.
//
// Prices and rates are stored as TEXT so the fixed-point value written is the
// value read back. Dates are stored as ISO YYYY-MM-DD strings. Schema changes
// live in migrations/ and are applied in order on open.
package sqlite
