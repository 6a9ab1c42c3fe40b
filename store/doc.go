// Package store persists application user records and the orphaned
// identity ledger.
package store
