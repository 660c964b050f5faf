// Package relationship is the item synchronization and ordering engine behind a relationship
// field shown as cards.
//
// Allowed here:
// - field selection, the item store and its query generations
// - deriving and reordering the display order, persisting it with rollback
// - inline create/connect/edit state layered over the reconciled items
//
// Not allowed here:
// - rendering, key handling or any Bubble Tea types (internal/tui)
// - SQL or storage concerns (internal/service, internal/database)
package relationship
