package realtime

import "github.com/mvcampos/gelateria/go/internal/models"

// ChangeKind tags a change-feed delta.
type ChangeKind string

const (
	ChangeInserted ChangeKind = "inserted"
	ChangeUpdated  ChangeKind = "updated"
	ChangeDeleted  ChangeKind = "deleted"
)

// RoundChange is a typed delta on a round record. New is set for
// inserts and updates, Old for deletes.
type RoundChange struct {
	Kind ChangeKind
	New  *models.Round
	Old  *models.Round
}

// ItemChange is a typed delta on a production item record.
type ItemChange struct {
	Kind ChangeKind
	New  *models.ProductionItem
	Old  *models.ProductionItem
}
