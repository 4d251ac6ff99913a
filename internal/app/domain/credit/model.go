package credit

import "time"

// SourceType identifies which balance a ledger row belongs to.
type SourceType string

const (
	SourcePerson SourceType = "person"
	SourceTeam   SourceType = "team"
)

// Kind classifies ledger rows.
type Kind string

const (
	KindGrant    Kind = "grant"
	KindPurchase Kind = "purchase"
	KindConsume  Kind = "consume"
	KindRefund   Kind = "refund"
)

// Transaction is one ledger row. Balances are always the sum of a source's
// rows; no counter is stored anywhere else.
type Transaction struct {
	ID           string
	SourceType   SourceType
	SourceID     string
	Amount       int64
	Kind         Kind
	GenerationID string
	Note         string
	CreatedAt    time.Time
}
