package domain

import "time"

// CartLine is one (owner, product) pair in a cart. There is never more than
// one line per pair; repeated adds increase Quantity. Revision grows by one
// on every write to the line.
type CartLine struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Revision  int64     `json:"revision"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ref identifies the line at its current revision.
func (l CartLine) Ref() LineRef {
	return LineRef{LineID: l.ID, Revision: l.Revision}
}

// LineRef names one revision of a cart line. Checkout records the refs it
// consumed so that clearing the cart removes only those revisions; a line
// added or changed afterwards has a different revision and survives.
type LineRef struct {
	LineID   string `json:"line_id"`
	Revision int64  `json:"revision"`
}

// CartItemView is a cart line joined with the live catalog entry for display.
// Product is absent when the catalog no longer has the referenced product.
type CartItemView struct {
	Line    CartLine
	Product Optional[Product]
}
