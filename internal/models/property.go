package models

import "time"

// Property is the listing a booking is made against. ListerID plus ListerKind
// form a polymorphic reference into the owner, broker, or admin partition.
// Deposit is zero for owner-listed properties: direct deals carry no
// platform-mediated deposit.
type Property struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Location   string    `json:"location"`
	ListerID   int64     `json:"listerId"`
	ListerKind Role      `json:"listerKind"`
	Deposit    int64     `json:"deposit"`
	CreatedAt  time.Time `json:"createdAt"`
}
