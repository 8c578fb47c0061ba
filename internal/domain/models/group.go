package models

import (
	"time"
)

// Group is a named set of users that can be associated with multiple
// accounts. Associating/unlinking manages the account edge only; deleting
// the group removes it everywhere.
type Group struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	AccountIDs  []string  `json:"account_ids"` // linked accounts, loaded separately
	MemberIDs   []string  `json:"member_ids"`  // user ids, loaded separately
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
