package model

import "time"

// AccessCode is a single-use invitation. It moves from unused to used exactly
// once, in the same transaction that creates the user it authorizes.
type AccessCode struct {
	ID                int64      `json:"id"`
	Code              string     `json:"code"`
	CreatedBy         *int64     `json:"created_by,omitempty"`
	CreatedByUsername *string    `json:"created_by_username,omitempty"`
	Used              bool       `json:"used"`
	UsedBy            *int64     `json:"used_by,omitempty"`
	UsedByUsername    *string    `json:"used_by_username,omitempty"`
	UsedAt            *time.Time `json:"used_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type AccessCodeList struct {
	Codes []AccessCode `json:"codes"`
}
