package core

import "time"

// ChangeOp names a mutation of the expense collection.
type ChangeOp string

const (
	ChangeCreated ChangeOp = "created"
	ChangeUpdated ChangeOp = "updated"
	ChangeDeleted ChangeOp = "deleted"
	ChangeCleared ChangeOp = "cleared"
)

// ChangeEvent describes a mutation that has already been persisted.
// ID is zero for ChangeCleared. Count is the collection size afterwards.
type ChangeEvent struct {
	Op        ChangeOp  `json:"op"`
	ID        int64     `json:"id,omitempty"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}
