package domain

import "time"

type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// ChangeEvent is one row-level change on the orders data source. Delete
// events may carry only the order ID.
type ChangeEvent struct {
	Op         ChangeOp  `json:"op"`
	OrderID    string    `json:"order_id"`
	Record     *Order    `json:"record,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ID returns the order ID of the event, falling back to the record.
func (e ChangeEvent) ID() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	if e.Record != nil {
		return e.Record.ID
	}
	return ""
}
