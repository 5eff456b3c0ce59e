package syncdriver

import (
	"context"
	"time"

	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/records"
)

// Remote is the service that receives outbound batches. Implementations must
// honor ctx.
type Remote interface {
	Push(ctx context.Context, batch Batch) (Ack, error)
}

// RemoteFunc adapts a function to Remote.
type RemoteFunc func(ctx context.Context, batch Batch) (Ack, error)

func (f RemoteFunc) Push(ctx context.Context, batch Batch) (Ack, error) {
	return f(ctx, batch)
}

// Batch is one upload: every row that needs syncing, parents first.
// LastSyncTimestamp asks the remote for rows it changed after that server
// time; zero asks for everything. A batch without rows is still sent so that
// the remote's changes are pulled.
type Batch struct {
	ID                string        `json:"id"`
	CreatedAt         time.Time     `json:"createdAt"`
	LastSyncTimestamp int64         `json:"lastSyncTimestamp"`
	Rows              []OutboundRow `json:"rows"`
}

// Empty reports whether the batch carries no rows.
func (b Batch) Empty() bool {
	return len(b.Rows) == 0
}

// OutboundRow is a local row as uploaded. Version is the row's lastModified at
// collection time; an ack only applies while the row still has that version.
type OutboundRow struct {
	Table    string  `json:"table"`
	LocalID  int64   `json:"localId"`
	ServerID *string `json:"serverId,omitempty"`
	Version  int64   `json:"version"`
	Record   any     `json:"record"`
}

func (r OutboundRow) key() rowKey {
	return rowKey{table: r.Table, localID: r.LocalID}
}

// Ack is the remote's answer for a batch. Changes holds the rows the remote
// changed after the batch's LastSyncTimestamp, and ServerTimestamp is the
// server time those changes are complete up to.
type Ack struct {
	BatchID         string   `json:"batchId"`
	Results         []RowAck `json:"results"`
	Changes         Inbound  `json:"changes"`
	ServerTimestamp int64    `json:"serverTimestamp,omitempty"`
}

// RowAck acknowledges or rejects one row. Timestamp is the server's version
// of the row and becomes its local lastModified.
type RowAck struct {
	Table     string `json:"table"`
	LocalID   int64  `json:"localId"`
	Accepted  bool   `json:"accepted"`
	ServerID  string `json:"serverId,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func (a RowAck) key() rowKey {
	return rowKey{table: a.Table, localID: a.LocalID}
}

type rowKey struct {
	table   string
	localID int64
}

// Inbound carries rows the remote holds that this store may not have yet.
// Children name their parent by the customer's server id because local ids
// differ between devices.
type Inbound struct {
	Customers    []records.Customer   `json:"customers"`
	Measurements []InboundMeasurement `json:"measurements"`
	Orders       []InboundOrder       `json:"orders"`
}

// Empty reports whether the remote sent no rows.
func (in Inbound) Empty() bool {
	return len(in.Customers) == 0 && len(in.Measurements) == 0 && len(in.Orders) == 0
}

type InboundMeasurement struct {
	CustomerServerID string              `json:"customerServerId"`
	Measurement      records.Measurement `json:"measurement"`
}

type InboundOrder struct {
	CustomerServerID string        `json:"customerServerId"`
	Order            records.Order `json:"order"`
}
