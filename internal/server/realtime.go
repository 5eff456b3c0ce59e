package server

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/live"
)

const (
	RealtimeEventSnapshot  = "snapshot"
	realtimeEventHeartbeat = "heartbeat"
	realtimeSourceStore    = "perfectfit-store"
	defaultHeartbeat       = 15 * time.Second
)

// RealtimeSnapshot is the data of one snapshot event.
type RealtimeSnapshot[T any] struct {
	Query    string `json:"query"`
	Sequence uint64 `json:"sequence"`
	Value    T      `json:"value"`
	Error    string `json:"error,omitempty"`
}

type realtimeHeartbeat struct {
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// streamQuery relays a live query to the client as server-sent events until
// the client goes away. Each evaluation becomes one snapshot event; idle
// connections receive heartbeats.
func streamQuery[T any](c *gin.Context, query *live.Query[T], heartbeat time.Duration) {
	stream := query.Subscribe(c.Request.Context())
	defer stream.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snapshot, ok := <-stream.Updates():
			if !ok {
				return false
			}
			c.SSEvent(RealtimeEventSnapshot, toRealtimeSnapshot(query.Name(), snapshot))
			return true
		case now := <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, realtimeHeartbeat{Source: realtimeSourceStore, Timestamp: now.UTC()})
			return true
		}
	})
}

func toRealtimeSnapshot[T any](name string, snapshot live.Snapshot[T]) RealtimeSnapshot[T] {
	payload := RealtimeSnapshot[T]{
		Query:    name,
		Sequence: snapshot.Sequence,
		Value:    snapshot.Value,
	}
	if snapshot.Err != nil {
		payload.Error = snapshot.Err.Error()
	}
	return payload
}
