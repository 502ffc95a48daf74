package sidecar

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

var seq atomic.Uint64

// newRequestID returns a unique id to correlate a request with its
// response; a monotonic counter would do, but uuid avoids any chance of
// collision across process restarts that could confuse an in-flight
// late reply with a new request.
func newRequestID() string {
	seq.Add(1)
	return uuid.NewString()
}

func decodePayload(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(raw, out)
}
