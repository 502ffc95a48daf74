package hookio

import (
	"encoding/json"
	"io"
)

// Write encodes out to w as the JSON envelope the hook host expects on
// stdout. An Empty() output serializes to "{}".
func Write(w io.Writer, out Output) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}
