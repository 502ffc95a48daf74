package main

import "encoding/json"

// mustJSON renders a hookio.Output as its stdout envelope. Marshal
// failure here would mean a programmer error in this package's own
// output construction, not a runtime condition worth recovering from.
func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
