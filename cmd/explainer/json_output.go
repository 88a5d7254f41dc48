package main

import (
	"encoding/json"
	"io"
)

// writeJSON prints v for scripts. HTML escaping stays off so presigned and
// public URLs keep their literal '&' separators.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
