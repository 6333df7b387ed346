package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// RawJSONProvider is implemented by values that carry their original JSON encoding.
type RawJSONProvider interface {
	RawJSON() string
}

// PrintPrettyJSON prints v to stdout as indented JSON. A RawJSONProvider is printed from
// its raw encoding so fields it never had are not added back.
func PrintPrettyJSON(v any) error {
	return WritePrettyJSON(os.Stdout, v)
}

// WritePrettyJSON is PrintPrettyJSON for an arbitrary writer.
func WritePrettyJSON(w io.Writer, v any) error {
	if p, ok := v.(RawJSONProvider); ok {
		raw := p.RawJSON()
		if raw == "" {
			_, err := fmt.Fprintln(w, "{}")
			return err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, buf.String())
		return err
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
