package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"
)

// Export writes records to w as JSON Lines, one record per line, in
// plaintext. It returns the number of records written.
func Export(w io.Writer, records iter.Seq[Record]) (int, error) {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	n := 0
	for r := range records {
		if err := enc.Encode(r); err != nil {
			return n, fmt.Errorf("failed to encode record %d: %w", r.ID, err)
		}
		n++
	}

	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("failed to write export: %w", err)
	}
	return n, nil
}
