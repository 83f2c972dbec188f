package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/illarion/lockpass/internal/record"
)

// printRecords writes a table of records without passwords.
func printRecords(w io.Writer, records []record.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSERVICE\tUSERNAME\tURL\tUPDATED")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Service, r.Username, r.URL, r.UpdatedAt.Local().Format(time.DateTime))
	}
	tw.Flush()
}

// printRecord writes every field of r, the password only when reveal is set.
func printRecord(w io.Writer, r record.Record, reveal bool) {
	password := "********"
	if reveal {
		password = r.Password
	}
	if r.Password == "" {
		password = "(none)"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", r.ID)
	fmt.Fprintf(tw, "Service:\t%s\n", r.Service)
	fmt.Fprintf(tw, "Username:\t%s\n", r.Username)
	fmt.Fprintf(tw, "Password:\t%s\n", password)
	if r.URL != "" {
		fmt.Fprintf(tw, "URL:\t%s\n", r.URL)
	}
	if r.Notes != "" {
		fmt.Fprintf(tw, "Notes:\t%s\n", r.Notes)
	}
	fmt.Fprintf(tw, "Created:\t%s\n", r.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(tw, "Updated:\t%s\n", r.UpdatedAt.Local().Format(time.RFC3339))
	tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// redact blanks passwords for listing output.
func redact(records []record.Record) []record.Record {
	out := make([]record.Record, len(records))
	for i, r := range records {
		r.Password = ""
		out[i] = r
	}
	return out
}
