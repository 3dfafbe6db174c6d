// Package export turns ledger data into files: the CSV download and the
// printable monthly report.
package export

import (
	"bufio"
	"io"
	"strings"

	"billtracker/internal/core"
)

// CSVHeader is the first line of every CSV export.
const CSVHeader = "Name,Amount,Due Date,Category,Status"

// WriteCSV writes bills in the order given. Name and category are always
// quoted; amount, date and status never are.
func WriteCSV(w io.Writer, bills []core.Bill) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(CSVHeader)
	bw.WriteByte('\n')
	for _, b := range bills {
		bw.WriteString(quote(b.Name))
		bw.WriteByte(',')
		bw.WriteString(b.Amount.String())
		bw.WriteByte(',')
		bw.WriteString(b.DueDate.String())
		bw.WriteByte(',')
		bw.WriteString(quote(b.Category))
		bw.WriteByte(',')
		bw.WriteString(b.Status())
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// CSV is WriteCSV into a string.
func CSV(bills []core.Bill) string {
	var sb strings.Builder
	_ = WriteCSV(&sb, bills)
	return sb.String()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
