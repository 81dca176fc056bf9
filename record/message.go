package record

import (
	"fmt"

	"github.com/c360/sensorstreams/pkg/timestamp"
)

// Message is one formatted line bound for persistence.
type Message struct {
	Source    string
	Schema    string
	Timestamp int64
	Line      string
}

// NewMessage formats rec as a line attributed to source.
func NewMessage(source string, rec Record) Message {
	return Message{
		Source:    source,
		Schema:    rec.Schema,
		Timestamp: rec.Timestamp,
		Line:      FormatLine(source, rec),
	}
}

// FormatLine renders "<YYYY-MM-DD HH:MM:SS> | Source: <id> | <fields>" without a newline.
func FormatLine(source string, rec Record) string {
	fields := ""
	if rec.Fields != nil {
		fields = rec.Fields.String()
	}
	return fmt.Sprintf("%s | Source: %s | %s", timestamp.Format(rec.Timestamp), source, fields)
}
