package tickets

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// TranscriptTimeFormat is the timestamp layout of transcript lines.
const TranscriptTimeFormat = "2006-01-02 15:04:05"

// MaxTranscriptMessages bounds how much history is exported when a ticket closes.
const MaxTranscriptMessages = 1000

// BuildTranscript renders the history of a channel as plain text, oldest message first.
func BuildTranscript(history []*HistoryMessage) []byte {
	msgs := make([]*HistoryMessage, len(history))
	copy(msgs, history)
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})

	buf := new(bytes.Buffer)
	for _, m := range msgs {
		fmt.Fprintf(buf, "[%s] %s(%s): %s",
			m.Timestamp.UTC().Format(TranscriptTimeFormat),
			m.AuthorName,
			m.AuthorID,
			m.Content,
		)
		if len(m.Attachments) > 0 {
			fmt.Fprintf(buf, " [attachments: %s]", strings.Join(m.Attachments, ", "))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// TranscriptName is the file name of the transcript of a ticket.
func TranscriptName(ticketID int64) string {
	return fmt.Sprintf("ticket-%d-transcript.txt", ticketID)
}
