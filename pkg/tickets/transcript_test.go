package tickets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildTranscript(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	got := BuildTranscript([]*HistoryMessage{
		{AuthorID: "2", AuthorName: "staff", Content: "second", Timestamp: t0.Add(time.Minute)},
		{AuthorID: "1", AuthorName: "alice", Content: "first", Timestamp: t0},
		{AuthorID: "1", AuthorName: "alice", Content: "", Timestamp: t0.Add(2 * time.Minute),
			Attachments: []string{"https://a/1.png", "https://a/2.png"}},
	})

	require.Equal(t,
		"[2024-05-01 09:30:00] alice(1): first\n"+
			"[2024-05-01 09:31:00] staff(2): second\n"+
			"[2024-05-01 09:32:00] alice(1):  [attachments: https://a/1.png, https://a/2.png]\n",
		string(got),
	)
}

func TestBuildTranscript_Empty(t *testing.T) {
	require.Empty(t, BuildTranscript(nil))
}

func TestTranscriptName(t *testing.T) {
	require.Equal(t, "ticket-42-transcript.txt", TranscriptName(42))
}
