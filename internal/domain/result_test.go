package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypedCellScalar(t *testing.T) {
	tests := []struct {
		name string
		cell TypedCell
		want any
	}{
		{"str before int", TypedCell{Str: "s", Int: 1}, "s"},
		{"int before double", TypedCell{Int: 1, Double: 2.5}, 1},
		{"false bool before date", TypedCell{Bool: false, Date: "2024-01-01"}, false},
		{"zero int is a value", TypedCell{Int: 0, Double: 2.5}, 0},
		{"date before timestamp", TypedCell{Date: "d", Timestamp: "t"}, "d"},
		{"empty str is skipped", TypedCell{Str: "", Int: "5"}, "5"},
		{"timestamp only", TypedCell{Timestamp: "2024-01-01T00:00:00Z"}, "2024-01-01T00:00:00Z"},
		{"all empty strings", TypedCell{Str: "", Date: "", Timestamp: ""}, nil},
		{"all nil", TypedCell{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.cell.Scalar())
		})
	}
}

func TestAttachmentKind(t *testing.T) {
	text := &TextAttachment{Content: "hi"}
	query := &QueryAttachment{Query: "SELECT 1"}

	require.Equal(t, AttachmentUnknown, Attachment{}.Kind())
	require.Equal(t, AttachmentText, Attachment{Text: text}.Kind())
	require.Equal(t, AttachmentQuery, Attachment{Query: query}.Kind())
	require.Equal(t, AttachmentQuery, Attachment{Text: text, Query: query}.Kind())
}

func TestMessageStatusTerminal(t *testing.T) {
	for _, s := range []MessageStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		require.True(t, s.Terminal(), s)
	}
	for _, s := range []MessageStatus{"SUBMITTED", "EXECUTING_QUERY", "", "UNKNOWN"} {
		require.False(t, s.Terminal(), s)
	}
}
