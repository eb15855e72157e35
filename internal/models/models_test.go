package models

import (
	"strings"
	"testing"
)

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name        string
		messageType string
		content     string
		fileSize    int64
		want        string
	}{
		{"valid text", MessageTypeText, "hello", 0, ""},
		{"empty text", MessageTypeText, "", 0, "Message content is required"},
		{"text at limit", MessageTypeText, strings.Repeat("x", MaxContentLength), 0, ""},
		{"text over limit", MessageTypeText, strings.Repeat("x", MaxContentLength+1), 0, "Message content cannot exceed 5000 characters"},
		{"valid file", MessageTypeFile, "", 1024, ""},
		{"file too big", MessageTypeFile, "", MaxFileSize + 1, "File size cannot exceed 10MB"},
		{"image too big", MessageTypeImage, "", MaxFileSize + 1, "File size cannot exceed 10MB"},
		{"unknown type", "video", "x", 0, "Invalid message type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateMessage(tt.messageType, tt.content, tt.fileSize); got != tt.want {
				t.Errorf("ValidateMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChatHasParticipant(t *testing.T) {
	chat := &Chat{Participants: []User{{ID: 1}, {ID: 2}}}
	if !chat.HasParticipant(1) || chat.HasParticipant(3) {
		t.Error("Unexpected participant membership")
	}
	if ids := chat.ParticipantIDs(); len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("Unexpected participant ids: %v", ids)
	}
}

func TestMessageIsReadBy(t *testing.T) {
	msg := &Message{ReadBy: []int64{1}}
	if !msg.IsReadBy(1) || msg.IsReadBy(2) {
		t.Error("Unexpected read set membership")
	}
}
