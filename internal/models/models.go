package models

import "time"

// Message types supported by the wire and storage layers.
const (
	MessageTypeText  = "text"
	MessageTypeFile  = "file"
	MessageTypeImage = "image"
)

// DeletedContent replaces a message's content on soft delete.
const DeletedContent = "This message was deleted"

const (
	MaxContentLength = 5000
	MaxFileSize      = 10 * 1024 * 1024
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Avatar    string    `json:"avatar,omitempty"`
	Role      string    `json:"role"`
	IsOnline  bool      `json:"isOnline"`
	LastSeen  time.Time `json:"lastSeen"`
	CreatedAt time.Time `json:"createdAt"`
}

type Chat struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name,omitempty"`
	IsGroupChat  bool     `json:"isGroupChat"`
	AdminID      int64    `json:"admin,omitempty"`
	Participants []User   `json:"participants,omitempty"`
	LastMessage  *Message `json:"lastMessage,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ParticipantIDs returns the ids of the loaded participants.
func (c *Chat) ParticipantIDs() []int64 {
	ids := make([]int64, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.ID)
	}
	return ids
}

// HasParticipant reports whether userID is among the loaded participants.
func (c *Chat) HasParticipant(userID int64) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

type Message struct {
	ID          int64   `json:"id"`
	ChatID      int64   `json:"chatId"`
	SenderID    int64   `json:"senderId"`
	Sender      *User   `json:"sender,omitempty"`
	MessageType string  `json:"messageType"`
	Content     string  `json:"content,omitempty"`
	FileURL     string  `json:"fileUrl,omitempty"`
	FileName    string  `json:"fileName,omitempty"`
	FileSize    int64   `json:"fileSize,omitempty"`
	IsEdited    bool    `json:"isEdited"`
	IsDeleted   bool    `json:"isDeleted"`
	ReadBy      []int64 `json:"readBy"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsReadBy reports whether userID already appears in the read set.
func (m *Message) IsReadBy(userID int64) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// ValidateMessage applies the field constraints shared by the REST and live
// send paths. Returns an empty string when the payload is valid.
func ValidateMessage(messageType, content string, fileSize int64) string {
	switch messageType {
	case MessageTypeText:
		if content == "" {
			return "Message content is required"
		}
		if len(content) > MaxContentLength {
			return "Message content cannot exceed 5000 characters"
		}
	case MessageTypeFile, MessageTypeImage:
		if fileSize > MaxFileSize {
			return "File size cannot exceed 10MB"
		}
	default:
		return "Invalid message type"
	}
	return ""
}

// Stats is the aggregate snapshot served to administrators.
type Stats struct {
	TotalUsers    int `json:"totalUsers"`
	OnlineUsers   int `json:"onlineUsers"`
	TotalChats    int `json:"totalChats"`
	TotalMessages int `json:"totalMessages"`
	GroupChats    int `json:"groupChats"`
	OneOnOneChats int `json:"oneOnOneChats"`
}
