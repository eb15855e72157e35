package store

import (
	"errors"

	"github.com/kzhou/parley/internal/models"
)

// Sentinel errors returned by Store implementations. Handlers and the ws
// router map these onto HTTP statuses and private error events.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type Store interface {
	// User operations
	CreateUser(user *models.User) error
	GetUserByID(id int64) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	SearchUsers(excludeID int64, query string, limit int) ([]models.User, error)
	ListUsers(page, limit int) ([]models.User, int, error)
	UpdateProfile(id int64, name, username, avatar *string) (*models.User, error)
	SetRole(id int64, role string) error
	SetOnlineStatus(id int64, online bool) error
	DeleteUser(id int64) error

	// Chat operations
	CreateChat(chat *models.Chat) error
	GetChatByID(id int64) (*models.Chat, error)
	FindDirectChat(userA, userB int64) (*models.Chat, error)
	GetUserChats(userID int64) ([]models.Chat, error)
	ListChats(page, limit int) ([]models.Chat, int, error)
	IsParticipant(chatID, userID int64) (bool, error)
	AddParticipant(chatID, userID int64) error
	RemoveParticipant(chatID, userID int64) error
	RenameChat(chatID int64, name string) error
	SetLastMessage(chatID, messageID int64) error
	DeleteChat(chatID int64) error

	// Message operations
	CreateMessage(msg *models.Message) error
	GetMessageByID(id int64) (*models.Message, error)
	GetChatMessages(chatID int64, page, limit int) ([]models.Message, int, error)
	EditMessage(id int64, content string) error
	SoftDeleteMessage(id int64) error
	// MarkMessageRead adds userID to the message's read set. It reports
	// whether a new entry was actually added, so callers can suppress
	// duplicate read receipts. The add is a single conditional insert at
	// the storage layer, not a load-modify-store round trip.
	MarkMessageRead(messageID, userID int64) (bool, error)
	MarkChatMessagesRead(chatID, userID int64) error

	// Admin operations
	Stats() (*models.Stats, error)
}
