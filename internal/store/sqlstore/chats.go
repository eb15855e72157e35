package sqlstore

import (
	"database/sql"
	"errors"

	"github.com/kzhou/parley/internal/models"
	"github.com/kzhou/parley/internal/store"
)

const chatColumns = "id, name, is_group_chat, admin_id, last_message_id, created_at, updated_at"

func scanChat(row interface{ Scan(...any) error }) (*models.Chat, int64, error) {
	var c models.Chat
	var lastMessageID int64
	err := row.Scan(&c.ID, &c.Name, &c.IsGroupChat, &c.AdminID, &lastMessageID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, store.ErrNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	return &c, lastMessageID, nil
}

// CreateChat inserts the chat and its participant set in one transaction.
// chat.Participants must carry the (already deduplicated) member ids.
func (s *SQLStore) CreateChat(chat *models.Chat) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := s.rebind("INSERT INTO chats (name, is_group_chat, admin_id) VALUES (?, ?, ?) RETURNING id")
	if err := tx.QueryRow(query, chat.Name, chat.IsGroupChat, chat.AdminID).Scan(&chat.ID); err != nil {
		return err
	}

	insert := s.rebind("INSERT INTO chat_participants (chat_id, user_id) VALUES (?, ?)")
	for _, p := range chat.Participants {
		if _, err := tx.Exec(insert, chat.ID, p.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetChatByID(id int64) (*models.Chat, error) {
	query := s.rebind("SELECT " + chatColumns + " FROM chats WHERE id = ?")
	chat, lastMessageID, err := scanChat(s.db.QueryRow(query, id))
	if err != nil {
		return nil, err
	}
	if err := s.populateChat(chat, lastMessageID); err != nil {
		return nil, err
	}
	return chat, nil
}

// FindDirectChat looks up the one-on-one chat containing exactly the two
// given users. One-on-one chats are deduplicated, so at most one can match.
func (s *SQLStore) FindDirectChat(userA, userB int64) (*models.Chat, error) {
	query := s.rebind(`
		SELECT c.id FROM chats c
		JOIN chat_participants pa ON c.id = pa.chat_id AND pa.user_id = ?
		JOIN chat_participants pb ON c.id = pb.chat_id AND pb.user_id = ?
		WHERE c.is_group_chat = FALSE
		AND (SELECT COUNT(*) FROM chat_participants p WHERE p.chat_id = c.id) = 2
		LIMIT 1`)

	var id int64
	err := s.db.QueryRow(query, userA, userB).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetChatByID(id)
}

func (s *SQLStore) GetUserChats(userID int64) ([]models.Chat, error) {
	query := s.rebind(`
		SELECT c.id, c.name, c.is_group_chat, c.admin_id, c.last_message_id, c.created_at, c.updated_at
		FROM chats c
		JOIN chat_participants p ON c.id = p.chat_id
		WHERE p.user_id = ?
		ORDER BY c.updated_at DESC`)
	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	return s.collectChats(rows)
}

func (s *SQLStore) ListChats(page, limit int) ([]models.Chat, int, error) {
	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM chats").Scan(&total); err != nil {
		return nil, 0, err
	}

	query := s.rebind("SELECT " + chatColumns + " FROM chats ORDER BY created_at DESC LIMIT ? OFFSET ?")
	rows, err := s.db.Query(query, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	chats, err := s.collectChats(rows)
	return chats, total, err
}

func (s *SQLStore) IsParticipant(chatID, userID int64) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM chat_participants WHERE chat_id = ? AND user_id = ?)")
	err := s.db.QueryRow(query, chatID, userID).Scan(&exists)
	return exists, err
}

func (s *SQLStore) AddParticipant(chatID, userID int64) error {
	query := s.rebind("INSERT INTO chat_participants (chat_id, user_id) VALUES (?, ?)")
	if _, err := s.db.Exec(query, chatID, userID); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return s.touchChat(chatID)
}

func (s *SQLStore) RemoveParticipant(chatID, userID int64) error {
	query := s.rebind("DELETE FROM chat_participants WHERE chat_id = ? AND user_id = ?")
	result, err := s.db.Exec(query, chatID, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return s.touchChat(chatID)
}

func (s *SQLStore) RenameChat(chatID int64, name string) error {
	query := s.rebind("UPDATE chats SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	result, err := s.db.Exec(query, name, chatID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLStore) SetLastMessage(chatID, messageID int64) error {
	query := s.rebind("UPDATE chats SET last_message_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	_, err := s.db.Exec(query, messageID, chatID)
	return err
}

func (s *SQLStore) DeleteChat(chatID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Messages first (and their read receipts), then memberships, then the chat.
	steps := []string{
		"DELETE FROM message_reads WHERE message_id IN (SELECT id FROM messages WHERE chat_id = ?)",
		"DELETE FROM messages WHERE chat_id = ?",
		"DELETE FROM chat_participants WHERE chat_id = ?",
	}
	for _, q := range steps {
		if _, err := tx.Exec(s.rebind(q), chatID); err != nil {
			return err
		}
	}

	result, err := tx.Exec(s.rebind("DELETE FROM chats WHERE id = ?"), chatID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return tx.Commit()
}

func (s *SQLStore) touchChat(chatID int64) error {
	query := s.rebind("UPDATE chats SET updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	_, err := s.db.Exec(query, chatID)
	return err
}

func (s *SQLStore) collectChats(rows *sql.Rows) ([]models.Chat, error) {
	defer rows.Close()

	type pending struct {
		chat          *models.Chat
		lastMessageID int64
	}
	var found []pending
	for rows.Next() {
		chat, lastMessageID, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, pending{chat, lastMessageID})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	chats := make([]models.Chat, 0, len(found))
	for _, p := range found {
		if err := s.populateChat(p.chat, p.lastMessageID); err != nil {
			return nil, err
		}
		chats = append(chats, *p.chat)
	}
	return chats, nil
}

// populateChat loads the participant set and the last message pointer.
func (s *SQLStore) populateChat(chat *models.Chat, lastMessageID int64) error {
	query := s.rebind(`
		SELECT u.id, u.name, u.username, u.email, u.password, u.avatar, u.role, u.is_online, u.last_seen, u.created_at
		FROM users u
		JOIN chat_participants p ON u.id = p.user_id
		WHERE p.chat_id = ?
		ORDER BY u.id`)
	rows, err := s.db.Query(query, chat.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	participants, err := collectUsers(rows)
	if err != nil {
		return err
	}
	chat.Participants = participants

	if lastMessageID != 0 {
		msg, err := s.GetMessageByID(lastMessageID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		chat.LastMessage = msg
	}
	return nil
}
