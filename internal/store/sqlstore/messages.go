package sqlstore

import (
	"database/sql"
	"errors"

	"github.com/kzhou/parley/internal/models"
	"github.com/kzhou/parley/internal/store"
)

// CreateMessage inserts the message and seeds its read set with the sender
// in one transaction. The caller should reload via GetMessageByID when it
// needs the populated sender and timestamps.
func (s *SQLStore) CreateMessage(msg *models.Message) error {
	if msg.MessageType == "" {
		msg.MessageType = models.MessageTypeText
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := s.rebind(`INSERT INTO messages (chat_id, sender_id, message_type, content, file_url, file_name, file_size)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err = tx.QueryRow(query, msg.ChatID, msg.SenderID, msg.MessageType,
		msg.Content, msg.FileURL, msg.FileName, msg.FileSize).Scan(&msg.ID)
	if err != nil {
		return err
	}

	read := s.rebind("INSERT INTO message_reads (message_id, user_id) VALUES (?, ?)")
	if _, err := tx.Exec(read, msg.ID, msg.SenderID); err != nil {
		return err
	}
	msg.ReadBy = []int64{msg.SenderID}

	return tx.Commit()
}

const messageColumns = `m.id, m.chat_id, m.sender_id, m.message_type, m.content,
	m.file_url, m.file_name, m.file_size, m.is_edited, m.is_deleted, m.created_at, m.updated_at,
	u.id, u.name, u.username, u.avatar`

func scanMessage(row interface{ Scan(...any) error }) (*models.Message, error) {
	var m models.Message
	var sender models.User
	err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.MessageType, &m.Content,
		&m.FileURL, &m.FileName, &m.FileSize, &m.IsEdited, &m.IsDeleted, &m.CreatedAt, &m.UpdatedAt,
		&sender.ID, &sender.Name, &sender.Username, &sender.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.Sender = &sender
	return &m, nil
}

func (s *SQLStore) GetMessageByID(id int64) (*models.Message, error) {
	query := s.rebind("SELECT " + messageColumns + " FROM messages m JOIN users u ON m.sender_id = u.id WHERE m.id = ?")
	msg, err := scanMessage(s.db.QueryRow(query, id))
	if err != nil {
		return nil, err
	}
	if msg.ReadBy, err = s.readSet(msg.ID); err != nil {
		return nil, err
	}
	return msg, nil
}

// GetChatMessages returns a page of non-deleted messages in chronological
// order, paging backwards from the newest. The second return value is the
// total count of non-deleted messages in the chat.
func (s *SQLStore) GetChatMessages(chatID int64, page, limit int) ([]models.Message, int, error) {
	var total int
	count := s.rebind("SELECT COUNT(*) FROM messages WHERE chat_id = ? AND is_deleted = FALSE")
	if err := s.db.QueryRow(count, chatID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := s.rebind("SELECT " + messageColumns + ` FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.chat_id = ? AND m.is_deleted = FALSE
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ? OFFSET ?`)
	rows, err := s.db.Query(query, chatID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Newest-first query, oldest-first response.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	for i := range messages {
		if messages[i].ReadBy, err = s.readSet(messages[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return messages, total, nil
}

func (s *SQLStore) EditMessage(id int64, content string) error {
	query := s.rebind("UPDATE messages SET content = ?, is_edited = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	result, err := s.db.Exec(query, content, id)
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

// SoftDeleteMessage marks the message deleted and blanks its content.
// Message type and edit flag are left untouched.
func (s *SQLStore) SoftDeleteMessage(id int64) error {
	query := s.rebind("UPDATE messages SET is_deleted = TRUE, content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	result, err := s.db.Exec(query, models.DeletedContent, id)
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

// MarkMessageRead is an atomic add-if-absent on the read set. The conflict
// clause makes concurrent reads of the same message by the same user safe:
// only one caller observes added=true.
func (s *SQLStore) MarkMessageRead(messageID, userID int64) (bool, error) {
	query := s.rebind("INSERT INTO message_reads (message_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING")
	result, err := s.db.Exec(query, messageID, userID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *SQLStore) MarkChatMessagesRead(chatID, userID int64) error {
	query := s.rebind(`INSERT INTO message_reads (message_id, user_id)
		SELECT id, ? FROM messages WHERE chat_id = ? AND is_deleted = FALSE
		ON CONFLICT DO NOTHING`)
	_, err := s.db.Exec(query, userID, chatID)
	return err
}

func (s *SQLStore) readSet(messageID int64) ([]int64, error) {
	query := s.rebind("SELECT user_id FROM message_reads WHERE message_id = ? ORDER BY user_id")
	rows, err := s.db.Query(query, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
