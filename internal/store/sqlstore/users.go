package sqlstore

import (
	"database/sql"
	"errors"

	"github.com/kzhou/parley/internal/models"
	"github.com/kzhou/parley/internal/store"
)

const userColumns = "id, name, username, email, password, avatar, role, is_online, last_seen, created_at"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Password, &u.Avatar,
		&u.Role, &u.IsOnline, &u.LastSeen, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLStore) CreateUser(user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	query := s.rebind("INSERT INTO users (name, username, email, password, avatar, role) VALUES (?, ?, ?, ?, ?, ?) RETURNING id")
	err := s.db.QueryRow(query, user.Name, user.Username, user.Email, user.Password, user.Avatar, user.Role).Scan(&user.ID)
	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	return err
}

func (s *SQLStore) GetUserByID(id int64) (*models.User, error) {
	query := s.rebind("SELECT " + userColumns + " FROM users WHERE id = ?")
	return scanUser(s.db.QueryRow(query, id))
}

func (s *SQLStore) GetUserByEmail(email string) (*models.User, error) {
	query := s.rebind("SELECT " + userColumns + " FROM users WHERE email = ?")
	return scanUser(s.db.QueryRow(query, email))
}

func (s *SQLStore) GetUserByUsername(username string) (*models.User, error) {
	query := s.rebind("SELECT " + userColumns + " FROM users WHERE username = ?")
	return scanUser(s.db.QueryRow(query, username))
}

func (s *SQLStore) SearchUsers(excludeID int64, queryStr string, limit int) ([]models.User, error) {
	query := s.rebind("SELECT " + userColumns + ` FROM users
		WHERE id != ? AND (username LIKE ? OR name LIKE ? OR email LIKE ?)
		ORDER BY username LIMIT ?`)
	pattern := "%" + queryStr + "%"
	rows, err := s.db.Query(query, excludeID, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (s *SQLStore) ListUsers(page, limit int) ([]models.User, int, error) {
	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, err
	}

	query := s.rebind("SELECT " + userColumns + " FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?")
	rows, err := s.db.Query(query, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users, err := collectUsers(rows)
	return users, total, err
}

func (s *SQLStore) UpdateProfile(id int64, name, username, avatar *string) (*models.User, error) {
	user, err := s.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		user.Name = *name
	}
	if username != nil {
		user.Username = *username
	}
	if avatar != nil {
		user.Avatar = *avatar
	}

	query := s.rebind("UPDATE users SET name = ?, username = ?, avatar = ? WHERE id = ?")
	if _, err := s.db.Exec(query, user.Name, user.Username, user.Avatar, id); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	return user, nil
}

func (s *SQLStore) SetRole(id int64, role string) error {
	result, err := s.db.Exec(s.rebind("UPDATE users SET role = ? WHERE id = ?"), role, id)
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

func (s *SQLStore) SetOnlineStatus(id int64, online bool) error {
	var query string
	if online {
		query = s.rebind("UPDATE users SET is_online = TRUE WHERE id = ?")
	} else {
		query = s.rebind("UPDATE users SET is_online = FALSE, last_seen = CURRENT_TIMESTAMP WHERE id = ?")
	}
	result, err := s.db.Exec(query, id)
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

// DeleteUser removes a user together with their messages and chat
// memberships. Chats left without participants are dropped as well.
func (s *SQLStore) DeleteUser(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	steps := []string{
		"DELETE FROM message_reads WHERE user_id = ? OR message_id IN (SELECT id FROM messages WHERE sender_id = ?)",
		"DELETE FROM messages WHERE sender_id = ?",
		"DELETE FROM chat_participants WHERE user_id = ?",
	}
	if _, err := tx.Exec(s.rebind(steps[0]), id, id); err != nil {
		return err
	}
	for _, q := range steps[1:] {
		if _, err := tx.Exec(s.rebind(q), id); err != nil {
			return err
		}
	}

	// Drop chats the deletion emptied out.
	if _, err := tx.Exec("DELETE FROM chats WHERE id NOT IN (SELECT DISTINCT chat_id FROM chat_participants)"); err != nil {
		return err
	}

	result, err := tx.Exec(s.rebind("DELETE FROM users WHERE id = ?"), id)
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

func collectUsers(rows *sql.Rows) ([]models.User, error) {
	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
