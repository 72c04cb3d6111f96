package database

import (
	"database/sql"
	"time"
)

func (db *PgRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, role, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) RETURNING id, username, email, role, created_at, updated_at",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		params.Role,
		time.Now().UTC(),
	)

	var a Account
	err := res.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.Role,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgRepository) UpdateAccount(params UpdateAccountParams) (Account, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, password_hash = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING id, username, email, role, created_at, updated_at",
		params.AccountId,
		params.Username,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var a Account
	err := res.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.Role,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgRepository) GetAccountById(accountId int) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, role, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.PasswordHash,
		&a.Role,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgRepository) GetAccountByEmail(email string) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, role, created_at, updated_at FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.PasswordHash,
		&a.Role,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgRepository) CreateChatroom(params CreateChatroomParams) (Chatroom, error) {
	res := db.conn.QueryRow(
		"INSERT INTO chatrooms (external_id, name, owner_id, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) RETURNING id, external_id, name, owner_id, created_at, updated_at",
		params.ExternalId,
		params.Name,
		params.OwnerId,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var c Chatroom
	err := res.Scan(
		&c.Id,
		&c.ExternalId,
		&c.Name,
		&c.OwnerId,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	return c, err
}

func (db *PgRepository) GetChatroomByExternalId(externalId string) (Chatroom, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, owner_id, password_hash, created_at, updated_at FROM chatrooms "+
			"WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var c Chatroom
	err := row.Scan(
		&c.Id,
		&c.ExternalId,
		&c.Name,
		&c.OwnerId,
		&c.PasswordHash,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	return c, err
}

func (db *PgRepository) ListChatroomsForAccount(accountId int) ([]Chatroom, error) {
	rows, err := db.conn.Query(
		"SELECT c.id, c.external_id, c.name, c.owner_id, c.created_at, c.updated_at "+
			"FROM chatrooms c JOIN memberships m ON m.chatroom_id = c.id "+
			"WHERE m.account_id = $1 AND m.active ORDER BY c.name",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chatrooms []Chatroom
	for rows.Next() {
		var c Chatroom
		if err := rows.Scan(&c.Id, &c.ExternalId, &c.Name, &c.OwnerId, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		chatrooms = append(chatrooms, c)
	}

	return chatrooms, rows.Err()
}

func (db *PgRepository) CreateMembership(accountId, chatroomId int) (Membership, error) {
	res := db.conn.QueryRow(
		"INSERT INTO memberships (account_id, chatroom_id, created_at, updated_at) VALUES ($1, $2, $3, $3) "+
			"ON CONFLICT (account_id, chatroom_id) DO UPDATE SET updated_at = $3 "+
			"RETURNING id, account_id, chatroom_id, active, created_at, updated_at",
		accountId,
		chatroomId,
		time.Now().UTC(),
	)

	var m Membership
	err := res.Scan(
		&m.Id,
		&m.AccountId,
		&m.ChatroomId,
		&m.Active,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	return m, err
}

func (db *PgRepository) GetMembership(accountId, chatroomId int) (Membership, error) {
	row := db.conn.QueryRow(
		"SELECT id, account_id, chatroom_id, active, created_at, updated_at FROM memberships "+
			"WHERE account_id = $1 AND chatroom_id = $2 LIMIT 1",
		accountId,
		chatroomId,
	)

	var m Membership
	err := row.Scan(
		&m.Id,
		&m.AccountId,
		&m.ChatroomId,
		&m.Active,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	return m, err
}

func (db *PgRepository) SetMembershipActive(accountId, chatroomId int, active bool) error {
	_, err := db.conn.Exec(
		"UPDATE memberships SET active = $3, updated_at = $4 WHERE account_id = $1 AND chatroom_id = $2",
		accountId,
		chatroomId,
		active,
		time.Now().UTC(),
	)

	return err
}

func (db *PgRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	var chatroomId sql.NullInt64
	if params.ChatroomId != nil {
		chatroomId = sql.NullInt64{Int64: int64(*params.ChatroomId), Valid: true}
	}

	res := db.conn.QueryRow(
		"INSERT INTO messages (account_id, chatroom_id, content, is_system, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at",
		params.AccountId,
		chatroomId,
		params.Content,
		params.IsSystem,
		time.Now().UTC(),
	)

	msg := Message{
		AccountId:  params.AccountId,
		ChatroomId: params.ChatroomId,
		Content:    params.Content,
		IsSystem:   params.IsSystem,
	}
	err := res.Scan(&msg.Id, &msg.CreatedAt)

	return msg, err
}

func (db *PgRepository) DeleteMessage(messageId int) error {
	res, err := db.conn.Exec("DELETE FROM messages WHERE id = $1", messageId)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgRepository) GetRecentMessages(chatroomId *int, limit int) ([]Message, error) {
	var roomFilter sql.NullInt64
	if chatroomId != nil {
		roomFilter = sql.NullInt64{Int64: int64(*chatroomId), Valid: true}
	}

	// Fetch the most recent rows, then return them in ascending order.
	query := `
		SELECT id, account_id, username, role, chatroom_id, content, is_system, created_at FROM (
			SELECT m.id, m.account_id, a.username, a.role, m.chatroom_id, m.content, m.is_system, m.created_at
			FROM messages m
			JOIN accounts a ON a.id = m.account_id
			WHERE m.chatroom_id IS NOT DISTINCT FROM $1
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT $2
		) recent ORDER BY created_at ASC, id ASC`

	rows, err := db.conn.Query(query, roomFilter, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			msg    Message
			roomId sql.NullInt64
		)
		if err := rows.Scan(&msg.Id, &msg.AccountId, &msg.Username, &msg.Role, &roomId, &msg.Content, &msg.IsSystem, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if roomId.Valid {
			id := int(roomId.Int64)
			msg.ChatroomId = &id
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (db *PgRepository) UpsertBan(params UpsertBanParams) (Ban, error) {
	res := db.conn.QueryRow(
		"INSERT INTO bans (account_id, reason, issued_by, active, created_at) VALUES ($1, $2, $3, TRUE, $4) "+
			"ON CONFLICT (account_id) WHERE active DO UPDATE SET reason = $2, issued_by = $3, created_at = $4 "+
			"RETURNING id, account_id, reason, issued_by, active, created_at",
		params.AccountId,
		params.Reason,
		params.IssuedBy,
		time.Now().UTC(),
	)

	var b Ban
	err := res.Scan(
		&b.Id,
		&b.AccountId,
		&b.Reason,
		&b.IssuedBy,
		&b.Active,
		&b.CreatedAt,
	)

	return b, err
}

func (db *PgRepository) LiftBan(accountId int) error {
	_, err := db.conn.Exec(
		"UPDATE bans SET active = FALSE, lifted_at = $2 WHERE account_id = $1 AND active",
		accountId,
		time.Now().UTC(),
	)

	return err
}

func (db *PgRepository) ListActiveBans() ([]Ban, error) {
	rows, err := db.conn.Query(
		"SELECT id, account_id, reason, issued_by, active, created_at, lifted_at FROM bans WHERE active",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bans []Ban
	for rows.Next() {
		var b Ban
		if err := rows.Scan(&b.Id, &b.AccountId, &b.Reason, &b.IssuedBy, &b.Active, &b.CreatedAt, &b.LiftedAt); err != nil {
			return nil, err
		}
		bans = append(bans, b)
	}

	return bans, rows.Err()
}

func (db *PgRepository) GetChatSettings() (ChatSettings, error) {
	row := db.conn.QueryRow(
		"SELECT rate_limit_per_minute, max_message_length, history_limit, updated_at FROM chat_settings WHERE id = 1",
	)

	var s ChatSettings
	err := row.Scan(
		&s.RateLimitPerMinute,
		&s.MaxMessageLength,
		&s.HistoryLimit,
		&s.UpdatedAt,
	)

	return s, err
}
