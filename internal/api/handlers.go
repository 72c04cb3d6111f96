package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mwhitford/teamdesk/internal/chat"
	"github.com/mwhitford/teamdesk/internal/database"
	"github.com/mwhitford/teamdesk/internal/types"
	"github.com/teris-io/shortid"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdateAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateChatroomRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type JoinChatroomRequest struct {
	RoomId   string `json:"room_id"`
	Password string `json:"password"`
}

type UpdateMembershipRequest struct {
	RoomId string `json:"room_id"`
	UserId int    `json:"user_id"`
	Active bool   `json:"active"`
}

type PostMessageRequest struct {
	Content string `json:"content"`
	RoomId  string `json:"roomId"`
}

type IssueBanRequest struct {
	UserId int    `json:"userId"`
	Reason string `json:"reason"`
}

func (s *PortalApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func toUser(a database.Account) types.User {
	return types.User{
		Id:           a.Id,
		Username:     a.Username,
		EmailAddress: a.EmailAddress,
		Role:         a.Role,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// currentUser resolves the authenticated request to a full user record.
func (s *PortalApp) currentUser(r *http.Request) (types.User, *ApiError) {
	userId, ok := UserId(r.Context())
	if !ok {
		return types.User{}, NewUnauthorizedError()
	}

	account, err := s.db.GetAccountById(userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, NewUnauthorizedError()
		}
		return types.User{}, NewInternalServerError(err)
	}

	return toUser(account), nil
}

func (s *PortalApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	newAccount, err := s.db.CreateAccount(database.CreateAccountParams{
		Username:     req.Username,
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
		Role:         types.RoleMember,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, toUser(newAccount))
}

func (s *PortalApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	account, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(account.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.createJwtForSession(account.Id, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, toUser(account))
}

func (s *PortalApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired one
	http.SetCookie(w, createJwtCookie("", -time.Hour))
	w.WriteHeader(http.StatusNoContent)
}

func (s *PortalApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Printf("health check: %v", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *PortalApp) session(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, user)
}

func (s *PortalApp) account(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		user, errResp := s.currentUser(r)
		if errResp != nil {
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, user)
	case http.MethodPut:
		user, errResp := s.currentUser(r)
		if errResp != nil {
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		var req UpdateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		if req.Username == "" || req.Password == "" {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		pwdHash, err := hashPassword(req.Password)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		updated, err := s.db.UpdateAccount(database.UpdateAccountParams{
			AccountId:    user.Id,
			Username:     req.Username,
			PasswordHash: pwdHash,
		})
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, toUser(updated))
	default:
		errResp := NewMethodNotAllowedError()
		s.writeJson(w, errResp.StatusCode, errResp)
	}
}

func (s *PortalApp) createChatroom(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateChatroomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Name == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sid, err := shortid.Generate()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.CreateChatroom(database.CreateChatroomParams{
		ExternalId:   sid,
		Name:         req.Name,
		OwnerId:      user.Id,
		PasswordHash: pwdHash,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.CreateMembership(user.Id, room.Id); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.Chatroom{
		Id:         room.Id,
		ExternalId: room.ExternalId,
		Name:       room.Name,
		OwnerId:    room.OwnerId,
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
	})
}

func (s *PortalApp) joinChatroom(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req JoinChatroomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.RoomId == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetChatroomByExternalId(req.RoomId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(room.PasswordHash, req.Password) {
		errResp := NewForbiddenError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	membership, err := s.db.CreateMembership(user.Id, room.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// a deactivated membership is not resurrected by re-joining
	if !membership.Active {
		errResp := NewForbiddenError("membership deactivated")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.Chatroom{
		Id:         room.Id,
		ExternalId: room.ExternalId,
		Name:       room.Name,
		OwnerId:    room.OwnerId,
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
	})
}

func (s *PortalApp) listChatrooms(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbRooms, err := s.db.ListChatroomsForAccount(user.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	rooms := make([]types.Chatroom, 0, len(dbRooms))
	for _, room := range dbRooms {
		rooms = append(rooms, types.Chatroom{
			Id:         room.Id,
			ExternalId: room.ExternalId,
			Name:       room.Name,
			OwnerId:    room.OwnerId,
			CreatedAt:  room.CreatedAt,
			UpdatedAt:  room.UpdatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *PortalApp) updateMembership(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UpdateMembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetChatroomByExternalId(req.RoomId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// only the room owner or an admin may deactivate a member's credential
	if room.OwnerId != user.Id && !user.IsAdmin() {
		errResp := NewForbiddenError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.SetMembershipActive(req.UserId, room.Id, req.Active); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *PortalApp) getMessages(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	cfg := s.settings.ChatSettings()
	limit := cfg.HistoryLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		if n > 0 && n < limit {
			limit = n
		}
	}

	var chatroomId *int
	roomId := r.URL.Query().Get("room_id")
	if roomId != "" {
		room, apiErr := s.authorizeChatroom(user, roomId)
		if apiErr != nil {
			s.writeJson(w, apiErr.StatusCode, apiErr)
			return
		}
		chatroomId = &room.Id
	}

	dbMessages, err := s.db.GetRecentMessages(chatroomId, limit)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]types.ChatMessage, 0, len(dbMessages))
	for _, msg := range dbMessages {
		m := types.ChatMessage{
			Id:        msg.Id,
			UserId:    msg.AccountId,
			UserName:  msg.Username,
			UserRole:  msg.Role,
			Content:   msg.Content,
			IsSystem:  msg.IsSystem,
			CreatedAt: msg.CreatedAt,
		}
		if msg.ChatroomId != nil {
			scope := roomId
			m.RoomId = &scope
		}
		messages = append(messages, m)
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *PortalApp) postMessage(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.RoomId != "" {
		if _, apiErr := s.authorizeChatroom(user, req.RoomId); apiErr != nil {
			s.writeJson(w, apiErr.StatusCode, apiErr)
			return
		}
	}

	msg, err := s.pipeline.PostMessage(user, req.RoomId, req.Content)
	if err != nil {
		errResp := postMessageError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func postMessageError(err error) *ApiError {
	var banned *chat.BannedError
	switch {
	case errors.As(err, &banned):
		return NewForbiddenError(banned.Error())
	case errors.Is(err, chat.ErrRateLimited):
		return NewTooManyRequestsError()
	case errors.Is(err, chat.ErrEmptyMessage):
		return NewBadRequestError()
	case errors.Is(err, chat.ErrRoomNotFound):
		return NewNotFoundError()
	default:
		return NewInternalServerError(err)
	}
}

func (s *PortalApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !user.IsAdmin() {
		errResp := NewForbiddenError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messageId, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// moderation delete is a hard delete and is intentionally not broadcast
	if err := s.db.DeleteMessage(messageId); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *PortalApp) chatSettings(w http.ResponseWriter, r *http.Request) {
	if _, errResp := s.currentUser(r); errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, s.settings.ChatSettings())
}

func (s *PortalApp) issueBan(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !user.IsAdmin() {
		errResp := NewForbiddenError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req IssueBanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	target, err := s.db.GetAccountById(req.UserId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	ban, err := s.pipeline.IssueBan(toUser(target), req.Reason, user.Id)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, chat.ErrForbiddenTarget) {
			errResp = NewForbiddenError(err.Error())
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, ban)
}

func (s *PortalApp) liftBan(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !user.IsAdmin() {
		errResp := NewForbiddenError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	userId, err := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.pipeline.LiftBan(userId); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// authorizeChatroom resolves a chatroom by external id and checks the
// user holds an active membership. Admins are still required to be
// members; chatroom credentials are independent of portal role.
func (s *PortalApp) authorizeChatroom(user types.User, roomId string) (database.Chatroom, *ApiError) {
	room, err := s.db.GetChatroomByExternalId(roomId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Chatroom{}, NewNotFoundError()
		}
		return database.Chatroom{}, NewInternalServerError(err)
	}

	membership, err := s.db.GetMembership(user.Id, room.Id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Chatroom{}, NewForbiddenError("")
		}
		return database.Chatroom{}, NewInternalServerError(err)
	}

	if !membership.Active {
		return database.Chatroom{}, NewForbiddenError("membership deactivated")
	}

	return room, nil
}
