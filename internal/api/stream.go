package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/mwhitford/teamdesk/internal/chat"
	"github.com/mwhitford/teamdesk/internal/types"
)

// serveWs upgrades the request and attaches the connection to the event
// stream for the requested room. The stream is push-only: events flow
// out and the read side exists only to detect disconnects.
func (s *PortalApp) serveWs(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId := r.URL.Query().Get("room_id")
	if roomId != chat.GlobalRoom {
		if _, apiErr := s.authorizeChatroom(user, roomId); apiErr != nil {
			s.writeJson(w, apiErr.StatusCode, apiErr)
			return
		}
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("ws upgrade: %v", err)
		return
	}

	sub := s.registry.Subscribe(roomId, user.Id)

	// banned users may still watch the stream; remind them up front so
	// the client can render the banned state without a failed post
	if reason, ok := s.bans.Reason(user.Id); ok {
		sub.Send(chat.BanEvent(&types.Ban{UserId: user.Id, Reason: reason}))
	}

	client := chat.NewClient(conn, sub, s.registry, s.log, s.stats)
	go client.Write()
	go client.Read()
}

func (s *PortalApp) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}
