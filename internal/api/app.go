package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/mwhitford/teamdesk/internal/chat"
	"github.com/mwhitford/teamdesk/internal/config"
	"github.com/mwhitford/teamdesk/internal/database"
	"github.com/mwhitford/teamdesk/internal/stats"
)

type PortalApp struct {
	log            *log.Logger
	db             database.Repository
	mux            *http.Server
	pipeline       *chat.MessagePipeline
	registry       *chat.SubscriptionRegistry
	bans           *chat.BanRegistry
	settings       chat.SettingsProvider
	stats          stats.Provider
	signingKey     []byte
	allowedOrigins []string
}

func NewPortalApp(mux *http.ServeMux, logger *log.Logger, db database.Repository,
	pipeline *chat.MessagePipeline, registry *chat.SubscriptionRegistry, bans *chat.BanRegistry,
	settings chat.SettingsProvider, sp stats.Provider, cfg *config.Config) *PortalApp {
	s := &PortalApp{
		log:            logger,
		db:             db,
		pipeline:       pipeline,
		registry:       registry,
		bans:           bans,
		settings:       settings,
		stats:          sp,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))
	mux.Handle("POST /api/chatrooms", s.authMiddleware(s.createChatroom))
	mux.Handle("POST /api/chatrooms/join", s.authMiddleware(s.joinChatroom))
	mux.Handle("GET /api/chatrooms", s.authMiddleware(s.listChatrooms))
	mux.Handle("PUT /api/chatrooms/members", s.authMiddleware(s.updateMembership))
	mux.Handle("GET /api/chat/messages", s.authMiddleware(s.getMessages))
	mux.Handle("POST /api/chat/messages", s.authMiddleware(s.postMessage))
	mux.Handle("DELETE /api/chat/messages", s.authMiddleware(s.deleteMessage))
	mux.Handle("GET /api/chat/settings", s.authMiddleware(s.chatSettings))
	mux.Handle("POST /api/chat/bans", s.authMiddleware(s.issueBan))
	mux.Handle("DELETE /api/chat/bans", s.authMiddleware(s.liftBan))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *PortalApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *PortalApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
