package main

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kzhou/parley/internal/auth"
	"github.com/kzhou/parley/internal/config"
	"github.com/kzhou/parley/internal/handlers"
	"github.com/kzhou/parley/internal/logger"
	"github.com/kzhou/parley/internal/middleware"
	"github.com/kzhou/parley/internal/store/sqlstore"
	"github.com/kzhou/parley/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg.Log.Level, cfg.Log.Pretty)

	st, err := sqlstore.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("open database")
	}
	defer st.Close()

	tokens := auth.NewTokens(cfg.JWT.Secret, cfg.JWT.TTL)

	// Presence is lifecycle-scoped: built here, handed to the hub.
	presence := ws.NewMemoryPresence()
	hub := ws.NewHub(st, presence, cfg.WebSocket)
	go hub.Run()
	router := ws.NewRouter(hub, st)

	authHandler := &handlers.AuthHandler{Store: st, Tokens: tokens}
	userHandler := &handlers.UserHandler{Store: st}
	chatHandler := &handlers.ChatHandler{Store: st}
	messageHandler := &handlers.MessageHandler{Store: st}
	adminHandler := &handlers.AdminHandler{Store: st}

	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"message":"Server is running"}`))
	}).Methods("GET")

	// Public endpoints
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Authenticated endpoints
	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.Authenticate(tokens))
	authed.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")
	authed.HandleFunc("/auth/me", authHandler.Me).Methods("GET")

	authed.HandleFunc("/users", userHandler.List).Methods("GET")
	authed.HandleFunc("/users/search", userHandler.Search).Methods("GET")
	authed.HandleFunc("/users/profile", userHandler.UpdateProfile).Methods("PUT")
	authed.HandleFunc("/users/status", userHandler.UpdateStatus).Methods("PUT")
	authed.HandleFunc("/users/{id:[0-9]+}", userHandler.Get).Methods("GET")

	authed.HandleFunc("/chats", chatHandler.Create).Methods("POST")
	authed.HandleFunc("/chats", chatHandler.List).Methods("GET")
	authed.HandleFunc("/chats/{id:[0-9]+}", chatHandler.Get).Methods("GET")
	authed.HandleFunc("/chats/{id:[0-9]+}", chatHandler.Update).Methods("PUT")
	authed.HandleFunc("/chats/{id:[0-9]+}", chatHandler.Delete).Methods("DELETE")
	authed.HandleFunc("/chats/{id:[0-9]+}/participants", chatHandler.AddParticipant).Methods("POST")
	authed.HandleFunc("/chats/{id:[0-9]+}/participants/{userId:[0-9]+}", chatHandler.RemoveParticipant).Methods("DELETE")

	authed.HandleFunc("/messages", messageHandler.Send).Methods("POST")
	authed.HandleFunc("/messages/chat/{chatId:[0-9]+}/read-all", messageHandler.MarkChatRead).Methods("PUT")
	authed.HandleFunc("/messages/{chatId:[0-9]+}", messageHandler.ListForChat).Methods("GET")
	authed.HandleFunc("/messages/{id:[0-9]+}", messageHandler.Edit).Methods("PUT")
	authed.HandleFunc("/messages/{id:[0-9]+}", messageHandler.Delete).Methods("DELETE")
	authed.HandleFunc("/messages/{id:[0-9]+}/read", messageHandler.MarkRead).Methods("PUT")

	authed.HandleFunc("/admin/users", adminHandler.ListUsers).Methods("GET")
	authed.HandleFunc("/admin/users/{id:[0-9]+}", adminHandler.DeleteUser).Methods("DELETE")
	authed.HandleFunc("/admin/users/{id:[0-9]+}/role", adminHandler.UpdateUserRole).Methods("PUT")
	authed.HandleFunc("/admin/chats", adminHandler.ListChats).Methods("GET")
	authed.HandleFunc("/admin/chats/{id:[0-9]+}", adminHandler.DeleteChat).Methods("DELETE")
	authed.HandleFunc("/admin/stats", adminHandler.GetStats).Methods("GET")

	// WebSocket endpoint; authenticates during the handshake itself.
	r.HandleFunc("/ws", ws.ServeWs(hub, router, tokens))

	logger.L().Info().Str("addr", cfg.Server.Addr).Msg("starting server")
	if err := http.ListenAndServe(cfg.Server.Addr, r); err != nil {
		logger.L().Fatal().Err(err).Msg("server stopped")
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.L().Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
