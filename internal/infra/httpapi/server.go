// File: internal/infra/httpapi/server.go
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"discord-community-bot/internal/config"
	"discord-community-bot/internal/domain/model"
	"discord-community-bot/internal/domain/ports/adapter"
)

// Sweeper is the on-demand sweep trigger behind POST /api/v1/sweep.
type Sweeper interface {
	RunOnce(ctx context.Context)
}

// Server is the ops surface: health, metrics, and a small JWT-guarded API for
// inspecting open conversations and forcing a sweep pass.
type Server struct {
	cfg     *config.OpsConfig
	chat    adapter.ChatPlatformAdapter
	flows   []model.Flow
	sweeper Sweeper
	log     *zerolog.Logger
	server  *http.Server
}

func NewServer(cfg *config.OpsConfig, chat adapter.ChatPlatformAdapter, flows []model.Flow, sweeper Sweeper, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "OpsServer").Logger()
	return &Server{cfg: cfg, chat: chat, flows: flows, sweeper: sweeper, log: &l}
}

func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLog(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if s.cfg.JWTSecret == "" {
		s.log.Warn().Msg("ops.jwt_secret not set; API routes disabled")
	} else {
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(jwtAuth(s.cfg.JWTSecret))
			r.Get("/conversations", s.handleConversations)
			r.Post("/sweep", s.handleSweep)
		})
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Int("port", s.cfg.Port).Msg("ops server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

type conversationView struct {
	ChannelID string `json:"channel_id"`
	Name      string `json:"name"`
	Flow      string `json:"flow"`
	MemberID  string `json:"member_id,omitempty"`
	Expires   string `json:"expires,omitempty"`
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	channels, err := s.chat.Channels(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("conversation listing failed")
		http.Error(w, "upstream error", http.StatusBadGateway)
		return
	}

	out := []conversationView{}
	for _, ch := range channels {
		flow, ok := flowFor(s.flows, ch.Name)
		if !ok {
			continue
		}
		v := conversationView{ChannelID: ch.ID, Name: ch.Name, Flow: flow.Kind}
		if id, err := ch.MemberID(); err == nil {
			v.MemberID = id
		}
		if exp, err := ch.Expiry(); err == nil {
			v.Expires = exp.Format(time.RFC3339)
		}
		out = append(out, v)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	// Detached from the request context so a client timeout cannot cut the
	// pass short halfway through a channel.
	go s.sweeper.RunOnce(context.WithoutCancel(r.Context()))
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprint(w, "sweep scheduled")
}

func flowFor(flows []model.Flow, channelName string) (model.Flow, bool) {
	var best model.Flow
	found := false
	for _, f := range flows {
		if len(channelName) >= len(f.ChannelPrefix) && channelName[:len(f.ChannelPrefix)] == f.ChannelPrefix {
			if !found || len(f.ChannelPrefix) > len(best.ChannelPrefix) {
				best = f
				found = true
			}
		}
	}
	return best, found
}
