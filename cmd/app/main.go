// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"discord-community-bot/internal/application"
	"discord-community-bot/internal/config"
	"discord-community-bot/internal/domain/ports/adapter"
	"discord-community-bot/internal/flows"
	discordAdapter "discord-community-bot/internal/infra/adapters/discord"
	"discord-community-bot/internal/infra/adapters/integrations"
	"discord-community-bot/internal/infra/adapters/noop"
	"discord-community-bot/internal/infra/httpapi"
	"discord-community-bot/internal/infra/logging"
	"discord-community-bot/internal/infra/metrics"
	red "discord-community-bot/internal/infra/redis"
	"discord-community-bot/internal/infra/sched"
	"discord-community-bot/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: console logs, no-op integrations")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Discord session ----
	session, err := discordgo.New("Bot " + cfg.Bot.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("discord session")
	}
	chat := discordAdapter.NewAdapter(session, cfg.Bot.GuildID, logger)

	// ---- Redis (optional: sweep lock + flood damping) ----
	var locker red.Locker
	var limiter *red.RateLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
		limiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Warn().Msg("redis.url not set; running without sweep lock and flood damping")
	}

	// ---- Integrations ----
	var list adapter.MailingListAdapter
	var verify adapter.EmailVerifierAdapter
	var ledger adapter.LedgerAdapter
	if cfg.Runtime.Dev {
		list = noop.NewMailingList()
		verify = noop.NewEmailVerifier()
		ledger = noop.NewLedger()
	} else {
		list, err = integrations.NewMailingListClient(cfg.Integrations.MailingList.BaseURL, cfg.Integrations.MailingList.APIKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("mailing list client")
		}
		verify, err = integrations.NewEmailVerifierClient(cfg.Integrations.EmailVerify.BaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("email verifier client")
		}
		ledger, err = integrations.NewGistLedger(cfg.Integrations.Ledger.GistID, cfg.Integrations.Ledger.Token, cfg.Integrations.Ledger.File)
		if err != nil {
			logger.Fatal().Err(err).Msg("gist ledger")
		}
	}

	// ---- Flows + engine ----
	allFlows := flows.All(flows.Deps{
		Chat:         chat,
		List:         list,
		Verify:       verify,
		Ledger:       ledger,
		MemberRoleID: cfg.Bot.MemberRoleID,
		Log:          logger,
	})
	locks := usecase.NewChannelLocks()
	driver := usecase.NewConversationUseCase(chat, locks, cfg.Sweep.FarewellDelay, logger)
	reconciler := usecase.NewEditReconciler(chat, locks, logger)
	sweeper := usecase.NewSweepUseCase(chat, driver, cfg.Sweep.ReplayGrace, logger)

	dispatcher := application.NewDispatcher(allFlows, driver, reconciler, logger)
	if limiter != nil {
		dispatcher.SetFloodLimiter(limiter)
	}
	launcher := application.NewLauncher(chat, allFlows, driver, logger)

	// ---- Gateway ----
	discordAdapter.BindHandlers(ctx, session, cfg.Bot.GuildID, dispatcher, launcher, logger)
	if err := session.Open(); err != nil {
		logger.Fatal().Err(err).Msg("discord gateway open")
	}
	defer session.Close()
	logger.Info().Str("guild_id", cfg.Bot.GuildID).Msg("discord gateway connected")

	// ---- Sweep worker ----
	worker := sched.NewSweepWorker(cfg.Sweep.Interval, chat, allFlows, sweeper, locker, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Ops server ----
	ops := httpapi.NewServer(&cfg.Ops, chat, allFlows, worker, logger)
	go func() {
		if err := ops.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("ops server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("ops server shutdown")
	}
	dispatcher.Wait()
}
