package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/discord"
	"github.com/Jacobbrewer1/ticketwolf/pkg/locks"
	"github.com/Jacobbrewer1/ticketwolf/pkg/request"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	// PathMetrics is the path of the prometheus endpoint.
	PathMetrics = "/metrics"

	// PathHealth is the path of the health endpoint.
	PathHealth = "/health"
)

// IApp is the interface for the application.
type IApp interface {
	// Session returns the discord session.
	Session() *discordgo.Session

	// Log returns the application logger.
	Log() *slog.Logger

	// Engine returns the ticket lifecycle engine.
	Engine() *tickets.Engine

	// Repository returns the storage backend.
	Repository() dataaccess.Repository

	// Config returns the application configuration.
	Config() *Config
}

type App struct {
	// is the logger.
	*slog.Logger

	// cfg is the configuration of the application.
	cfg *Config

	// r is the router for the application.
	r *mux.Router

	// svr is the server for the application.
	svr *http.Server

	// s is the discord session.
	s *discordgo.Session

	// repo is the storage backend.
	repo dataaccess.Repository

	// locker serializes ticket creation and closing.
	locker locks.Locker

	// redis is the lock backend, nil when running with in-memory locks.
	redis *redis.Client

	// engine is the ticket lifecycle engine.
	engine *tickets.Engine

	// closer is the auto-close sweep.
	closer *tickets.AutoCloser

	// eventNotifier is the channel for notifying of events.
	eventNotifier chan any
}

// NewApp creates a new instance of App.
func NewApp(l *slog.Logger, r *mux.Router, cfg *Config) *App {
	return &App{
		Logger: l,
		r:      r,
		cfg:    cfg,
	}
}

// Run starts the bot and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.connect(ctx); err != nil {
		return err
	}

	// Register bot.
	if err := a.RegisterBot(); err != nil {
		return fmt.Errorf("error registering bot: %w", err)
	}

	a.engine = tickets.NewEngine(a.Logger, a.repo, discord.NewPlatform(a.s), a.locker)
	a.closer = tickets.NewAutoCloser(a.Logger, a.engine, a.repo, a.cfg.AutoCloseInterval, a.cfg.AutoCloseRate)

	a.s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.Info(fmt.Sprintf("Logged in as %s", r.User.Username))
	})

	if err := a.RegisterDiscordHandlers(); err != nil {
		return fmt.Errorf("error registering discord handlers: %w", err)
	}

	// Open websocket.
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	a.Info("Bot is now running.")

	a.generateServer()
	a.setupRoutes()

	g, gctx := errgroup.WithContext(ctx)

	if err := a.closer.Start(gctx); err != nil {
		return fmt.Errorf("error starting auto-close: %w", err)
	}

	g.Go(func() error {
		a.Info("Starting monitoring server", slog.String("addr", a.svr.Addr))
		if err := a.svr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error running monitoring server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.eventListener(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Info("Shutting down")
		return a.ShutdownHook()
	})

	return g.Wait()
}

// connect opens the store and the lock backend.
func (a *App) connect(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	repo, err := openRepository(cctx, a.Logger, a.cfg)
	if err != nil {
		return err
	}
	a.repo = repo

	if err := a.repo.Migrate(cctx); err != nil {
		return fmt.Errorf("error migrating store: %w", err)
	}

	locker, client, err := openLocker(cctx, a.Logger, a.cfg)
	if err != nil {
		return err
	}
	a.locker = locker
	a.redis = client
	return nil
}

// ShutdownHook stops the background work and closes every connection.
func (a *App) ShutdownHook() error {
	// Reset the total number of guilds to 0.
	TotalDiscordGuilds.Set(0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := a.closer.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("error stopping auto-close: %w", err))
	}

	if err := a.svr.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("error shutting down monitoring server: %w", err))
	}

	// Close the connection to Discord.
	if err := a.s.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing connection to Discord: %w", err))
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing Redis: %w", err))
		}
	}

	if err := a.repo.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("error closing store: %w", err))
	}
	return errors.Join(errs...)
}

func (a *App) RegisterBot() error {
	// Default the number of guilds to 0.
	TotalDiscordGuilds.Set(0)

	dg, err := discordgo.New("Bot " + a.cfg.BotToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent)

	if a.eventNotifier == nil {
		// Buffered so that a slow listener never blocks the gateway.
		a.eventNotifier = make(chan any, 100)
	}

	dg.SetEventNotifier(a.eventNotifier)

	a.s = dg
	return nil
}

func (a *App) setupRoutes() {
	a.r.HandleFunc(PathMetrics, promhttp.Handler().ServeHTTP).Methods(http.MethodGet)
	a.r.HandleFunc(PathHealth, middlewareHttp(a, a.healthCheck())).Methods(http.MethodGet)

	a.r.NotFoundHandler = request.NotFoundHandler(a.Logger)
	a.r.MethodNotAllowedHandler = request.MethodNotAllowedHandler(a.Logger)
}

func (a *App) generateServer() {
	a.svr = &http.Server{
		Addr:              ":" + a.cfg.MonitoringPort,
		Handler:           a.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (a *App) RegisterDiscordHandlers() error {
	// Bot joined guild. Also fires for every guild on connect.
	a.s.AddHandler(guildJoinedHandler(a))

	// Bot left guild.
	a.s.AddHandler(guildLeaveHandler(a))

	// Activity in ticket channels.
	a.s.AddHandler(messageActivityHandler(a))

	a.s.AddHandler(interactionHandler(a,
		// Slash Controllers
		map[string]commandController{
			setupCmdName:      setupCmdController,
			ticketTypeCmdName: ticketTypeCmdController,
			TicketCmdName:     ticketCmdController,
			pingCmdName:       pingCmdController,
		},
		// Component Processors
		map[string]commandProcessor{
			TicketTypeSelectID:          ticketTypeSelected,
			discord.ClaimTicketButtonID: claimTicketHandler,
			discord.CloseTicketButtonID: closeTicketHandler,
		},
		// Modal Processors
		map[string]commandProcessor{
			TicketReasonModalID: createTicket,
		}))
	return nil
}

func (a *App) eventListener(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-a.eventNotifier:
			if !ok {
				return
			}
			switch t := e.(type) {
			case *discordgo.Event:
				if t.Type != "" {
					TotalDiscordEvents.WithLabelValues(t.Type).Inc()
				} else {
					// If there is no type, then use the operation name.
					TotalDiscordEvents.WithLabelValues(strings.ToUpper(t.Operation.String())).Inc()
				}
			default:
				a.Error("Unknown event type", slog.String("type", fmt.Sprintf("%T", e)))
				TotalDiscordEvents.WithLabelValues("UNKNOWN").Inc()
			}
		}
	}
}

func (a *App) Session() *discordgo.Session {
	return a.s
}

func (a *App) Log() *slog.Logger {
	return a.Logger
}

func (a *App) Engine() *tickets.Engine {
	return a.engine
}

func (a *App) Repository() dataaccess.Repository {
	return a.repo
}

func (a *App) Config() *Config {
	return a.cfg
}
