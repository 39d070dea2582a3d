package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rhuss/alertbridge/pkg/alerts"
	"github.com/rhuss/alertbridge/pkg/auth"
	"github.com/rhuss/alertbridge/pkg/auth/noop"
	"github.com/rhuss/alertbridge/pkg/auth/session"
	"github.com/rhuss/alertbridge/pkg/broker"
	"github.com/rhuss/alertbridge/pkg/config"
	"github.com/rhuss/alertbridge/pkg/debug"
	"github.com/rhuss/alertbridge/pkg/storage"
	"github.com/rhuss/alertbridge/pkg/storage/memory"
	"github.com/rhuss/alertbridge/pkg/storage/postgres"
	"github.com/rhuss/alertbridge/pkg/token"
	transporthttp "github.com/rhuss/alertbridge/pkg/transport/http"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the auth gateway",
		Long: `Run the HTTP auth gateway for the MQTT broker.

The broker's JWT plugin calls the decision endpoints under the route
prefix (default /mqtt): POST user, superuser and acl. Web clients fetch
an expiring token from GET {prefix}/jwt with their session cookie.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			debug.Init(cfg.Log.Debug, cfg.Log.Level)
			debug.Log("config", "configuration loaded",
				"storage", cfg.Storage.Type,
				"auth", cfg.Auth.Type,
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Host, cfg.MQTT.Port),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	codec, err := newCodec(cfg)
	if err != nil {
		return err
	}

	dir, err := newDirectory(ctx, cfg)
	if err != nil {
		return err
	}
	defer dir.Close()

	chain, closeAuth, err := newAuthChain(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAuth()

	provider := broker.NewProvider(broker.Config{
		Host:           cfg.MQTT.Host,
		Port:           cfg.MQTT.Port,
		KeepAlive:      cfg.MQTT.KeepAlive,
		ClientID:       cfg.MQTT.ClientID,
		ConnectTimeout: cfg.MQTT.ConnectTimeout,
		QoS:            byte(cfg.MQTT.QoS),
	}, codec)
	// Connect eagerly so a broker outage shows up in the startup log.
	provider.Get()

	if pg, ok := dir.(*postgres.Store); ok {
		publisher := alerts.NewPublisher(provider, dir, dir)
		go func() {
			err := pg.ListenAlertEvents(ctx, cfg.Storage.Postgres.ListenChannel, publisher.HandleEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("alert event listener stopped", "error", err)
			}
		}()
	}

	srv, srvCfg := newServer(cfg, codec, dir, chain, func() bool { return provider.Get().Connected() })

	ln, err := net.Listen("tcp", srvCfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", srvCfg.Addr, err)
	}
	return srv.Serve(ctx, ln)
}

// newServer assembles the HTTP gateway from the configured components.
func newServer(cfg *config.Config, codec *token.Codec, dir storage.Directory, chain *auth.AuthChain, brokerConnected func() bool) (*transporthttp.Server, transporthttp.ServerConfig) {
	var limiter auth.RateLimiter
	if cfg.Auth.RequestsPerMinute > 0 {
		limiter = auth.NewInProcessLimiter(cfg.Auth.RequestsPerMinute)
	}

	srvCfg := transporthttp.DefaultServerConfig()
	srvCfg.Addr = ":" + strconv.Itoa(cfg.Server.Port)
	srvCfg.RoutePrefix = cfg.Server.RoutePrefix
	srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	srvCfg.WriteTimeout = cfg.Server.WriteTimeout
	srvCfg.MetricsPath = ""
	if cfg.Observability.Metrics.Enabled {
		srvCfg.MetricsPath = cfg.Observability.Metrics.Path
	}

	srv := transporthttp.NewServer(
		transporthttp.NewGateway(codec, dir, slog.Default()),
		transporthttp.WithConfig(srvCfg),
		transporthttp.WithAuth(chain, limiter),
		transporthttp.WithReadiness(dir, brokerConnected),
	)
	return srv, srvCfg
}

// newDirectory builds the configured user directory.
func newDirectory(ctx context.Context, cfg *config.Config) (storage.Directory, error) {
	switch cfg.Storage.Type {
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		slog.Info("directory enabled", "type", "postgres")
		return store, nil
	default:
		dir := memory.New()
		for _, u := range cfg.Storage.Memory.Users {
			dir.AddUser(u.Email, u.Permissions...)
		}
		for _, a := range cfg.Storage.Memory.Alerts {
			dir.SetAlertRecipients(a.ID, a.Recipients...)
		}
		slog.Info("directory enabled", "type", "memory",
			"users", len(cfg.Storage.Memory.Users),
			"alerts", len(cfg.Storage.Memory.Alerts),
		)
		return dir, nil
	}
}

// newAuthChain builds the authenticator chain for the mint endpoint. The
// returned close function releases the session store.
func newAuthChain(ctx context.Context, cfg *config.Config) (*auth.AuthChain, func(), error) {
	if cfg.Auth.Type == "none" {
		slog.Warn("mint endpoint authentication disabled", "subject", cfg.Auth.DevSubject)
		return &auth.AuthChain{
			Authenticators: []auth.Authenticator{&noop.Authenticator{Email: cfg.Auth.DevSubject}},
		}, func() {}, nil
	}

	var (
		store     session.Store
		closeFunc = func() {}
	)
	switch cfg.Session.Store {
	case "redis":
		rs, err := session.NewRedisStore(ctx, session.RedisConfig{
			Addr:      cfg.Session.Redis.Addr,
			Password:  cfg.Session.Redis.Password,
			DB:        cfg.Session.Redis.DB,
			KeyPrefix: cfg.Session.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		store = rs
		closeFunc = func() { rs.Close() }
	default:
		ms := session.NewMemoryStore()
		for _, seed := range cfg.Session.Memory.Sessions {
			ms.Put(session.Session{ID: seed.ID, Email: seed.Email})
		}
		slog.Warn("in-memory session store only knows the configured sessions; use it for development only",
			"sessions", len(cfg.Session.Memory.Sessions))
		store = ms
	}
	slog.Info("session authentication enabled", "store", cfg.Session.Store, "cookie", cfg.Session.CookieName)

	return &auth.AuthChain{
		Authenticators: []auth.Authenticator{session.NewAuthenticator(store, cfg.Session.CookieName)},
	}, closeFunc, nil
}
