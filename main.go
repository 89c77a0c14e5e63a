package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"LiveDesk/entity"
	"LiveDesk/impl/core"
	"LiveDesk/internal/config"
	"LiveDesk/internal/console"
	repository "LiveDesk/internal/database"
	"LiveDesk/internal/directory"
	"LiveDesk/internal/http-server/api"
	"LiveDesk/internal/lib/logger"
	"LiveDesk/internal/lib/sl"
	"LiveDesk/internal/notify"
	"LiveDesk/internal/prefs"
	"LiveDesk/internal/session"
	"LiveDesk/internal/storage/memory"
	"LiveDesk/internal/terminal"
	"LiveDesk/internal/widget"
	"LiveDesk/internal/ws"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	role := flag.String("role", "widget", "widget | console | directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, *logPath)

	lg.Info("starting livedesk", slog.String("config", *configPath), slog.String("env", conf.Env), slog.String("role", *role))
	lg.Debug("debug messages enabled")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch *role {
	case "directory":
		err = runDirectory(ctx, conf, lg)
	case "widget":
		err = runClient(ctx, conf, lg, entity.UserRole)
	case "console":
		err = runClient(ctx, conf, lg, entity.AdminRole)
	default:
		lg.Error("unknown role", slog.String("role", *role))
		os.Exit(2)
	}
	if err != nil {
		lg.Error("service stopped", sl.Err(err))
		os.Exit(1)
	}
	lg.Info("service stopped")
}

func runDirectory(ctx context.Context, conf *config.Config, lg *slog.Logger) error {
	hub := ws.NewHub(lg)
	go hub.Run(ctx)

	handler := core.New(lg)
	handler.SetHub(hub)
	handler.SetUsers(conf.Users)
	hub.SetHandler(handler)

	db, err := repository.NewMongoClient(conf, lg)
	if err != nil {
		lg.With(
			sl.Err(err),
		).Error("mongo client")
	}
	if db != nil {
		handler.SetRepository(db)
		lg.With(
			slog.String("host", conf.Mongo.Host),
			slog.String("port", conf.Mongo.Port),
			slog.String("user", conf.Mongo.User),
			slog.String("database", conf.Mongo.Database),
		).Info("mongo client initialized")
	} else {
		handler.SetRepository(memory.New())
		lg.Info("using in-memory room store")
	}

	// *** blocking start with http server ***
	return api.New(ctx, conf, lg, handler, hub)
}

func runClient(ctx context.Context, conf *config.Config, lg *slog.Logger, role entity.Role) error {
	identity := entity.Identity{
		ID:       conf.Identity.UserID,
		Name:     conf.Identity.Name,
		Email:    conf.Identity.Email,
		Token:    conf.Identity.Token,
		TenantID: conf.Identity.TenantID,
		Role:     role,
	}
	lg.With(
		slog.String("user", identity.ID),
		slog.String("tenant", identity.TenantID),
		sl.Secret("token", identity.Token),
	).Info("identity loaded")

	prefsPath := conf.Prefs.Path
	if prefsPath == "" {
		if p, err := prefs.DefaultPath(); err == nil {
			prefsPath = p
		}
	}
	store, err := prefs.Open(prefsPath)
	if err != nil {
		lg.Warn("load preferences", sl.Err(err))
		store, _ = prefs.Open("")
	}

	term := terminal.New(lg, os.Stdin, os.Stdout)

	sinks := notify.Sinks{
		Beeper:  notify.NewBell(os.Stdout),
		Toaster: term,
	}
	if role == entity.AdminRole {
		sinks.Notifier = notify.NewLogNotifier(lg)
		if conf.Telegram.Enabled {
			tg, err := notify.NewTelegram(conf.Telegram.ApiKey, conf.Telegram.ChatId, lg)
			if err != nil {
				lg.Error("failed to initialize telegram notifier", sl.Err(err))
			} else {
				defer tg.Close()
				sinks.Notifier = tg
			}
		}
	}
	dispatcher := notify.NewDispatcher(lg, role, store, sinks, conf.Chat.ToastLength)

	dir := directory.New(conf.Directory.BaseURL, identity.Token, identity.TenantID, conf.Directory.Timeout, lg)

	socketURL := conf.Socket.BaseURL
	if socketURL == "" {
		socketURL = conf.Directory.BaseURL
	}
	dial := session.WebSocketDialer(lg, ws.Options{
		HandshakeTimeout: conf.Socket.HandshakeTimeout,
		PingPeriod:       conf.Socket.PingPeriod,
		PongWait:         conf.Socket.PongWait,
		WriteWait:        conf.Socket.WriteWait,
		MaxMessageSize:   conf.Socket.MaxMessageSize,
	})
	sess := session.New(lg, dir, dial, dispatcher, session.Options{
		Identity:          identity,
		SocketURL:         strings.TrimRight(socketURL, "/"),
		TypingTimeout:     conf.Chat.TypingTimeout,
		TypingThrottle:    conf.Chat.TypingThrottle,
		ReconnectAttempts: conf.Socket.ReconnectAttempts,
		ReconnectBackoff:  conf.Socket.ReconnectBackoff,
	})

	if role == entity.AdminRole {
		con := console.New(lg, dir, sess, term, console.Options{PollInterval: conf.Console.PollInterval})
		return term.RunConsole(ctx, con, sess, sess, dispatcher, store)
	}
	w := widget.New(lg, dir, sess, dispatcher, term, identity, conf.Widget.Subject)
	return term.RunWidget(ctx, w, sess, store)
}
