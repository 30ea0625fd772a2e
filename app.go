package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Almirante-Ming/Rose/auth"
	"github.com/Almirante-Ming/Rose/booking"
	"github.com/Almirante-Ming/Rose/client"
	"github.com/Almirante-Ming/Rose/config"
	"github.com/Almirante-Ming/Rose/directory"
	"github.com/Almirante-Ming/Rose/kv"
	"github.com/Almirante-Ming/Rose/schedule"
	"github.com/Almirante-Ming/Rose/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sessionPrefix = "rose:session"

// app holds the client-side services one command needs.
type app struct {
	logger    *zap.Logger
	sessions  *session.Store
	client    *client.Client
	prefs     *config.Preferences
	auth      *auth.Service
	bookings  *booking.Gateway
	directory *directory.Gateway
	redis     *redis.Client
	stdin     *bufio.Reader
	stdout    io.Writer
	stderr    io.Writer
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	a := &app{
		logger: logger,
		stdin:  bufio.NewReader(stdin),
		stdout: stdout,
		stderr: stderr,
	}

	var secure kv.Store

	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		rdb, err := kv.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

		if err != nil {
			return nil, err
		}

		a.redis = rdb
		secure = kv.NewRedisStore(rdb, sessionPrefix)
	default:
		file, err := kv.NewCacheStore(cfg.SessionFile(), 0o600)

		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}

		secure = file
	}

	plain, err := kv.NewCacheStore(cfg.PreferencesFile(), 0o644)

	if err != nil {
		return nil, fmt.Errorf("failed to open preferences: %w", err)
	}

	a.sessions = session.NewStore(secure, session.WithLogger(logger))

	a.client, err = client.New(cfg.APIURL, a.sessions,
		client.WithTimeout(cfg.HTTPTimeout),
		client.WithLogger(logger),
	)

	if err != nil {
		return nil, err
	}

	a.prefs = config.NewPreferences(plain, a.client, cfg.APIURL, logger)
	a.auth = auth.NewService(a.client, a.sessions, a.prefs, logger)
	a.bookings = booking.NewGateway(a.client, a.sessions, logger)
	a.directory = directory.NewGateway(a.client, logger)

	status, err := a.auth.Restore(ctx)

	if err != nil {
		return nil, err
	}

	logger.Debug("session restored", zap.Bool("authenticated", status.Authenticated), zap.String("route", string(status.Route)))

	return a, nil
}

func (a *app) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}

	return nil
}

func (a *app) controller() *schedule.Controller {
	return schedule.NewController(a.bookings, a.sessions, schedule.WithLogger(a.logger))
}

func (a *app) readLine(prompt string) (string, error) {
	fmt.Fprint(a.stderr, prompt)

	line, err := a.stdin.ReadString('\n')

	if err != nil && (err != io.EOF || len(line) == 0) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
