// Command limitedbot trades Roblox limiteds. It loads and validates the
// configuration, wires dependencies, and runs the configured mode until
// interrupted. With -seal-cookie it instead encrypts a session cookie read
// from stdin into a vault file.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/alanyoungcy/limitedbot/internal/app"
	"github.com/alanyoungcy/limitedbot/internal/config"
	"github.com/alanyoungcy/limitedbot/internal/crypto"
)

func main() {
	configPath := flag.String("config", "limitedbot.toml", "path to configuration file")
	seal := flag.Bool("seal-cookie", false, "read a cookie from stdin and write a sealed vault")
	out := flag.String("out", "cookie.sealed", "vault path written by -seal-cookie")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	if *seal {
		if err := sealCookie(os.Stdin, *out, cfg.Account.CookiePassword); err != nil {
			logger.Error("seal cookie failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("cookie sealed", slog.String("path", *out))
		return
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("limitedbot starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
		slog.Any("settings", config.RedactedConfig(cfg)),
	)

	application := app.New(cfg, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application exited with error", slog.String("error", err.Error()))
		application.Close()
		os.Exit(1)
	}
	logger.Info("limitedbot stopped")
}

// newLogger builds a JSON handler, or tint's colored text handler when
// format is "text".
func newLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	if strings.EqualFold(format, "text") {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      lvl,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// sealCookie reads the first line of r and writes it sealed under password.
func sealCookie(r io.Reader, path, password string) error {
	if password == "" {
		return errors.New("set account.cookie_password or LIMITEDBOT_ACCOUNT_COOKIE_PASSWORD")
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read cookie: %w", err)
	}
	cookie := strings.TrimSpace(line)
	if cookie == "" {
		return errors.New("no cookie on stdin")
	}
	vault, err := crypto.SealCookie(cookie, password)
	if err != nil {
		return err
	}
	return os.WriteFile(path, vault, 0o600)
}
