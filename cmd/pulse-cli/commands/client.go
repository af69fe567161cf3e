package commands

import (
	"context"
	"log/slog"
	"os"

	"pulsebridge/lib/configutil"
	"pulsebridge/lib/restyutil"
	"pulsebridge/lib/scrapers/pulse"
)

const defaultBaseUrl = "https://portal.adtpulse.com"

type Config struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
	Debug    bool   `json:"debug"`
}

// createClient reads config.json5, signs in and returns a live session.
func createClient(ctx context.Context) *pulse.Client {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		fatal("failed to read config", err)
	}
	if cfg.BaseUrl == "" {
		cfg.BaseUrl = defaultBaseUrl
	}

	var output restyutil.InstrumentOutput
	if cfg.Debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
		output = restyutil.NewFilesystemOutput(".dev/resty/pulse")
	}

	client, err := pulse.NewClient(ctx, pulse.ClientOptions{
		BaseUrl:          cfg.BaseUrl,
		Username:         cfg.Username,
		Password:         cfg.Password,
		InstrumentOutput: output,
	})
	if err != nil {
		fatal("failed to initialize portal client", err)
	}

	res, err := client.Login(ctx)
	if err != nil {
		fatal("failed to sign in to the portal", err)
	}
	slog.Info("signed in", "portal_version", res.Info.Version)

	return client
}

func signOut(ctx context.Context, client *pulse.Client) {
	_, err := client.Logout(ctx)
	if err != nil {
		slog.Warn("failed to sign out", "err", err)
	}
}
