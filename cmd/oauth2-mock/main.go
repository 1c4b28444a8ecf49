// Command oauth2-mock runs a mock OAuth2/OpenID-Connect authorization server
// for exercising client integrations without a real identity provider.
//
// Identities come from a JSON configuration file; the authorization page lets
// the caller pick one. All state is in memory and lost on restart.
package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/cors"

	"github.com/tendant/oauth2-mock/pkg/authcode"
	"github.com/tendant/oauth2-mock/pkg/config"
	"github.com/tendant/oauth2-mock/pkg/grant"
	"github.com/tendant/oauth2-mock/pkg/oidc"
	"github.com/tendant/oauth2-mock/pkg/token"
	"github.com/tendant/oauth2-mock/pkg/userdir"
	"github.com/tendant/oauth2-mock/pkg/wellknown"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// .env is optional; real environment variables win
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded configuration from .env file")
	}

	cfg := config.ServerConfig{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(-1)
	}

	grantTTL, codeTTL, accessTTL, sweepInterval := parseDurations(&cfg)

	// Malformed entries or duplicate logins abort before the server starts
	users, err := userdir.LoadFromFile(cfg.UsersFile)
	if err != nil {
		slog.Error("Failed to load users configuration", "error", err, "path", cfg.UsersFile)
		os.Exit(-1)
	}
	slog.Info("Loaded users configuration", "path", cfg.UsersFile, "users", users.Len())

	grants := grant.NewRegistry(grantTTL)
	codes := authcode.NewRegistry(codeTTL)
	tokens := token.NewRegistry(accessTTL)

	service := oidc.NewService(users, grants, codes, tokens)

	handle, err := oidc.NewHandle(service, cfg.AuthorizationHeaderPrefix)
	if err != nil {
		slog.Error("Failed to create OAuth2 handlers", "error", err)
		os.Exit(-1)
	}

	wellKnownHandler := wellknown.NewHandler(wellknown.Config{
		BaseURL: cfg.BaseURL,
		Scopes:  cfg.Scopes(),
	})

	server := app.NewApp(
		app.WithPort(cfg.Port),
		app.WithCORS(corsOptions()),
	)
	app.RegisterHealthzRoutes(server.R)

	server.R.Get("/.well-known/openid-configuration", wellKnownHandler.OpenIDConfiguration)
	server.R.Get("/.well-known/oauth-authorization-server", wellKnownHandler.AuthorizationServerMetadata)
	server.R.Mount("/", oidc.Routes(handle))

	stop := make(chan struct{})
	defer close(stop)
	go sweepLoop(sweepInterval, stop, grants, codes, tokens)

	slog.Info("OAuth2 Mock Server starting", "base_url", cfg.BaseURL, "port", cfg.Port)
	slog.Info("Endpoints:")
	slog.Info("  GET  /authorize     - Authorization endpoint (user selection)")
	slog.Info("  POST /access_token  - Token endpoint")
	slog.Info("  GET  /user_info     - Userinfo endpoint")
	slog.Info("  GET  /.well-known/openid-configuration - Discovery")

	server.Run()
}

func parseDurations(cfg *config.ServerConfig) (grantTTL, codeTTL, accessTTL, sweepInterval time.Duration) {
	var err error
	if grantTTL, err = cfg.ParseGrantExpiry(); err != nil {
		slog.Error("Invalid GRANT_EXPIRY", "error", err, "value", cfg.GrantExpiry)
		os.Exit(-1)
	}
	if codeTTL, err = cfg.ParseCodeExpiry(); err != nil {
		slog.Error("Invalid CODE_EXPIRY", "error", err, "value", cfg.CodeExpiry)
		os.Exit(-1)
	}
	if accessTTL, err = cfg.ParseAccessTokenExpiry(); err != nil {
		slog.Error("Invalid ACCESS_TOKEN_EXPIRY", "error", err, "value", cfg.AccessTokenExpiry)
		os.Exit(-1)
	}
	if sweepInterval, err = cfg.ParseSweepInterval(); err != nil {
		slog.Error("Invalid SWEEP_INTERVAL", "error", err, "value", cfg.SweepInterval)
		os.Exit(-1)
	}
	return
}

// corsOptions allows any origin: a mock identity provider exists to be called
// from arbitrary local frontends during integration testing.
func corsOptions() *cors.Options {
	return &cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}
}

// sweepLoop bounds memory by purging expired grants, codes and access tokens
// until stop is closed. Redemption and rotation are atomic take operations,
// so the sweeper cannot race destructively with in-flight requests.
func sweepLoop(interval time.Duration, stop <-chan struct{}, grants *grant.Registry, codes *authcode.Registry, tokens *token.Registry) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			purged := grants.Sweep() + codes.Sweep() + tokens.Sweep()
			if purged > 0 {
				slog.Debug("Swept expired entries", "purged", purged)
			}
		}
	}
}
