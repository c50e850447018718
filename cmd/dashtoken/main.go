package main

import (
	"fmt"
	"os"
	"time"

	"github.com/modrelay/backend/internal/auth"
	"github.com/modrelay/backend/internal/config"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "dashtoken",
		Usage: "issue a bearer token for the dashboard API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "operator",
				Usage: "operator name recorded in the token",
				Value: "operator",
			},
			&cli.StringSliceFlag{
				Name:  "scope",
				Usage: "scope to grant (repeatable)",
				Value: cli.NewStringSlice(auth.ScopeReadLogs),
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "token lifetime; defaults to DASHBOARD_TOKEN_TTL_HOURS",
			},
			&cli.StringFlag{
				Name:    "secret",
				Usage:   "signing secret",
				EnvVars: []string{"DASHBOARD_JWT_SECRET"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cctx *cli.Context) error {
	cfg := config.Load()

	secret := cctx.String("secret")
	if secret == "" {
		secret = cfg.DashboardJWTSecret
	}
	ttl := cctx.Duration("ttl")
	if ttl <= 0 {
		ttl = cfg.DashboardTokenTTL
	}

	token, err := auth.GenerateJWT(secret, cctx.String("operator"), cctx.StringSlice("scope"), ttl)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	fmt.Fprintln(cctx.App.Writer, token)
	fmt.Fprintf(cctx.App.ErrWriter, "expires in %s\n", ttl.Round(time.Minute))
	return nil
}
