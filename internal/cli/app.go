// internal/cli/app.go
//
// Shared boot sequence for every sub-command.
//
// Boot order
// ----------
//
//  1. Resolve the project root (flag → CONSOLE_ROOT → discovery).
//
//  2. Load config (conf/.env, conf/console.yaml, CONSOLE_ env).
//
//  3. Start the daily rotating logger at the configured level, then load
//     the optional GeoLite2 database for the access log.
//
//  4. Resolve `vault:` references when any are present.
//
//  5. Open the audit journal when audit.dsn is set.
//
//  6. Build the API client and a console.Session on top of it.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package cli

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/scanconsole/internal/api"
	"github.com/yanizio/scanconsole/internal/audit"
	"github.com/yanizio/scanconsole/internal/config"
	"github.com/yanizio/scanconsole/internal/console"
	"github.com/yanizio/scanconsole/internal/database"
	"github.com/yanizio/scanconsole/internal/logger"
	"github.com/yanizio/scanconsole/internal/requestinfo"
	"github.com/yanizio/scanconsole/internal/vault"
)

// App carries flag values and the booted dependencies.
type App struct {
	Root string

	cfg *config.Config
	log *zap.SugaredLogger
	db  *sqlx.DB
}

// boot runs steps 1–5.  tee attaches the console log core.
func (a *App) boot(ctx context.Context, tee bool) error {
	root := a.Root
	if root == "" {
		root = config.RootDir()
	}

	cfg, err := config.LoadFrom(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Paths.Root, cfg.Log.Level, tee)
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	a.log = log

	if db := cfg.RequestInfo.GeoIPDB; db != "" {
		if err := requestinfo.InitGeo(db); err != nil {
			return err
		}
		log.Infow("geoip database loaded", "path", db)
	}

	if config.NeedsVault(cfg) {
		vc, err := vault.New(ctx)
		if err != nil {
			return fmt.Errorf("vault: %w", err)
		}
		if err := config.ResolveSecrets(ctx, cfg, vc); err != nil {
			return fmt.Errorf("resolve secrets: %w", err)
		}
		log.Infow("secrets resolved from vault")
	}
	a.cfg = cfg

	if cfg.Audit.DSN != "" {
		db, err := database.Open(cfg.Audit.DSN)
		if err != nil {
			return fmt.Errorf("connect audit DB: %w", err)
		}
		a.db = db
		log.Infow("audit journal online")
	}
	return nil
}

// session builds step 6.  start is the initial history location.
func (a *App) session(ctx context.Context, start string) (*console.Session, error) {
	client, err := api.New(api.Options{
		BaseURL: a.cfg.API.BaseURL,
		Token:   a.cfg.API.Token,
		Timeout: a.cfg.API.Timeout,
		Retries: a.cfg.API.Retries,
	})
	if err != nil {
		return nil, err
	}

	deps := console.Deps{
		Source:    client,
		Patcher:   client,
		BatchSize: a.cfg.API.BatchSize,
		Username:  a.cfg.Console.Username,
		StartURL:  start,
	}
	if a.db != nil {
		j := audit.New(a.db)
		deps.Journal = j
		deps.Audit = j
	}
	return console.NewSession(ctx, deps)
}

// close releases what boot opened.
func (a *App) close() {
	requestinfo.CloseGeo()
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}
