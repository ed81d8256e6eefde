// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики
// и собирает всё в один объект App.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"lumoplay.ru/engagement-api/internal/common"
	"lumoplay.ru/engagement-api/internal/config"
	"lumoplay.ru/engagement-api/internal/db/postgres"
	"lumoplay.ru/engagement-api/internal/features/admin"
	"lumoplay.ru/engagement-api/internal/features/ads"
	"lumoplay.ru/engagement-api/internal/features/daily"
	"lumoplay.ru/engagement-api/internal/features/ledger"
	"lumoplay.ru/engagement-api/internal/features/profile"
	"lumoplay.ru/engagement-api/internal/features/spin"
	"lumoplay.ru/engagement-api/internal/jobs"
	"lumoplay.ru/engagement-api/internal/server"
)

// App содержит все компоненты приложения.
type App struct {
	Server    *server.Server
	Scheduler *jobs.Scheduler
	Ads       *ads.Manager
	DB        *pgxpool.Pool
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Канонические часы ===
	clock := common.NewClock(cfg.AppTimezone)

	// === 3. Репозитории ===
	profileRepo := profile.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool, clock, cfg)
	spinRepo := spin.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 4. Сервисы ===
	ledgerService := ledger.NewService(ledgerRepo)
	profileService := profile.NewService(profileRepo, clock, cfg)
	dailyService := daily.NewService(profileRepo, ledgerService, clock)
	spinService := spin.NewService(spinRepo, ledgerService, spin.NewDefaultPicker(), clock, cfg)
	adsManager := ads.NewManager(ads.SDKProvider{}, spinService, clock, cfg.AdRetryBackoff)
	adminService := admin.NewService(adminRepo, ledgerService, cfg)

	// === 5. Обработчики ===
	handlers := server.Handlers{
		Profile: profile.NewHandler(profileService),
		Daily:   daily.NewHandler(dailyService),
		Spin:    spin.NewHandler(spinService),
		Ads:     ads.NewHandler(adsManager),
		Admin:   admin.NewHandler(adminService),
	}

	// === 6. HTTP-сервер и планировщик ===
	srv := server.New(cfg, handlers)
	scheduler := jobs.NewScheduler(profileService, clock)

	return &App{
		Server:    srv,
		Scheduler: scheduler,
		Ads:       adsManager,
		DB:        pool,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.EnsureMigrationsTable(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Profiles},
		{2, migration002Grants},
		{3, migration003SpinOutcomes},
		{4, migration004AdminAttempts},
	}
	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return err
		}
	}
	return nil
}

var migration001Profiles = `
CREATE TABLE IF NOT EXISTS profiles (
    user_id BIGINT PRIMARY KEY,
    coin_balance BIGINT NOT NULL DEFAULT 0,
    daily_streak INTEGER NOT NULL DEFAULT 0,
    last_claim_day DATE,
    spins_remaining INTEGER NOT NULL DEFAULT 0,
    spins_reset_day DATE NOT NULL,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_profiles_spins_reset_day ON profiles(spins_reset_day);
`

var migration002Grants = `
CREATE TABLE IF NOT EXISTS grants (
    idempotency_key VARCHAR(128) PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES profiles(user_id),
    amount BIGINT NOT NULL,
    kind VARCHAR(16) NOT NULL,
    applied_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_grants_user_id ON grants(user_id);
CREATE INDEX IF NOT EXISTS idx_grants_applied_at ON grants(applied_at DESC);
`

var migration003SpinOutcomes = `
CREATE TABLE IF NOT EXISTS spin_outcomes (
    outcome_id UUID PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES profiles(user_id),
    winning_index INTEGER NOT NULL,
    reward_amount BIGINT NOT NULL,
    issued_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_spin_outcomes_user_id ON spin_outcomes(user_id);
`

var migration004AdminAttempts = `
CREATE TABLE IF NOT EXISTS admin_access_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    attempt_time TIMESTAMP NOT NULL DEFAULT NOW(),
    success BOOLEAN NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_admin_attempts_user_time ON admin_access_attempts(user_id, attempt_time DESC);
`
