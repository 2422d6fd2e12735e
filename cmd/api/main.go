package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/activity"
	activityrepo "github.com/ovaphlow/pitchfork/service-rockie-go/internal/activity/repo"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/password"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/rockie"
	rockierepo "github.com/ovaphlow/pitchfork/service-rockie-go/internal/rockie/repo"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/session"
	sessionrepo "github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/repo"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/student"
	studentrepo "github.com/ovaphlow/pitchfork/service-rockie-go/internal/student/repo"
	"github.com/ovaphlow/pitchfork/service-rockie-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-rockie-go/pkg/utilities"
)

type stores struct {
	students   studentrepo.Repository
	rockies    rockierepo.Repository
	activities activityrepo.Repository
	tokens     sessionrepo.Repository
	ready      []func(ctx context.Context) error
	closers    []func() error
}

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		sugar.Fatalf("config: %v", err)
	}
	sugar.Infow("starting service-rockie-go",
		"stage", cfg.Stage,
		"store_backend", cfg.StoreBackend,
		"token_backend", cfg.TokenBackend,
		"remote_validator", cfg.ValidatorURL != "",
	)

	st, err := openStores(cfg, sugar)
	if err != nil {
		sugar.Fatalf("stores: %v", err)
	}
	defer func() {
		for _, c := range st.closers {
			_ = c()
		}
	}()

	hasher := password.BcryptHasher{Cost: cfg.BcryptCost}
	issuer := session.NewIssuer(st.students, st.tokens, hasher, cfg.TokenTTL, sugar)

	serviceAuth := session.NewServiceAuth(cfg.ValidatorSecret)
	var validator session.TokenValidator = session.NewValidator(st.tokens, st.students)
	if cfg.ValidatorURL != "" {
		remote, err := session.NewRemoteValidator(session.RemoteConfig(cfg.ValidatorURL))
		if err != nil {
			sugar.Fatalf("remote validator: %v", err)
		}
		validator = remote.WithServiceAuth(serviceAuth)
	}

	handler := router.RegisterRoutes(sugar, router.Deps{
		Students:   student.NewHandler(student.NewService(st.students, hasher, utilities.SnowflakeGenerator(cfg.SnowflakeNode)), sugar),
		Sessions:   session.NewHandler(issuer, validator, sugar).RequireServiceToken(serviceAuth),
		Rockies:    rockie.NewHandler(rockie.NewService(st.rockies), sugar),
		Activities: activity.NewHandler(activity.NewService(st.activities, utilities.NewKSUID), sugar),
		Gate:       session.NewGate(validator, sugar),
		Ready: func(ctx context.Context) error {
			for _, f := range st.ready {
				if err := f(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running", "addr", cfg.HTTPAddr)

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

// openStores connects the configured backends and makes sure the Postgres
// tables exist.
func openStores(cfg config.Config, sugar *zap.SugaredLogger) (*stores, error) {
	st := &stores{}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var db *sqlx.DB
	if cfg.NeedsDatabase() {
		var err error
		db, err = database.ConnectX(database.ConfigFromEnv())
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db.Close)
		st.ready = append(st.ready, db.PingContext)
	}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		students := studentrepo.NewPostgresRepo(db, cfg.Tables.Students)
		rockies := rockierepo.NewPostgresRepo(db, cfg.Tables.Rockies)
		if err := students.EnsureTable(ctx); err != nil {
			return nil, fmt.Errorf("ensure %s: %w", cfg.Tables.Students, err)
		}
		if err := rockies.EnsureTable(ctx); err != nil {
			return nil, fmt.Errorf("ensure %s: %w", cfg.Tables.Rockies, err)
		}
		activities := activityrepo.NewPostgresRepo(db, cfg.Tables.Activities)
		if err := activities.EnsureTable(ctx); err != nil {
			return nil, fmt.Errorf("ensure %s: %w", cfg.Tables.Activities, err)
		}
		st.students, st.rockies, st.activities = students, rockies, activities
	default:
		sugar.Warn("using in-memory student, rockie and activity stores; data is lost on restart")
		st.students, st.rockies, st.activities = studentrepo.NewMemoryRepo(), rockierepo.NewMemoryRepo(), activityrepo.NewMemoryRepo()
	}

	switch cfg.TokenBackend {
	case config.BackendPostgres:
		tokens := sessionrepo.NewPostgresRepo(db, cfg.Tables.AccessTokens)
		if err := tokens.EnsureTable(ctx); err != nil {
			return nil, fmt.Errorf("ensure %s: %w", cfg.Tables.AccessTokens, err)
		}
		st.tokens = tokens
	case config.BackendRedis:
		rdb, err := database.ConnectRedis(database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, rdb.Close)
		st.ready = append(st.ready, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		st.tokens = sessionrepo.NewRedisRepo(rdb, cfg.Tables.AccessTokens)
	default:
		st.tokens = sessionrepo.NewMemoryRepo()
	}
	return st, nil
}
