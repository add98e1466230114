package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/credpolicy/internal/config"
	"github.com/jwalitptl/credpolicy/internal/dictionary"
	"github.com/jwalitptl/credpolicy/internal/handler"
	"github.com/jwalitptl/credpolicy/internal/handler/evaluate"
	"github.com/jwalitptl/credpolicy/internal/policy"
	"github.com/jwalitptl/credpolicy/internal/router"
	"github.com/jwalitptl/credpolicy/pkg/logger"
	"github.com/jwalitptl/credpolicy/pkg/metrics"
	"github.com/jwalitptl/credpolicy/pkg/security"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLog := logger.NewLogger(&logger.Config{
		Level:   logger.ParseLevel(cfg.Logging.Level),
		Console: cfg.Logging.Console,
	})
	m := metrics.NewMetrics("credpolicy", "policy")

	// An inconsistent policy must never become active
	polCfg, err := cfg.ToPolicy()
	if err != nil {
		log.Fatal().Err(err).Msg("refusing to activate policy configuration")
	}
	store := policy.NewStore(polCfg)

	dict, fileDict, err := buildDictionary(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load weak-secret corpus")
	}

	engine := policy.NewEngine(store, security.NewVerifier(), dict, appLog.WithComponent("policy"))

	reload := func() error {
		newCfg, err := config.Load()
		if err != nil {
			m.ConfigReloads.WithLabelValues("failure").Inc()
			return err
		}
		pol, err := newCfg.ToPolicy()
		if err != nil {
			m.ConfigReloads.WithLabelValues("failure").Inc()
			return err
		}
		if err := store.Swap(pol); err != nil {
			m.ConfigReloads.WithLabelValues("failure").Inc()
			return err
		}
		if fileDict != nil {
			if err := fileDict.Reload(); err != nil {
				appLog.Warn("corpus reload failed, keeping previous corpus", "error", err.Error())
			}
		}
		m.ConfigReloads.WithLabelValues("success").Inc()
		appLog.Info("policy configuration reloaded",
			"min_length", pol.MinLength,
			"min_digits", pol.MinDigits,
			"min_special", pol.MinSpecial,
			"min_upper", pol.MinUpper,
			"min_lower", pol.MinLower,
		)
		return nil
	}

	// Initialize handlers
	h := handler.NewHandler()
	evaluateHandler := evaluate.NewHandler(engine, m, cfg.Dictionary.FailMode, reload, appLog.WithComponent("evaluate"))

	// Setup router
	r := router.NewRouter(evaluateHandler, h, appLog.WithComponent("http"))
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	appLog.Info("policyd listening", "port", cfg.Server.Port)

	// SIGHUP reloads the policy; SIGINT/SIGTERM shut down
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	for sig := range sigs {
		if sig == syscall.SIGHUP {
			if err := reload(); err != nil {
				appLog.Error(err, "reload failed, previous configuration stays active")
			}
			continue
		}
		break
	}
	appLog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLog.Info("server exited properly")
}

// buildDictionary returns the weak-secret guard selected by the
// configuration: nil when disabled, a file-backed corpus when a path is
// set, the embedded corpus otherwise. The file guard is returned
// separately so reloads can refresh it.
func buildDictionary(cfg *config.Config) (policy.DictionaryGuard, *dictionary.File, error) {
	if !cfg.Dictionary.Enabled {
		return nil, nil, nil
	}
	if cfg.Dictionary.Path != "" {
		f, err := dictionary.NewFile(cfg.Dictionary.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
	e, err := dictionary.NewEmbedded()
	if err != nil {
		return nil, nil, err
	}
	return e, nil, nil
}
