package app

import (
	"context"
	"fmt"
	"time"

	"stockpilot/internal/config"
	"stockpilot/internal/engine"
	"stockpilot/internal/gateway/baomoi"
	"stockpilot/internal/gateway/simfeed"
	"stockpilot/internal/ledger"
	"stockpilot/internal/logger"
	"stockpilot/internal/market"
	"stockpilot/internal/notifier"
	"stockpilot/internal/pkg/circuit"
	"stockpilot/internal/risk"
	"stockpilot/internal/signal"
	"stockpilot/internal/store"
	apihttp "stockpilot/internal/transport/http"
	"stockpilot/internal/watchlist"
)

const feedBreakerThreshold = 3

// build assembles every runtime component from the configuration and
// the persisted state.
func build(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := store.NewStore(cfg.App.StateDB)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	restored, err := st.Load(ctx)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load persisted state: %w", err)
	}

	governor := risk.NewGovernor(cfg.Risk)
	governor.Restore(restored.Risk)

	book := ledger.New(cfg.Trading.InitialCapital, ledger.NewSimulatedExecution(), governor)
	if restored.Portfolio != nil {
		book.Restore(restored.Portfolio)
		logger.Infof("portfolio restored: cash %.0f, %d open positions",
			restored.Portfolio.Cash, len(restored.Portfolio.Positions))
	}
	if governor.Tripped() {
		logger.Warnf("circuit breaker restored in TRIPPED state: %s", governor.State().TripReason)
	}

	history := market.NewHistory(cfg.Market.HistoryDepth)
	for sym, snaps := range restored.History {
		history.Restore(sym, snaps)
	}

	source, breaker, err := buildMarketSource(cfg.Market)
	if err != nil {
		st.Close()
		return nil, err
	}

	watch, err := buildWatchlist(cfg.Watchlist)
	if err != nil {
		st.Close()
		return nil, err
	}

	dispatcher := buildDispatcher(cfg.Notify)
	governor.SetOnTrip(func(reason string) {
		dispatcher.Post(notifier.BreakerMessage(reason))
	})

	evaluator := signal.NewEvaluator(
		cfg.Trading.BuyThreshold,
		cfg.Trading.SellThreshold,
		cfg.Risk.StopLossPct,
		cfg.Risk.TakeProfitPct,
	)

	loop, err := engine.NewEngine(*cfg, engine.Deps{
		Source:    source,
		Breaker:   breaker,
		History:   history,
		Evaluator: evaluator,
		Book:      book,
		Governor:  governor,
		Store:     st,
		Notify:    dispatcher,
		Watch:     watch,
	})
	if err != nil {
		watch.Close()
		st.Close()
		return nil, fmt.Errorf("build trading loop: %w", err)
	}

	httpSrv, err := apihttp.NewServer(apihttp.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		Loop:    loop,
		Journal: st,
	})
	if err != nil {
		watch.Close()
		st.Close()
		return nil, fmt.Errorf("build http server: %w", err)
	}

	return &App{
		cfg:        cfg,
		loop:       loop,
		httpSrv:    httpSrv,
		dispatcher: dispatcher,
		watch:      watch,
		store:      st,
	}, nil
}

func buildMarketSource(cfg config.MarketConfig) (market.Source, *circuit.Breaker, error) {
	var source market.Source
	switch cfg.Source {
	case "baomoi":
		source = baomoi.NewSource(baomoi.Config{
			RESTBaseURL: cfg.RESTBaseURL,
			APIKey:      cfg.APIKey,
			HTTPTimeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		})
	case "sim":
		source = simfeed.NewSource()
	default:
		return nil, nil, fmt.Errorf("unknown market source %q", cfg.Source)
	}
	breaker := circuit.NewBreaker(source.Name(), feedBreakerThreshold, time.Minute)
	return source, breaker, nil
}

func buildWatchlist(cfg config.WatchlistConfig) (*watchlist.Registry, error) {
	if cfg.Path == "" {
		if len(cfg.Symbols) == 0 {
			return nil, fmt.Errorf("watchlist needs a file path or inline symbols")
		}
		return watchlist.NewStatic(cfg.Symbols), nil
	}
	reg, err := watchlist.NewRegistry(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	if !cfg.HotReload {
		reg.Close()
	}
	return reg, nil
}

func buildDispatcher(cfg config.NotifyConfig) *notifier.Dispatcher {
	if !cfg.Telegram.Enabled {
		return notifier.NewDispatcher(notifier.Noop{}, 0)
	}
	return notifier.NewDispatcher(notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID), 0)
}
