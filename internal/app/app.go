package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"stockpilot/internal/config"
	"stockpilot/internal/engine"
	"stockpilot/internal/logger"
	"stockpilot/internal/notifier"
	"stockpilot/internal/store"
	apihttp "stockpilot/internal/transport/http"
	"stockpilot/internal/watchlist"
)

// App 负责应用级编排：加载状态→初始化依赖→启动交易循环与监控服务。
type App struct {
	cfg        *config.Config
	loop       *engine.Engine
	httpSrv    *apihttp.Server
	dispatcher *notifier.Dispatcher
	watch      *watchlist.Registry
	store      *store.Store
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return build(context.Background(), cfg)
}

// Loop exposes the trading loop (for testing harnesses).
func (a *App) Loop() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.loop
}

// Run 启动交易循环与 HTTP 服务,阻塞直至 ctx 取消或内部致命错误。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.store.Close()
	defer a.watch.Close()

	group, ctx := errgroup.WithContext(ctx)

	a.dispatcher.Start(ctx)
	a.dispatcher.Post(notifier.StartupMessage(
		a.cfg.App.Env,
		a.loop.Status().Source,
		a.cfg.Trading.InitialCapital,
		a.watch.Symbols(),
	))

	group.Go(func() error {
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		return a.loop.Run(ctx)
	})

	return group.Wait()
}
