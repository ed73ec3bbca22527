package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"hrportfolio.dev/web/internal/contact"
	"hrportfolio.dev/web/internal/handlers"
	"hrportfolio.dev/web/internal/i18n"
	mw "hrportfolio.dev/web/internal/middleware"
	"hrportfolio.dev/web/internal/platform/config"
	"hrportfolio.dev/web/internal/platform/observability"
	"hrportfolio.dev/web/internal/theme"
	"hrportfolio.dev/web/public"
)

func main() {
	baseLogger, err := observability.NewLogger("portfolio-web")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	handler, err := newHandler(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build site", zap.Error(err))
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	errCh := make(chan error, 1)
	go func() {
		serverLogger.Info("portfolio listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received; draining requests")
	case err := <-errCh:
		logger.Fatal("http server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newHandler assembles the site from cfg: dictionaries, page shell, assets, accent palette
// and contact relay.
func newHandler(cfg config.Config, logger *zap.Logger) (http.Handler, error) {
	dict, err := loadDictionary(cfg.I18n.LocalesDir)
	if err != nil {
		return nil, err
	}
	for locale, keys := range dict.MissingKeys() {
		logger.Warn("locale is missing translations", zap.String("locale", string(locale)), zap.Int("keys", len(keys)))
	}

	static := public.Static()
	assets := public.Assets()
	if cfg.Site.PublicDir != "" {
		static = os.DirFS(cfg.Site.PublicDir)
		if assets, err = fs.Sub(static, "assets"); err != nil {
			return nil, fmt.Errorf("public dir assets: %w", err)
		}
	}
	index, err := fs.ReadFile(static, public.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("read page shell: %w", err)
	}

	opts := []handlers.Option{
		handlers.WithSite(handlers.Site{Name: cfg.Site.Name, BaseURL: cfg.Site.BaseURL, JobTitle: "Developer"}),
		handlers.WithEmail(cfg.Contact.EmailUser, cfg.Contact.EmailDomain),
		handlers.WithRelay(contact.NewRelay(cfg.Contact.Endpoint,
			contact.WithClient(&http.Client{Timeout: cfg.Contact.Timeout}),
			contact.WithLogger(logger.Named("contact")),
		)),
	}
	if cfg.Theme.AccentImage != "" {
		palette, err := theme.AccentFromFile(cfg.Theme.AccentImage)
		if err != nil {
			logger.Warn("accent image unusable; keeping stylesheet palette", zap.String("path", cfg.Theme.AccentImage), zap.Error(err))
		} else {
			logger.Info("accent palette derived", zap.String("brand", palette.Brand.String()), zap.String("brand2", palette.Brand2.String()))
			opts = append(opts, handlers.WithPalette(palette))
		}
	}

	h, err := handlers.New(index, dict, opts...)
	if err != nil {
		return nil, err
	}
	return h.NewRouter(
		handlers.WithMiddlewares(observability.Stack(logger)...),
		handlers.WithAssets(mw.AssetsWithCache(assets, "/assets")),
		handlers.WithFallbackLocale(i18n.Locale(cfg.I18n.DefaultLocale)),
		handlers.WithTimeout(cfg.Server.RequestTimeout),
	), nil
}

func loadDictionary(dir string) (*i18n.Dictionary, error) {
	if dir == "" {
		return i18n.LoadEmbedded()
	}
	dict, err := i18n.Load(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("load locales from %s: %w", dir, err)
	}
	return dict, nil
}

