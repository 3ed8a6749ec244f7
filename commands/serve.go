package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pulse/database"
	"pulse/handlers"
	"pulse/media"
	"pulse/middleware"
	"pulse/push"
	"pulse/routes"
	"pulse/websocket"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
	limiterSweep    = time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Release() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	log.WithField("mode", gin.Mode()).Info("starting pulse")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := database.Connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	hub := websocket.NewManager(log)
	go hub.Run(ctx)

	notifier := push.NewNotifier(store, push.Keys{
		Public:  cfg.VAPIDPublicKey,
		Private: cfg.VAPIDPrivateKey,
		Subject: cfg.VAPIDSubject,
	}, log)
	defer notifier.Wait()
	if !notifier.Enabled() {
		log.Warn("VAPID keys not set, push notifications disabled")
	}

	h := &handlers.Handler{
		Store:  store,
		Log:    log,
		Config: cfg,
		Events: hub,
		Push:   notifier,
		Google: handlers.NewGoogleProvider(cfg),
	}
	if cfg.CloudinaryURL != "" {
		uploader, err := media.NewCloudinary(cfg.CloudinaryURL)
		if err != nil {
			return err
		}
		h.Uploader = uploader
	} else {
		log.Warn("CLOUDINARY_URL not set, image uploads disabled")
	}

	limiter := middleware.NewIPRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	go sweep(ctx, limiter)

	router := routes.SetupRouter(routes.Deps{
		Handler: h,
		Hub:     hub,
		Limiter: limiter,
		Log:     log,
	})

	server := newHTTPServer(":"+cfg.Port, router)

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
		return err
	}
	log.Info("server stopped")
	return nil
}

// newHTTPServer sizes the read and write deadlines so an upload can use its
// whole handler timeout.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       handlers.UploadTimeout,
		WriteTimeout:      handlers.UploadTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func sweep(ctx context.Context, limiter *middleware.IPRateLimiter) {
	ticker := time.NewTicker(limiterSweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}
