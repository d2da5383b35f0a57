// api/cli/serve.go
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/consentgate/api/controller"
	"github.com/dev-mohitbeniwal/consentgate/api/db"
	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
	"github.com/dev-mohitbeniwal/consentgate/api/middleware"
	"github.com/dev-mohitbeniwal/consentgate/api/pdp/policy"
	"github.com/dev-mohitbeniwal/consentgate/api/router"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the access decision HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer a.shutdown(shutdownTimeout)

		a.eventBus.Start(ctx)

		if cfg.PDP.PolicyFile != "" && cfg.PDP.WatchPolicy {
			watcher, err := policy.NewWatcher(cfg.PDP.PolicyFile, func(t *policy.Tables) {
				if err := a.engine.SetPolicyTables(context.WithoutCancel(ctx), t); err != nil {
					logger.Error("Failed to clear decision cache after policy reload", zap.Error(err))
				}
			})
			if err != nil {
				return err
			}
			go func() {
				if err := watcher.Run(ctx); err != nil {
					logger.Error("Policy watcher stopped", zap.Error(err))
				}
			}()
		}

		gin.SetMode(gin.ReleaseMode)
		keys := middleware.NewCognitoKeySource(cfg.Auth.Cognito.AWSRegion, cfg.Auth.Cognito.UserPoolID)
		handler := router.SetupRouter(controller.InitializeControllers(a.services), router.Options{
			Limiter:           db.RateLimit,
			RateLimitRequests: cfg.Server.RateLimit.Requests,
			RateLimitDuration: cfg.Server.RateLimit.Window,
			AdminAuth:         middleware.GroupAuthMiddleware(keys, cfg.Auth.AdminGroups),
		})

		server := &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			logger.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
		case <-ctx.Done():
		}
		logger.Info("Shutting down server...")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(sctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		logger.Info("Server exiting")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
