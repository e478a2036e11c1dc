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

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"caption-service/internal/adapters/primary/http/handlers"
	"caption-service/internal/adapters/primary/http/middleware"
	"caption-service/internal/adapters/primary/watch"
	"caption-service/internal/bootstrap"
	"caption-service/internal/config"
	"caption-service/internal/core/services"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var (
		modelDir string
		watchDir bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the inference container (GET /ping, POST /invocations)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelDir == "" {
				modelDir = cfg.Serve.ModelDir
			}
			if !cmd.Flags().Changed("watch") {
				watchDir = cfg.Serve.Watch
			}

			inferenceSvc := services.NewInferenceService(nil)
			handle := services.NewModelHandle(inferenceSvc, modelDir)
			if err := handle.Load(); err != nil {
				// /ping reports unhealthy until a graph shows up
				log.WithError(err).Warn("no model loaded at startup")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if watchDir {
				go func() {
					if err := watch.NewReloader(handle, watch.DefaultSettle).Run(ctx); err != nil {
						log.WithError(err).Error("model watcher stopped")
					}
				}()
			}

			router := newRouter()
			h := handlers.New(inferenceSvc, handle, nil, nil)
			h.RegisterServingRoutes(router)
			handlers.RegisterMetrics(router)

			return runServer(cfg.Server, router)
		},
	}
	cmd.Flags().StringVar(&modelDir, "model-dir", "", "directory holding model_traced.bin (defaults SERVE_MODEL_DIR)")
	cmd.Flags().BoolVar(&watchDir, "watch", false, "reload the model when model_traced.bin changes (defaults SERVE_WATCH)")
	return cmd
}

func newControlCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "control",
		Short: "Run the control API for deployments and pipeline executions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deploySvc, closeLedger, err := bootstrap.DeployService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeLedger()

			// the control API still serves deployments without a pipeline
			var pipelineSvc *services.PipelineService
			if cfg.Pipeline.Name != "" {
				pipelineSvc, err = bootstrap.PipelineService(cmd.Context(), cfg)
				if err != nil {
					return err
				}
			} else {
				log.Info("PIPELINE_NAME not set, pipeline routes disabled")
			}

			router := newRouter()
			h := handlers.New(nil, nil, deploySvc, pipelineSvc)
			h.RegisterRoutes(router.Group("/api/v1"))
			handlers.RegisterMetrics(router)
			router.GET("/healthz", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})

			return runServer(cfg.Server, router)
		},
	}
}

func newRouter() *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), middleware.Metrics(), gin.Recovery())
	return router
}

// runServer serves until SIGINT or SIGTERM, then drains connections.
func runServer(cfg config.ServerConfig, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}
	log.Info("shutting down server...")

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
