package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/Domenick1991/travelbooking/api"
	"github.com/Domenick1991/travelbooking/config"
	healthapi "github.com/Domenick1991/travelbooking/internal/api/health_service_api"
	"github.com/Domenick1991/travelbooking/internal/service/booking"
)

const shutdownTimeout = 5 * time.Second

type Servers struct {
	grpcServer *grpc.Server
	httpServer *http.Server
	health     *healthapi.Server
}

// Run starts the gRPC health server and the HTTP API and blocks until ctx is canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, bookingSvc booking.BookingUseCase, log *zap.Logger) error {
	s := newServers(cfg, bookingSvc, log)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("grpc health server listening", zap.String("address", lis.Addr().String()))
		return s.grpcServer.Serve(lis)
	})
	g.Go(func() error {
		log.Info("http server listening", zap.String("address", cfg.HTTP.Address))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return s.health.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func newServers(cfg *config.Config, bookingSvc booking.BookingUseCase, log *zap.Logger) *Servers {
	grpcSrv := grpc.NewServer()
	healthSrv := healthapi.NewServer(bookingSvc, 0, log)
	healthSrv.Register(grpcSrv)

	router := api.NewRouter(bookingSvc, log)
	mountDocs(router, cfg.HTTP.SwaggerDir)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout(),
		ReadTimeout:       cfg.HTTP.ReadTimeout(),
		WriteTimeout:      cfg.HTTP.WriteTimeout(),
	}

	return &Servers{
		grpcServer: grpcSrv,
		httpServer: httpSrv,
		health:     healthSrv,
	}
}

func mountDocs(router *gin.Engine, swaggerDir string) {
	if swaggerDir == "" {
		return
	}
	router.Static("/swagger", swaggerDir)
	router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(
		httpSwagger.URL("/swagger/bookings.swagger.json"),
	)))
}
