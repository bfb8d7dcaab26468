package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookstore-identity/auth"
	"bookstore-identity/config"
	"bookstore-identity/controllers"
	"bookstore-identity/database"
	"bookstore-identity/interceptors"
	"bookstore-identity/registry"
	"bookstore-identity/repositories"
	"bookstore-identity/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// RequestLogger is a go-restful container filter that logs every request.
func RequestLogger(logger *zap.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		startTime := time.Now()

		chain.ProcessFilter(req, resp)

		logger.Info("Request",
			zap.String("client_ip", req.Request.RemoteAddr),
			zap.String("method", req.Request.Method),
			zap.Int("status_code", resp.StatusCode()),
			zap.Duration("latency", time.Since(startTime)),
			zap.String("user_agent", req.Request.UserAgent()),
			zap.String("path", req.Request.URL.Path),
		)
	}
}

// healthWebService exposes the /health route used by the Consul HTTP check.
func healthWebService() *restful.WebService {
	ws := new(restful.WebService)
	ws.Path("/health").Produces(restful.MIME_JSON)
	ws.Route(ws.GET("").To(func(req *restful.Request, resp *restful.Response) {
		_ = resp.WriteHeaderAndJson(http.StatusOK, map[string]string{"status": "ok"}, restful.MIME_JSON)
	}).
		Doc("Service health check").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Returns(http.StatusOK, "Service is healthy", nil))
	return ws
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "Bookstore Identity API",
			Description: "User registration, authentication and account management for the bookstore backend",
			Version:     "1.0.0",
		},
	}
}

func main() {
	// Initialize configs
	config.InitConfig()

	var logger *zap.Logger
	switch config.AppConfig.LogLevel {
	case "debug":
		logger, _ = zap.NewDevelopment()
	default:
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync() // Make sure the buffer is flushed before the program exits

	auth.SetSigningKey([]byte(config.AppConfig.JwtSecret))
	auth.SetTokenTTL(time.Duration(config.AppConfig.TokenTTLHours) * time.Hour)

	db := database.InitDB()
	userRepo := repositories.NewUserRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	userService := services.NewUserService(userRepo, roleRepo, config.AppConfig.InitialPassword)
	userController := controllers.NewUserController(userService)

	// --- HTTP (go-restful) ---
	container := restful.NewContainer()
	container.Filter(RequestLogger(logger))

	authWS := new(restful.WebService)
	userController.RegisterAuthRoutes(authWS)
	container.Add(authWS)

	userWS := new(restful.WebService)
	userController.RegisterUserRoutes(userWS)
	container.Add(userWS)

	container.Add(healthWebService())

	apiConfig := restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       "/apidocs.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}
	container.Add(restfulspec.NewOpenAPIService(apiConfig))

	httpAddr := fmt.Sprintf(":%d", config.AppConfig.HTTPPort)
	httpServer := &http.Server{Addr: httpAddr, Handler: container}
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- gRPC (health endpoint for registry probes) ---
	grpcAddr := fmt.Sprintf(":%d", config.AppConfig.GRPCPort)
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.ZapLoggingInterceptor(logger),
			interceptors.AuthInterceptor(),
		),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			logger.Fatal("Failed to listen for gRPC", zap.Error(err))
		}
		logger.Info("Starting gRPC server", zap.String("addr", grpcAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	// --- Consul registration (optional) ---
	serviceID := fmt.Sprintf("%s-%d", config.AppConfig.ServiceName, config.AppConfig.HTTPPort)
	var reg registry.ServiceRegistry
	if config.AppConfig.Consul.Enabled {
		var err error
		reg, err = registry.NewConsulRegistry(logger.Sugar())
		if err != nil {
			logger.Fatal("Failed to create service registry", zap.Error(err))
		}
		check := registry.CreateHTTPCheck(serviceID, "127.0.0.1", config.AppConfig.HTTPPort, "10s", "1s")
		if err := reg.Register(serviceID, config.AppConfig.ServiceName, "127.0.0.1", config.AppConfig.HTTPPort, []string{"identity"}, check); err != nil {
			logger.Fatal("Failed to register service", zap.Error(err))
		}
	}

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	if reg != nil {
		if err := reg.Deregister(serviceID); err != nil {
			logger.Warn("Failed to deregister service", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}
	grpcServer.GracefulStop()
}
