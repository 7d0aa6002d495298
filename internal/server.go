package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/multierr"

	"github.com/2beens/blogposts/internal/blogposts"
	"github.com/2beens/blogposts/internal/config"
	"github.com/2beens/blogposts/internal/middleware"
	"github.com/2beens/blogposts/internal/telemetry/metrics"
	"github.com/2beens/blogposts/internal/telemetry/tracing"
	"github.com/2beens/blogposts/pkg"
)

const shutdownMaxWait = 15 * time.Second

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	listener          net.Listener
	versionInfo       string

	config *config.Config
	repo   blogposts.Repo

	redisClient *redis.Client
	rateLimiter middleware.RequestRateLimiter

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "blog-posts-backend")
	if err != nil {
		return nil, err
	}

	repo, err := blogposts.OpenRepo(ctx, blogposts.OpenRepoParams{
		DatabaseURL:    params.Config.DatabaseURL,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		otelShutdown()
		return nil, fmt.Errorf("open blog posts repo: %w", err)
	}

	var extraCollectors []prometheus.Collector
	if psqlRepo, ok := repo.(*blogposts.PsqlRepo); ok {
		extraCollectors = append(extraCollectors, pgxpoolprometheus.NewCollector(
			psqlRepo.Pool(),
			map[string]string{"db_name": psqlRepo.Pool().Config().ConnConfig.Database},
		))
	}
	promRegistry := metrics.SetupPrometheus(extraCollectors...)
	metricsManager := metrics.NewManager("blogposts", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	s := &Server{
		config:      params.Config,
		repo:        repo,
		versionInfo: params.VersionInfo,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	if params.Config.WriteRateLimitPerMin > 0 {
		s.setupRateLimiter(ctx, params.RedisPassword)
	}

	return s, nil
}

// setupRateLimiter prefers the shared redis limiter, and falls back to the local one when redis is not configured.
func (s *Server) setupRateLimiter(ctx context.Context, redisPassword string) {
	if !s.config.RedisEnabled() {
		log.Debugln("redis not configured, using local rate limiter")
		s.rateLimiter = middleware.NewLocalRateLimiter()
		return
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(s.config.RedisHost, s.config.RedisPort),
		Password: redisPassword,
		DB:       0, // use default DB
	})
	rdb.AddHook(redisotel.NewTracingHook())

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	s.redisClient = rdb
	s.rateLimiter = redis_rate.NewLimiter(rdb)
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("blog-posts-router"))

	postsHandler := blogposts.NewHandler(s.repo, s.metricsManager)
	postsHandler.SetupRoutes(r)

	// all the rest - unhandled paths and methods
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteErrorResponse(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteErrorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.CorsAllowedOrigins))
	if s.rateLimiter != nil {
		r.Use(middleware.RateLimit(s.rateLimiter, "blog-posts", s.config.WriteRateLimitPerMin, s.metricsManager))
	}
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

// Serve starts listening and serving in the background. With port 0 a free port is picked, see Addr.
func (s *Server) Serve(ctx context.Context, host string, port int) error {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", ipAndPort)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", ipAndPort, err)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         listener.Addr().String(),
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	go func() {
		log.Infof(" > server listening on: [%s], version: [%s]", listener.Addr(), s.versionInfo)
		err := s.httpServer.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, serve: %s", err)
		}
	}()

	if s.config.PrometheusMetricsPort != "" {
		s.serveMetrics()
	}

	s.metricsManager.GaugeLifeSignal.Set(1)

	return nil
}

func (s *Server) serveMetrics() {
	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics service, listen and serve: %s", err)
		}
	}()
}

// Addr is the address the API server listens on, empty before Serve.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Repo() blogposts.Repo {
	return s.repo
}

func (s *Server) GracefulShutdown() error {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	ctx, timeoutCancel := context.WithTimeout(context.Background(), shutdownMaxWait)
	defer timeoutCancel()

	var errs error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
			errs = multierr.Append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
			errs = multierr.Append(errs, fmt.Errorf("shutdown metrics server: %w", err))
		}
		log.Warnln("metrics server shut down")
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
			errs = multierr.Append(errs, fmt.Errorf("close redis client: %w", err))
		}
	}

	if s.repo != nil {
		log.Debugln("closing blog posts repo ...")
		if err := s.repo.Close(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close repo: %w", err))
		}
		log.Debugln("blog posts repo closed")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	return errs
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed, http.StateHijacked:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
