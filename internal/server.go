package internal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/jotter/internal/auth"
	"github.com/2beens/jotter/internal/config"
	"github.com/2beens/jotter/internal/middleware"
	"github.com/2beens/jotter/internal/notes"
	"github.com/2beens/jotter/internal/store"
	"github.com/2beens/jotter/internal/telemetry/metrics"
	"github.com/2beens/jotter/internal/web"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config      *config.Config
	redisClient *redis.Client
	renderer    *web.Renderer

	sessionManager *auth.SessionManager
	accountService *auth.Service
	notesService   *notes.Service

	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
}

type NewServerParams struct {
	Config        *config.Config
	RedisPassword string
}

func NewServer(ctx context.Context, params NewServerParams) (*Server, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		PoolSize: params.Config.RedisPoolSize,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector())
	metricsManager := metrics.NewManager("jotter", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}

	kvStore := store.New(rdb)
	sessionManager := auth.NewSessionManager(auth.SessionTTL, kvStore, metricsManager)
	accountService := auth.NewService(kvStore, sessionManager)
	notesService := notes.NewService(kvStore)

	return &Server{
		config:         params.Config,
		redisClient:    rdb,
		renderer:       renderer,
		sessionManager: sessionManager,
		accountService: accountService,
		notesService:   notesService,
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()

	notesHandler := notes.NewHandler(
		s.notesService,
		s.sessionManager,
		s.renderer,
		s.metricsManager,
	)
	notesHandler.SetupRoutes(r)

	// rate limit login and signup to slow down credential guessing
	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	allowedPerMin := s.config.LoginRateLimitAllowedPerMin
	if allowedPerMin <= 0 {
		allowedPerMin = 15
	}
	rateLimit := middleware.RateLimit(reqRateLimiter, "login", allowedPerMin, s.metricsManager)

	authHandler := auth.NewHandler(auth.NewHandlerParams{
		Service:       s.accountService,
		Sessions:      s.sessionManager,
		Renderer:      s.renderer,
		NoteCounter:   s.notesService,
		Metrics:       s.metricsManager,
		SignupEnabled: s.config.SignupEnabled,
		SecureCookies: s.config.SecureCookies,
	})
	authHandler.SetupRoutes(r, rateLimit)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	var shutdownErr error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		shutdownErr = multierr.Append(shutdownErr, err)
	}
	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		shutdownErr = multierr.Append(shutdownErr, err)
	}
	if err := s.redisClient.Close(); err != nil {
		shutdownErr = multierr.Append(shutdownErr, err)
	}
	if shutdownErr != nil {
		log.Errorf(" >>> failed to gracefully shut down: %s", shutdownErr)
		return
	}
	log.Warnln("server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
