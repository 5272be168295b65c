package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"moviehub/internal/auth"
	"moviehub/internal/cache"
	"moviehub/internal/catalog"
	"moviehub/internal/chat"
	"moviehub/internal/events"
	"moviehub/internal/history"
	"moviehub/internal/library"
	"moviehub/internal/metrics"
	"moviehub/internal/movies"
	"moviehub/internal/notify"
	"moviehub/internal/omdb"
	"moviehub/internal/reviews"
	"moviehub/internal/search"
	"moviehub/pkg/database"
	"moviehub/pkg/utils"
)

func main() {
	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	metrics.Register(prometheus.DefaultRegisterer)

	serverCfg := utils.LoadServerConfig()
	upstreamCfg := utils.LoadUpstreamConfig()
	cacheCfg := utils.LoadCacheConfig()
	authCfg := utils.LoadAuthConfig()

	if upstreamCfg.APIKey == "" {
		log.Fatal("MOVIEHUB_OMDB_KEY is required (point MOVIEHUB_OMDB_URL at the mock-upstream for local work)")
	}

	retryCfg := omdb.DefaultRetryConfig()
	retryCfg.MaxAttempts = upstreamCfg.MaxRetries
	omdbClient, err := omdb.New(upstreamCfg.BaseURL, upstreamCfg.APIKey,
		omdb.WithHTTPClient(&http.Client{Timeout: upstreamCfg.Timeout}),
		omdb.WithRetry(retryCfg),
	)
	if err != nil {
		log.Fatalf("omdb client: %v", err)
	}

	catalogRepo := catalog.NewRepo(db)
	catalogSvc := catalog.NewService(catalogRepo)
	cacheSvc := cache.NewService(omdbClient, catalogRepo, cacheCfg.TTL)
	searchSvc := search.NewOrchestrator(cacheSvc, catalogSvc)

	// Event fan-out: one hub feeds the TCP line feed and /ws/events.
	hub := events.NewHub()
	tcpSrv := events.NewServer(serverCfg.EventsTCPAddr, hub)

	// UDP refresh announcements, fed by the cache service.
	registry := notify.NewRegistry()
	notifySrv := notify.NewServer(serverCfg.NotifyUDPAddr, registry, nil)
	cacheSvc.OnRefresh = notifySrv.AnnounceRefresh

	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)

	router := gin.Default()

	// Optional: avoid “trusted all proxies” warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	limiter := newRateLimiter(serverCfg.RateRPS, serverCfg.RateBurst)
	router.Use(metricsMiddleware(), limiter.middleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth
	auth.NewHandler(authRepo, tokenSvc).RegisterRoutes(router.Group("/api/auth"))

	chatHub := chat.NewHub(0)
	moviesHandler := movies.NewHandler(catalogSvc, searchSvc, hub)
	reviewsHandler := reviews.NewHandler(reviews.NewRepo(db), catalogSvc)

	// Public reads: a bearer token personalizes results, none is required.
	public := router.Group("/api")
	public.Use(auth.OptionalAuth(tokenSvc, authRepo))
	moviesHandler.RegisterPublicRoutes(public)
	reviewsHandler.RegisterPublicRoutes(public)
	public.GET("/chat/:movie_id/history", chat.HistoryHandler(chatHub))

	// Writes require a valid token.
	protected := router.Group("/api")
	protected.Use(auth.AuthMiddleware(tokenSvc, authRepo))
	moviesHandler.RegisterProtectedRoutes(protected)
	reviewsHandler.RegisterProtectedRoutes(protected)
	library.NewHandler(catalogSvc, hub).RegisterRoutes(protected)
	history.NewHandler(history.NewRepo(db), catalogSvc).RegisterRoutes(protected)

	protected.GET("/users/me", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"id":       claims.UserID,
			"username": claims.Username,
		})
	})

	ws := router.Group("/ws")
	ws.Use(auth.AuthMiddleware(tokenSvc, authRepo))
	ws.GET("/events", events.WSHandler(hub))
	ws.GET("/chat/:movie_id", chat.WSHandler(chatHub))

	httpSrv := &http.Server{
		Addr:    serverCfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := notifySrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP API server listening on %s", serverCfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}
	if err := notifySrv.Close(); err != nil {
		log.Printf("udp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}
