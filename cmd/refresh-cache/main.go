package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"

	"moviehub/internal/cache"
	"moviehub/internal/catalog"
	"moviehub/internal/notify"
	"moviehub/internal/omdb"
	"moviehub/pkg/database"
	"moviehub/pkg/utils"
)

// Walks imdb-sourced movies whose cached copy has outlived the TTL and
// re-fetches each from the upstream, a bounded number at a time. One
// pass by default; -loop keeps it running as a warm daemon.

func main() {
	var (
		workers    = flag.Int("workers", 4, "concurrent refreshes")
		limit      = flag.Int("limit", 100, "max movies per pass")
		loop       = flag.Bool("loop", false, "keep refreshing on an interval")
		interval   = flag.Duration("interval", 15*time.Minute, "pause between passes in loop mode")
		notifyAddr = flag.String("notify", "", "serve refresh announcements on this UDP address")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	upstreamCfg := utils.LoadUpstreamConfig()
	cacheCfg := utils.LoadCacheConfig()

	if upstreamCfg.APIKey == "" {
		log.Fatal("MOVIEHUB_OMDB_KEY is required")
	}

	retryCfg := omdb.DefaultRetryConfig()
	retryCfg.MaxAttempts = upstreamCfg.MaxRetries
	client, err := omdb.New(upstreamCfg.BaseURL, upstreamCfg.APIKey,
		omdb.WithHTTPClient(&http.Client{Timeout: upstreamCfg.Timeout}),
		omdb.WithRetry(retryCfg),
	)
	if err != nil {
		log.Fatalf("omdb client: %v", err)
	}

	repo := catalog.NewRepo(db)
	svc := cache.NewService(client, repo, cacheCfg.TTL)

	if *notifyAddr != "" {
		notifySrv := notify.NewServer(*notifyAddr, notify.NewRegistry(), nil)
		svc.OnRefresh = notifySrv.AnnounceRefresh
		go func() {
			if err := notifySrv.Run(); err != nil {
				log.Printf("[refresh] notify server: %v", err)
			}
		}()
		defer notifySrv.Close()
	}

	for {
		refreshed, checked, err := refreshPass(ctx, repo, svc, cacheCfg.TTL, *limit, *workers)
		if err != nil {
			log.Fatalf("refresh pass failed: %v", err)
		}
		log.Printf("✅ refreshed %d of %d stale movies", refreshed, checked)

		if !*loop {
			return
		}
		select {
		case <-ctx.Done():
			log.Println("stopping")
			return
		case <-time.After(*interval):
		}
	}
}

func refreshPass(ctx context.Context, repo *catalog.Repo, svc *cache.Service, ttl time.Duration, limit, workers int) (int, int, error) {
	stale, err := repo.ListStaleIMDb(ctx, ttl, limit)
	if err != nil {
		return 0, 0, err
	}
	if len(stale) == 0 {
		return 0, 0, nil
	}

	sem := semaphore.NewWeighted(int64(workers))
	var refreshed atomic.Int64

	for i := range stale {
		if err := sem.Acquire(ctx, 1); err != nil {
			break // shutting down
		}
		go func(imdbID string) {
			defer sem.Release(1)
			m, err := svc.GetOrRefresh(ctx, imdbID)
			if err != nil {
				log.Printf("[refresh] %s: %v", imdbID, err)
				return
			}
			if m != nil {
				refreshed.Add(1)
			}
		}(stale[i].IMDbID)
	}

	// drain: all slots reacquired means every worker finished
	if err := sem.Acquire(context.Background(), int64(workers)); err != nil {
		return int(refreshed.Load()), len(stale), err
	}
	sem.Release(int64(workers))

	return int(refreshed.Load()), len(stale), nil
}
