// The bridge connects to the matching engine's binary feed, reconstructs the
// aggregated order book, and broadcasts rate-limited snapshots to websocket
// subscribers. It also serves the dashboard page and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"

	"lob-bridge-go/book"
	"lob-bridge-go/config"
	"lob-bridge-go/feed"
	"lob-bridge-go/hub"
	"lob-bridge-go/infrastructure/logger"
	"lob-bridge-go/metrics"
)

func main() {
	cfgPath := flag.String("config", "configs/bridge.yaml", "config file path")
	engineAddr := flag.String("engine", "", "override engine address")
	wsAddr := flag.String("wsAddr", "", "override websocket listen address")
	httpAddr := flag.String("httpAddr", "", "override dashboard listen address")
	metricsAddr := flag.String("metricsAddr", "", "override metrics listen address")
	watch := flag.Bool("watch", true, "reload runtime-tunable config on file change")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		// a missing file is fine for local runs; flags and defaults apply
		cfg = config.Default()
		log.Printf("config %s not loaded (%v), using defaults", *cfgPath, err)
	}
	if *engineAddr != "" {
		cfg.Engine.Addr = *engineAddr
	}
	if *wsAddr != "" {
		cfg.Server.WSAddr = *wsAddr
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Close()

	mc := metrics.New(prometheus.DefaultRegisterer)
	metrics.Serve(cfg.Server.MetricsAddr, lg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bk := book.New(cfg.Broadcast.Depth)
	link := feed.New(cfg.Engine.Addr, bk,
		cfg.Engine.BackoffMin(), cfg.Engine.BackoffMax(), cfg.Engine.BackoffFactor, lg, mc)
	h := hub.New(bk.Snapshot, cfg.Broadcast.Interval(), cfg.Broadcast.WriteTimeout(), lg, mc)

	// Failing to bind a listening endpoint is the one fatal startup error.
	wsServer := listenAndServe(cfg.Server.WSAddr, http.HandlerFunc(h.ServeWS), lg)
	var httpServer *http.Server
	if cfg.Server.HTTPAddr != "" {
		httpServer = listenAndServe(cfg.Server.HTTPAddr, hub.DashboardHandler(), lg)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		link.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		h.Run(ctx)
	}()
	go statsReporter(ctx, bk, h, lg)

	if *watch {
		go func() {
			watcher := config.Watcher{Path: *cfgPath}
			err := watcher.Start(ctx, func(next config.Config) {
				h.SetInterval(next.Broadcast.Interval())
				if err := lg.SetLevel(next.Log.Level); err == nil {
					lg.Event("config_reloaded", map[string]interface{}{
						"fps":   next.Broadcast.FPS,
						"level": next.Log.Level,
					})
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				lg.LogError(err, map[string]interface{}{"component": "config_watch"})
			}
		}()
	}

	daemon.SdNotify(false, daemon.SdNotifyReady)
	lg.Event("bridge_ready", map[string]interface{}{
		"engine": cfg.Engine.Addr,
		"ws":     cfg.Server.WSAddr,
		"http":   cfg.Server.HTTPAddr,
		"fps":    cfg.Broadcast.FPS,
	})

	<-ctx.Done()
	daemon.SdNotify(false, daemon.SdNotifyStopping)
	lg.Event("bridge_stopping", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsServer.Shutdown(shutdownCtx)
	if httpServer != nil {
		httpServer.Shutdown(shutdownCtx)
	}
	wg.Wait()
	lg.Event("bridge_stopped", nil)
}

// listenAndServe binds addr now (fatal on failure) and serves in the
// background.
func listenAndServe(addr string, handler http.Handler, lg *logger.Logger) *http.Server {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("bind %s: %v", addr, err)
	}
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.LogError(err, map[string]interface{}{"addr": addr})
		}
	}()
	return srv
}

// statsReporter logs throughput every 10 seconds, mirroring the engine-side
// rate the dashboard shows.
func statsReporter(ctx context.Context, bk *book.Book, h *hub.Hub, lg *logger.Logger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count := bk.MessagesProcessed()
			snap := bk.Snapshot()
			lg.Event("stats", map[string]interface{}{
				"messages":    count,
				"rate":        float64(count-last) / 10,
				"trades":      snap.Stats.Trades,
				"orders":      snap.Stats.Orders,
				"subscribers": h.SubscriberCount(),
			})
			last = count
		}
	}
}
