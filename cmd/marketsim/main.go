// Command marketsim runs the trading-simulation server: the
// ControlAPI, the push channel, and every background loop (per-session
// ticking, idle reaping, cold-storage export) wired together the way
// cmd/feedsim wired the ITCH feed's symbol runners, persister and
// archiver around a single *http.Server.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/marketsim/core/internal/api"
	"github.com/marketsim/core/internal/archive"
	"github.com/marketsim/core/internal/auth"
	"github.com/marketsim/core/internal/broadcast"
	"github.com/marketsim/core/internal/catalog"
	"github.com/marketsim/core/internal/chat"
	"github.com/marketsim/core/internal/clock"
	"github.com/marketsim/core/internal/config"
	"github.com/marketsim/core/internal/priceengine"
	"github.com/marketsim/core/internal/session"
	"github.com/marketsim/core/internal/savestore"
	"github.com/marketsim/core/internal/users"
)

func main() {
	cfg := config.Load()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("marketsim starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	instruments := catalog.AllInstruments()
	log.Printf("loaded %d instruments", len(instruments))

	seedRNG := func() *priceengine.RNG { return priceengine.NewRNG(cfg.Seed) }

	registry := session.NewRegistry()
	hub := broadcast.NewHub()
	gate := auth.NewGate(cfg.JWTSecret)

	var (
		saves      savestore.Store
		userStore  users.Store
		mongoStore *savestore.MongoStore
	)

	if cfg.MongoURI != "" {
		saveStore, err := savestore.NewMongoStore(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("savestore connection failed: %v", err)
		}
		if err := saveStore.Migrate(ctx); err != nil {
			log.Fatalf("savestore migration failed: %v", err)
		}
		saves = saveStore
		mongoStore = saveStore

		userMongo := users.NewMongoStore(saveStore.Database())
		if err := userMongo.Migrate(ctx); err != nil {
			log.Fatalf("user store migration failed: %v", err)
		}
		userStore = userMongo
	} else {
		log.Println("MONGO_URI not set, running with in-process reference stores")
		saves = savestore.NewMemStore()
		userStore = users.NewMemStore()
	}

	if err := users.SeedAccount(ctx, userStore, cfg.AdminIdentifier, cfg.AdminPassword, auth.RoleAdmin); err != nil {
		log.Printf("warning: admin seed failed: %v", err)
	}
	if err := users.SeedAccount(ctx, userStore, cfg.TesterIdentifier, cfg.TesterPassword, auth.RoleTester); err != nil {
		log.Printf("warning: tester seed failed: %v", err)
	}

	displayName := func(userID string) (string, error) {
		u, err := userStore.FindByID(ctx, userID)
		if err != nil {
			return "", err
		}
		return u.DisplayName, nil
	}
	room := chat.NewRoom(hub, displayName)

	commissionsOn := true
	apiServer := api.NewServer(registry, saves, userStore, room, gate, instruments, commissionsOn, seedRNG)

	reaper := session.NewReaper(registry, cfg.SessionIdleTimeout)
	go reaper.Run(ctx, cfg.ReaperInterval)

	if mongoStore != nil {
		defer mongoStore.Close(context.Background())

		if cfg.S3Bucket != "" {
			// Cold-storage export writes gzipped NDJSON to local disk
			// rather than actually uploading to S3 — see DESIGN.md for
			// why the aws-sdk-go-v2 surface stays unwired. cfg.S3Bucket
			// non-empty is reused as the opt-in flag the teacher's
			// cfg.ArchiveDir != "" check played.
			archiveDir := fmt.Sprintf("./archive/%s", cfg.S3Prefix)
			archiver := archive.New(mongoStore.Database(), archiveDir, 5, cfg.ArchiveInterval, cfg.ArchiveAfterDays)
			go archiver.Run(ctx)
		}
	}

	pool := newSchedulerPool()
	go pool.reconcileLoop(ctx, registry, hub)

	mux := http.NewServeMux()
	apiServer.Register(mux)
	mux.HandleFunc("/stream", broadcast.Handler(hub, gate))

	srv := &http.Server{Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		pool.stopAll()
		srv.Shutdown(shutdownCtx)
	}()

	ln, addr, err := bindFirstAvailable(cfg.Host, cfg.BindPorts)
	if err != nil {
		log.Printf("failed to bind any of %v: %v", cfg.BindPorts, err)
		os.Exit(2)
	}
	log.Printf("listening on http://%s", addr)
	log.Printf("push channel: ws://%s/stream", addr)

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}

	log.Println("marketsim stopped")
}

// bindFirstAvailable tries each candidate port in order, per spec §6's
// bind-port fallback, returning the first that succeeds.
func bindFirstAvailable(host string, ports []int) (net.Listener, string, error) {
	var lastErr error
	for _, port := range ports {
		addr := fmt.Sprintf("%s:%d", host, port)
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, addr, nil
		}
		lastErr = err
		log.Printf("bind %s failed: %v, trying next candidate", addr, err)
	}
	return nil, "", lastErr
}

// schedulerPool keeps exactly one clock.Scheduler running per active
// Session, reconciling against the registry's snapshot the way the
// teacher's symbol runners are started once per symbol at boot — here
// sessions come and go at runtime, so a periodic reconcile pass starts
// schedulers for newly-registered sessions and stops them for
// unregistered ones.
type schedulerPool struct {
	mu    sync.Mutex
	items map[string]*clock.Scheduler
	done  chan struct{}
}

func newSchedulerPool() *schedulerPool {
	return &schedulerPool{items: make(map[string]*clock.Scheduler), done: make(chan struct{})}
}

func (p *schedulerPool) reconcileLoop(ctx context.Context, registry *session.Registry, hub *broadcast.Hub) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.reconcile(registry, hub)
		}
	}
}

func (p *schedulerPool) reconcile(registry *session.Registry, hub *broadcast.Hub) {
	live := registry.Snapshot()
	liveIDs := make(map[string]struct{}, len(live))

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, sess := range live {
		liveIDs[sess.ID] = struct{}{}
		if _, ok := p.items[sess.ID]; ok {
			continue
		}
		adapter := &tickAdapter{session: sess, hub: hub}
		sched := clock.NewScheduler(sess.Clock, adapter)
		p.items[sess.ID] = sched
		go sched.Run(p.done)
	}

	for id, sched := range p.items {
		if _, ok := liveIDs[id]; !ok {
			sched.Stop()
			delete(p.items, id)
		}
	}
}

func (p *schedulerPool) stopAll() {
	close(p.done)
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, sched := range p.items {
		sched.Stop()
		delete(p.items, id)
	}
}

// tickAdapter satisfies clock.Ticker (a bare Tick()) over a Session,
// whose own Tick returns the deltas the scheduler needs discarded-or-
// published rather than returned — Go requires an exact method
// signature for interface satisfaction, so this adapter is the seam
// between the two.
type tickAdapter struct {
	session *session.Session
	hub     *broadcast.Hub
}

func (a *tickAdapter) Tick() {
	deltas := a.session.Tick()
	for _, d := range deltas {
		a.hub.PublishMarketDelta(d.Symbol, d.OldPrice, d.NewPrice)
	}
}
