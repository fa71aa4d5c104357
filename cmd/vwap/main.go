// Command vwap scans a NASDAQ TotalView-ITCH 5.0 tape and reports the
// volume-weighted average price per instrument, with snapshots at every
// hour boundary and at market close.
//
// Usage:
//
//	vwap -file 01302019.NASDAQ_ITCH50.bin        # scan a local tape
//	vwap -url https://host/path/tape.gz          # download, unpack, scan
//	vwap -mongo-uri mongodb://localhost/itchvwap # persist snapshots
//	vwap -port 8100                              # live WebSocket + REST surface
//	vwap -retain-orders                          # legacy no-cleanup tracker mode
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/ndrandal/itch-vwap/internal/api"
	"github.com/ndrandal/itch-vwap/internal/config"
	"github.com/ndrandal/itch-vwap/internal/engine"
	"github.com/ndrandal/itch-vwap/internal/fetch"
	"github.com/ndrandal/itch-vwap/internal/itch"
	"github.com/ndrandal/itch-vwap/internal/persist"
	"github.com/ndrandal/itch-vwap/internal/session"
	"github.com/ndrandal/itch-vwap/internal/vwap"
)

func main() {
	cfg := config.Load()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("itch-vwap starting")

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, finishing up...", sig)
		cancel()
	}()

	// Resolve the tape
	path := cfg.File
	if path == "" {
		if cfg.URL == "" {
			log.Fatal("either -file or -url is required")
		}
		var err error
		path, err = fetch.Fetch(ctx, cfg.URL, cfg.CacheDir)
		if err != nil {
			log.Fatalf("fetch tape: %v", err)
		}
	}

	tape, err := fetch.Open(path)
	if err != nil {
		log.Fatalf("open tape: %v", err)
	}
	defer tape.Close()
	log.Printf("scanning %s", path)

	eng := engine.New(engine.Options{
		RetainOrders:  cfg.RetainOrders,
		ProgressEvery: uint64(cfg.ProgressEvery),
	})

	sinks := []vwap.Sink{&printer{quiet: cfg.Quiet}}

	// MongoDB snapshot persistence
	var writer *persist.SnapshotWriter
	if cfg.MongoURI != "" {
		store, err := persist.NewStore(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer store.Close(context.Background())

		if err := store.Migrate(ctx); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		persist.Prune(ctx, store, cfg.SnapshotRetentionDays)

		writer = persist.NewSnapshotWriter(store, filepath.Base(path))
		sinks = append(sinks, writer)
	}

	// Live HTTP/WebSocket surface
	if cfg.Port > 0 {
		mgr := session.NewManager(cfg.SendBufferSize)
		apiServer := api.NewServer(eng.Counters())
		sinks = append(sinks, mgr, apiServer)

		mux := http.NewServeMux()
		mux.HandleFunc("/feed", session.Handler(mgr))
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"status":"ok","clients":%d,"messages":%d}`,
				mgr.ClientCount(), eng.Counters().Total.Load())
		})
		apiServer.Register(mux)

		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			log.Printf("live surface on ws://%s/feed", addr)
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				log.Printf("server error: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	start := time.Now()
	res, scanErr := eng.Run(ctx, itch.NewFrameReader(tape), sinks...)

	if writer != nil {
		saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := writer.SaveRun(saveCtx, res, scanErr); err != nil {
			log.Printf("save run: %v", err)
		}
		saveCancel()
	}

	printSummary(res, time.Since(start))

	if scanErr != nil {
		log.Printf("scan ended early: %v", scanErr)
		os.Exit(1)
	}
}

// printer writes each snapshot to stdout.
type printer struct {
	quiet bool
}

func (p *printer) Publish(_ context.Context, snap vwap.Snapshot) error {
	switch snap.Kind {
	case vwap.SnapshotHourly:
		fmt.Printf("\n=== VWAP at hour %02d (%s) ===\n", snap.Hour, fmtTapeTime(snap.TapeTime))
	case vwap.SnapshotClosing:
		fmt.Printf("\n=== VWAP at market close (%s) ===\n", fmtTapeTime(snap.TapeTime))
	case vwap.SnapshotFinal:
		fmt.Printf("\n=== VWAP at end of tape (%s) ===\n", fmtTapeTime(snap.TapeTime))
	}
	if p.quiet {
		fmt.Printf("%d instruments traded\n", len(snap.VWAPs))
		return nil
	}

	tickers := make([]string, 0, len(snap.VWAPs))
	for t := range snap.VWAPs {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	for _, t := range tickers {
		a := snap.VWAPs[t]
		fmt.Printf("%-8s  %12s  vol %d\n", t, fmtVWAP(a), a.Volume)
	}
	return nil
}

// fmtVWAP renders a VWAP as an exact 4-decimal string from the integer
// accumulators.
func fmtVWAP(a vwap.Aggregate) string {
	raw := (a.Notional + a.Volume/2) / a.Volume
	return fmt.Sprintf("%d.%04d", raw/10000, raw%10000)
}

// fmtTapeTime renders nanoseconds-since-midnight as HH:MM:SS.
func fmtTapeTime(nanos int64) string {
	secs := nanos / 1_000_000_000
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

func printSummary(res engine.Result, elapsed time.Duration) {
	c := res.Counters
	log.Printf("scan finished in %v", elapsed.Round(time.Millisecond))
	log.Printf("messages: %d total, %d unknown type, %d decode errors", c.Total, c.Unknown, c.DecodeErrors)
	log.Printf("orders: %d still open, %d duplicate adds", res.OpenOrders, c.DuplicateAdds)
	log.Printf("orphans: %d executes, %d replaces, %d cancels, %d deletes",
		c.OrphanExecutes, c.OrphanReplaces, c.OrphanCancels, c.OrphanDeletes)
	log.Printf("instruments traded: %d", res.Instruments)

	types := make([]string, 0, len(c.ByType))
	for t := range c.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		log.Printf("  %s: %d", t, c.ByType[t])
	}
}
