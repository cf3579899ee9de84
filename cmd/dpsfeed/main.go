package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/ZehenForever/dpsboard/internal/export"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("dpsfeed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	listen := fs.String("listen", "127.0.0.1:8080", "listen address")
	document := fs.String("document", "", "replay a saved snapshot document")
	capturePath := fs.String("capture", "", "replay a capture file, following appended frames")
	fromEnd := fs.Bool("from-end", false, "with --capture, skip frames already in the file")
	interval := fs.Duration("interval", time.Second, "broadcast interval")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if (*document == "") == (*capturePath == "") {
		fmt.Fprintln(os.Stderr, "exactly one of --document or --capture is required")
		return 2
	}

	replay, err := NewReplay()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if *document != "" {
		snap, err := export.LoadDocument(*document)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		if err := replay.Load(snap); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *capturePath != "" {
		go func() {
			if err := FollowCapture(ctx, replay, *capturePath, *fromEnd); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("replay: capture stopped: %v", err)
			}
		}()
	}

	srv := NewServer(replay, *interval)
	go srv.BroadcastLoop(ctx)

	httpServer := &http.Server{
		Addr:              *listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("dpsfeed listening on ws://%s", *listen)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
