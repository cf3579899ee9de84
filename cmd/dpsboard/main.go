package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ZehenForever/dpsboard/internal/capture"
	"github.com/ZehenForever/dpsboard/internal/engine"
	"github.com/ZehenForever/dpsboard/internal/export"
	"github.com/ZehenForever/dpsboard/internal/feed"
	"github.com/ZehenForever/dpsboard/internal/httpapi"
	"github.com/ZehenForever/dpsboard/internal/metrics"
	"github.com/ZehenForever/dpsboard/internal/model"
	"github.com/ZehenForever/dpsboard/internal/ranking"
	"github.com/ZehenForever/dpsboard/internal/tui"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	switch args[0] {
	case "tui":
		return runTUI(args[1:])
	case "serve":
		return runServe(args[1:])
	case "rank":
		return runRank(args[1:])
	case "-h", "--help", "help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "dpsboard tui [--feed <url>] [--load <savedata.json>] [--offline]")
	fmt.Fprintln(os.Stderr, "dpsboard serve [--addr <host:port>] [--feed <url>] [--load <savedata.json>]")
	fmt.Fprintln(os.Stderr, "dpsboard rank --file <savedata.json> [--format table|csv|summary]")
}

func loadConfig() (AppConfig, bool) {
	cfg, path, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: config %s: %v\n", path, err)
		return cfg, false
	}
	debugf("config: path=%q", path)
	return cfg, true
}

// sessionFlags are shared by tui and serve and default to the config file.
type sessionFlags struct {
	feedURL string
	record  string
	boss    string
	single  bool
	load    string
	offline bool
}

func bindSessionFlags(fs *flag.FlagSet, cfg AppConfig) *sessionFlags {
	f := &sessionFlags{}
	fs.StringVar(&f.feedURL, "feed", cfg.Feed.URL, "websocket url of the combat feed")
	fs.StringVar(&f.record, "record", cfg.Feed.Record, "append raw feed frames to this capture file")
	fs.StringVar(&f.boss, "boss", cfg.UI.BossMode, "boss mode: all|highest_hp|most_attacked|last_attacked")
	fs.BoolVar(&f.single, "single", cfg.UI.Single, "rank single-target damage")
	fs.StringVar(&f.load, "load", "", "import a saved snapshot document at startup")
	fs.BoolVar(&f.offline, "offline", false, "do not connect to the feed")
	return f
}

func (f *sessionFlags) apply(cfg *AppConfig) {
	cfg.Feed.URL = f.feedURL
	cfg.Feed.Record = f.record
	cfg.UI.BossMode = f.boss
	cfg.UI.Single = f.single
}

// session is the engine plus its optional feed subscription.
type session struct {
	eng *engine.Engine
	sub *feed.Subscriber
	rec *capture.Recorder
}

func openSession(cfg AppConfig, f *sessionFlags) (*session, error) {
	s := &session{eng: engine.New(cfg.EngineConfig())}

	if f.load != "" {
		snap, err := export.LoadDocument(f.load)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("load %s: %w", f.load, err)
		}
		s.eng.Replace(snap, time.Now())
		log.Printf("session: imported path=%s", f.load)
	}
	if f.offline {
		return s, nil
	}

	fc := feed.Config{URL: cfg.Feed.URL}
	if cfg.Feed.Record != "" {
		rec, err := capture.OpenRecorder(cfg.Feed.Record)
		if err != nil {
			s.close()
			return nil, err
		}
		s.rec = rec
		fc.Recorder = rec
	}

	eng := s.eng
	s.sub = feed.NewSubscriber(feed.SinkFunc(func(snap *model.Snapshot) {
		eng.Replace(snap, time.Now())
	}))
	if err := s.sub.Configure(fc); err != nil {
		s.close()
		return nil, err
	}
	s.sub.OnClearConfirmed(func(at time.Time) {
		debugf("session: clear confirmed at=%s", at.Format(time.RFC3339))
	})
	s.eng.SetClearSender(s.sub)
	return s, nil
}

func (s *session) status() func() feed.Status {
	if s.sub == nil {
		return nil
	}
	return s.sub.Status
}

func (s *session) close() {
	if s.sub != nil {
		_ = s.sub.Stop()
	}
	if s.rec != nil {
		_ = s.rec.Close()
	}
	s.eng.Close()
}

func runTUI(args []string) int {
	cfg, ok := loadConfig()
	if !ok {
		return 1
	}
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sf := bindSessionFlags(fs, cfg)
	view := fs.String("view", cfg.UI.View, "initial view: card|table")
	chart := fs.Bool("chart", cfg.UI.Chart, "show the dps trend chart")
	exportDir := fs.String("export-dir", cfg.Export.Dir, "directory for saved json and csv files")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	sf.apply(&cfg)

	if err := os.MkdirAll(*exportDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error: export dir: %v\n", err)
		return 1
	}
	// The alt screen owns the terminal; log lines go to a file instead.
	logFile, err := os.OpenFile(filepath.Join(*exportDir, "dpsboard.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: log file: %v\n", err)
		return 1
	}
	defer logFile.Close()
	log.SetOutput(logFile)

	sess, err := openSession(cfg, sf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer sess.close()
	if sess.sub != nil {
		if err := sess.sub.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = tui.Run(ctx, sess.eng, tui.Options{
		View:      tui.ParseView(*view),
		ShowChart: *chart,
		ExportDir: *exportDir,
		IdleCheck: cfg.IdleCheck(),
		Status:    sess.status(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func runServe(args []string) int {
	cfg, ok := loadConfig()
	if !ok {
		return 1
	}
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sf := bindSessionFlags(fs, cfg)
	addr := fs.String("addr", cfg.API.Addr, "http listen address")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	sf.apply(&cfg)

	sess, err := openSession(cfg, sf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer sess.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := serve(ctx, sess, *addr, cfg.IdleCheck()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// serve runs the feed, the API and the idle check until ctx ends. Sampling
// runs on the scheduler's own timer while the engine is visible.
func serve(ctx context.Context, sess *session, addr string, idleCheck time.Duration) error {
	eng := sess.eng
	eng.Scheduler().SetCallbacks(nil, eng.Sample)
	eng.SetVisible(true)

	api := httpapi.NewServer(addr, eng, sess.status())
	if err := api.Start(); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return api.Stop()
	})

	if sess.sub != nil {
		g.Go(func() error {
			if err := sess.sub.Start(); err != nil {
				return err
			}
			<-gctx.Done()
			return sess.sub.Stop()
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(idleCheck)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				eng.Tick(now)
			}
		}
	})

	return g.Wait()
}

func runRank(args []string) int {
	cfg, ok := loadConfig()
	if !ok {
		return 1
	}
	fs := flag.NewFlagSet("rank", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	filePath := fs.String("file", "", "path to a saved snapshot document")
	boss := fs.String("boss", cfg.UI.BossMode, "boss mode: all|highest_hp|most_attacked|last_attacked")
	single := fs.Bool("single", cfg.UI.Single, "rank single-target damage")
	format := fs.String("format", "table", "output format: table|csv|summary")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		return 2
	}

	snap, err := export.LoadDocument(*filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	mode := ranking.Mode{Boss: model.ParseBossMode(*boss), Single: *single}
	target := snap.TargetFor(mode.Boss)
	rows := ranking.Compute(snap, mode, target)
	runtime := metrics.RuntimeSeconds(snap.Window(target))

	switch strings.ToLower(*format) {
	case "table":
		printRanking(os.Stdout, rows, mode, target, runtime)
	case "csv":
		if err := export.WriteCSV(os.Stdout, rows); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	case "summary":
		fmt.Fprint(os.Stdout, export.Summary(rows, runtime))
	default:
		fmt.Fprintf(os.Stderr, "invalid --format value %q (expected table|csv|summary)\n", *format)
		return 2
	}
	return 0
}

func printRanking(out io.Writer, rows []ranking.Row, mode ranking.Mode, target int64, runtime float64) {
	fmt.Fprintf(out, "boss=%s single=%v target=%d time=%s total=%s\n",
		mode.Boss, mode.Single, target, export.Clock(runtime), export.Number(ranking.TotalDamage(rows)))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tDPS\tDAMAGE\tSHARE\tCRIT\tADD HIT\tATK+\tDMG+")
	for i, r := range rows {
		name := r.JobName
		if r.IsSelf {
			name += " *"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f%%\t%.2f%%\t%.2f%%\t%.2f\t%.2f\n",
			i+1, name, export.Number(r.DPS), export.Number(r.TotalDamage),
			r.ShareOfTotal*100, r.CritRate, r.AddHitRate, r.AvgAtkBuff, r.AvgDmgBuff)
	}
	_ = tw.Flush()
}
