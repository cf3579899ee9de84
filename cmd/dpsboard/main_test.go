package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZehenForever/dpsboard/internal/engine"
	"github.com/ZehenForever/dpsboard/internal/export"
	"github.com/ZehenForever/dpsboard/internal/model"
	"github.com/ZehenForever/dpsboard/internal/ranking"
)

func docSnapshot() *model.Snapshot {
	s := model.NewEmptySnapshot()
	s.SelfID = 3
	s.HitTime[0] = model.HitWindow{Start: 100, End: 110}
	s.Damage[3] = map[int64]map[string]model.SkillStat{0: {"": {All: model.HitStat{TotalDamage: 12000}}}}
	s.Damage[4] = map[int64]map[string]model.SkillStat{0: {"": {All: model.HitStat{TotalDamage: 4000}}}}
	s.Users[3] = model.UserInfo{Job: "Artist"}
	s.Users[4] = model.UserInfo{Job: "Reaper"}
	return s
}

func TestRun_ExitCodes(t *testing.T) {
	t.Setenv("DPSBOARD_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	if code := run(nil); code != 2 {
		t.Fatalf("no args code=%d want=2", code)
	}
	if code := run([]string{"bogus"}); code != 2 {
		t.Fatalf("unknown code=%d want=2", code)
	}
	if code := run([]string{"rank"}); code != 2 {
		t.Fatalf("rank without file code=%d want=2", code)
	}
	if code := run([]string{"rank", "--file", filepath.Join(t.TempDir(), "nope.json")}); code != 1 {
		t.Fatalf("rank missing file code=%d want=1", code)
	}

	p, err := export.SaveDocument(t.TempDir(), docSnapshot(), time.Now())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if code := run([]string{"rank", "--file", p, "--boss", "all", "--format", "xml"}); code != 2 {
		t.Fatalf("bad format code=%d want=2", code)
	}
}

func TestPrintRanking(t *testing.T) {
	snap := docSnapshot()
	mode := ranking.Mode{Boss: model.BossAll}
	rows := ranking.Compute(snap, mode, 0)

	var buf bytes.Buffer
	printRanking(&buf, rows, mode, 0, 10)
	out := buf.String()

	if !strings.HasPrefix(out, "boss=all single=false target=0 time=00:10 total=16,000\n") {
		t.Fatalf("header=%q", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines=%d want=4\n%s", len(lines), out)
	}
	if f := strings.Fields(lines[2]); f[0] != "1" || f[1] != "Artist" || f[2] != "*" || f[3] != "1,200" {
		t.Fatalf("row=%q", lines[2])
	}
	if f := strings.Fields(lines[3]); f[1] != "Reaper" || f[4] != "25.0%" {
		t.Fatalf("row=%q", lines[3])
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	sess, err := openSession(cfg, &sessionFlags{offline: true})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	defer sess.close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx, sess, "127.0.0.1:0", 20*time.Millisecond) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("serve err=%v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("serve did not stop")
	}
	if sess.eng.State() != engine.StateEmpty {
		t.Fatalf("state=%s want=EMPTY", sess.eng.State())
	}
}

func TestOpenSession_LoadsDocument(t *testing.T) {
	p, err := export.SaveDocument(t.TempDir(), docSnapshot(), time.Now())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	cfg := DefaultConfig()
	cfg.UI.BossMode = "all"
	sess, err := openSession(cfg, &sessionFlags{offline: true, load: p})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	defer sess.close()

	rows := sess.eng.Ranking()
	if len(rows) != 2 || rows[0].JobName != "Artist" || rows[0].DPS != 1200 {
		t.Fatalf("rows=%+v", rows)
	}
	if sess.status() != nil {
		t.Fatalf("offline session reports feed status")
	}
}
