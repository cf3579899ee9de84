package main

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/ZehenForever/dpsboard/internal/capture"
	"github.com/ZehenForever/dpsboard/internal/feed"
	"github.com/ZehenForever/dpsboard/internal/model"
)

// Replay holds the frame the server broadcasts. It is loaded from a snapshot
// document or advanced by captured frames, and emptied by a clear.
type Replay struct {
	mu      sync.Mutex
	frame   []byte
	frames  int64
	cleared int64
}

func NewReplay() (*Replay, error) {
	r := &Replay{}
	if err := r.Load(model.NewEmptySnapshot()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Replay) Load(snap *model.Snapshot) error {
	b, err := feed.EncodeDamage(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	r.mu.Lock()
	r.frame = b
	r.mu.Unlock()
	return nil
}

// Push accepts one captured frame. Frames that are not damage snapshots are
// skipped.
func (r *Replay) Push(frame []byte) bool {
	msg, err := feed.Decode(frame)
	if err != nil {
		log.Printf("replay: skipped frame bytes=%d err=%v", len(frame), err)
		return false
	}
	if msg.Type != feed.TypeDamage {
		return false
	}
	b := append([]byte(nil), frame...)
	r.mu.Lock()
	r.frame = b
	r.frames++
	r.mu.Unlock()
	return true
}

func (r *Replay) Clear() {
	b, err := feed.EncodeDamage(model.NewEmptySnapshot())
	if err != nil {
		return
	}
	r.mu.Lock()
	r.frame = b
	r.cleared++
	r.mu.Unlock()
}

func (r *Replay) Frame() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

func (r *Replay) Stats() (frames, cleared int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames, r.cleared
}

// FollowCapture feeds a capture file into r until ctx ends.
func FollowCapture(ctx context.Context, r *Replay, path string, startAtEnd bool) error {
	fl, err := capture.NewFollower(path, capture.FollowOptions{StartAtEnd: startAtEnd})
	if err != nil {
		return err
	}
	defer fl.Stop()
	return fl.Run(ctx, func(frame []byte) {
		r.Push(frame)
	})
}
