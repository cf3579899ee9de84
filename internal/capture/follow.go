package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"
)

type FollowOptions struct {
	StartAtEnd   bool
	PollInterval time.Duration
}

// Follower reads a capture file like tail -f, emitting one frame per complete
// line. A truncated file is re-read from the start.
type Follower struct {
	path string
	opts FollowOptions

	mu      sync.Mutex
	file    *os.File
	offset  int64
	buf     []byte
	stopped bool
}

func NewFollower(path string, opts FollowOptions) (*Follower, error) {
	if path == "" {
		return nil, errors.New("capture: empty path")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	return &Follower{path: path, opts: opts}, nil
}

func (f *Follower) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return nil
	}
	f.stopped = true
	if f.file != nil {
		err := f.file.Close()
		f.file = nil
		return err
	}
	return nil
}

func (f *Follower) Run(ctx context.Context, onFrame func(frame []byte)) error {
	if onFrame == nil {
		return errors.New("capture: onFrame is nil")
	}

	fh, err := os.Open(f.path)
	if err != nil {
		return err
	}
	defer fh.Close()

	f.mu.Lock()
	f.file = fh
	f.stopped = false
	f.mu.Unlock()

	whence := io.SeekStart
	if f.opts.StartAtEnd {
		whence = io.SeekEnd
	}
	off, err := fh.Seek(0, whence)
	if err != nil {
		return err
	}
	f.offset = off

	readBuf := make([]byte, 64*1024)
	for {
		if ctx.Err() != nil {
			return nil
		}

		fi, err := fh.Stat()
		if err != nil {
			return err
		}
		if fi.Size() < f.offset {
			if _, err := fh.Seek(0, io.SeekStart); err != nil {
				return err
			}
			f.offset = 0
			f.buf = f.buf[:0]
		}

		n, rerr := fh.Read(readBuf)
		if n > 0 {
			f.offset += int64(n)
			f.buf = append(f.buf, readBuf[:n]...)
			f.drainLines(onFrame)
		}

		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return rerr
		}
		if n == 0 || rerr != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(f.opts.PollInterval):
			}
		}
	}
}

func (f *Follower) drainLines(onFrame func([]byte)) {
	for {
		idx := bytes.IndexByte(f.buf, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimSuffix(f.buf[:idx], []byte{'\r'})
		if len(bytes.TrimSpace(line)) > 0 {
			frame := make([]byte, len(line))
			copy(frame, line)
			onFrame(frame)
		}
		f.buf = f.buf[idx+1:]
	}
	if len(f.buf) > 0 {
		// Drop the reference to the large backing array.
		left := make([]byte, len(f.buf))
		copy(left, f.buf)
		f.buf = left
	}
}
