// Package capture records raw feed frames as JSON lines and plays them back.
package capture

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const maxFrameBytes = 64 << 20

type Recorder struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// OpenRecorder appends to path, creating it and its directory as needed.
func OpenRecorder(path string) (*Recorder, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("capture: create dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("capture: open %s: %w", path, err)
	}
	return &Recorder{file: f, path: path}, nil
}

// Record writes frame as a single compacted line.
func (r *Recorder) Record(frame []byte) error {
	var line bytes.Buffer
	if err := json.Compact(&line, frame); err != nil {
		return fmt.Errorf("capture: compact frame: %w", err)
	}
	line.WriteByte('\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return os.ErrClosed
	}
	_, err := r.file.Write(line.Bytes())
	return err
}

func (r *Recorder) Path() string {
	return r.path
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// ReadFrames calls fn for every non-empty line of r, stopping at the first error.
func ReadFrames(r io.Reader, fn func(frame []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxFrameBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		frame := make([]byte, len(line))
		copy(frame, line)
		if err := fn(frame); err != nil {
			return err
		}
	}
	return sc.Err()
}

func ReadFile(path string, fn func(frame []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReadFrames(f, fn)
}
