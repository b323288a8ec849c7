// Package producer holds example Input producers: code that pushes
// Samples into the hub from some external source. FileTail is the one
// concrete producer in this module, grounded on the teacher's
// internal/monitors/file_monitor.go logTailer (tail a file, push one
// record per line), generalized from "dispatch a log entry" to
// "create and push a string Sample at a resource path".
package producer

import (
	"context"
	"fmt"
	"sync"

	"github.com/nxadm/tail"
	"github.com/sirupsen/logrus"

	"github.com/Nico26-sw/legato-Service-DataHub/pkg/clock"
)

// Pusher is the subset of the hub's Input API a producer needs: push
// one string sample to a resource path. Defined here rather than
// imported from internal/hub to avoid a producer->hub->resource->...
// import cycle; internal/hub.Hub satisfies it.
type Pusher interface {
	PushString(path string, ts float64, value []byte) error
}

// FileTail is an Input producer that tails a file and pushes each line
// as a string sample at path, adapted from logTailer's follow/reopen
// tail.Config and worker dispatch loop — simplified to a direct push
// since the Hub's own Push path is already the serialization point
// (spec.md §5), so no separate worker pool is needed here.
type FileTail struct {
	path     string
	filename string
	log      *logrus.Logger
	pusher   Pusher
	seekEnd  bool

	tailer *tail.Tail
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewFileTail builds a FileTail producer. filename is the file on disk
// to follow; path is the hub resource path each line is pushed to.
// seekEnd mirrors the teacher's "ignore old timestamps" seek strategy:
// true starts at EOF, false replays the file from the beginning.
func NewFileTail(filename, path string, seekEnd bool, pusher Pusher, log *logrus.Logger) *FileTail {
	return &FileTail{path: path, filename: filename, log: log, pusher: pusher, seekEnd: seekEnd}
}

// Start begins following the file. It returns once the tailer is
// established; line delivery happens on a background goroutine.
func (f *FileTail) Start(ctx context.Context) error {
	seek := &tail.SeekInfo{Whence: 0}
	if f.seekEnd {
		seek = &tail.SeekInfo{Whence: 2}
	}

	t, err := tail.TailFile(f.filename, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Location: seek,
		Poll:     false,
	})
	if err != nil {
		return fmt.Errorf("file tail producer: failed to tail %s: %w", f.filename, err)
	}
	f.tailer = t

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.wg.Add(1)
	go f.run(runCtx)

	f.log.WithFields(logrus.Fields{"file": f.filename, "path": f.path}).Info("file tail producer started")
	return nil
}

func (f *FileTail) run(ctx context.Context) {
	defer f.wg.Done()
	defer f.tailer.Cleanup()

	for {
		select {
		case <-ctx.Done():
			f.tailer.Stop()
			return
		case line, ok := <-f.tailer.Lines:
			if !ok {
				if err := f.tailer.Err(); err != nil {
					f.log.WithError(err).Warn("file tail producer: tailer error")
				}
				return
			}
			if line.Err != nil {
				f.log.WithError(line.Err).Warn("file tail producer: line error")
				continue
			}
			ts := clock.SecondsOf(line.Time)
			if err := f.pusher.PushString(f.path, ts, []byte(line.Text)); err != nil {
				f.log.WithError(err).WithField("path", f.path).Warn("file tail producer: push failed")
			}
		}
	}
}

// Stop halts the tailer and waits for its goroutine to exit.
func (f *FileTail) Stop() error {
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
	return nil
}
