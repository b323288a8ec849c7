package destination

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLocalFileSendAppendsLines(t *testing.T) {
	dir := t.TempDir()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	lf, err := NewLocalFile(LocalFileConfig{Path: filepath.Join(dir, "out.ndjson")}, log)
	if err != nil {
		t.Fatalf("NewLocalFile: %v", err)
	}
	if err := lf.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer lf.Stop()

	if err := lf.Send(Record{Path: "/a", JSON: []byte(`{"v":1}`)}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := lf.Send(Record{Path: "/b", JSON: []byte(`{"v":2}`)}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "out.ndjson"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "{\"v\":1}\n{\"v\":2}\n"
	if string(data) != want {
		t.Fatalf("file content = %q, want %q", string(data), want)
	}
}

func TestLocalFileRotatesOnOverflow(t *testing.T) {
	dir := t.TempDir()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	path := filepath.Join(dir, "out.ndjson")

	lf, err := NewLocalFile(LocalFileConfig{Path: path, MaxSizeMB: 1, MaxBackups: 2}, log)
	if err != nil {
		t.Fatalf("NewLocalFile: %v", err)
	}
	lf.maxBytes = 10 // force rotation well before 1MB for the test
	if err := lf.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer lf.Stop()

	if err := lf.Send(Record{JSON: []byte("0123456789")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := lf.Send(Record{JSON: []byte("rotated")}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected rotated backup %s.1 to exist: %v", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile current: %v", err)
	}
	if string(data) != "rotated\n" {
		t.Fatalf("current file content = %q, want %q", string(data), "rotated\n")
	}
}

// TestLocalFileSendConcurrentNoDeadlock exercises Send from many
// goroutines at once, mirroring the teacher's disk-space deadlock
// regression test for the same sink shape.
func TestLocalFileSendConcurrentNoDeadlock(t *testing.T) {
	dir := t.TempDir()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	lf, err := NewLocalFile(LocalFileConfig{Path: filepath.Join(dir, "out.ndjson"), MaxSizeMB: 1}, log)
	if err != nil {
		t.Fatalf("NewLocalFile: %v", err)
	}
	if err := lf.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer lf.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				lf.Send(Record{JSON: []byte(`{"v":1}`)})
			}
		}()
	}
	wg.Wait()
}
