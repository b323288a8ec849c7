package destination

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Nico26-sw/legato-Service-DataHub/internal/metrics"
)

// LocalFileConfig configures a local-file destination, trimmed from
// internal/sinks/local_file_sink.go's rotation settings to a single
// size-bounded file per destination (the Hub's routing table already
// gives each destination its own logical stream).
type LocalFileConfig struct {
	Path        string `yaml:"path"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
}

// LocalFile is a Destination that appends newline-delimited JSON
// records to a file, rotating it once it exceeds MaxSizeMB, adapted
// from LocalFileSink's getOrCreateLogFile/rotateFile pair.
type LocalFile struct {
	config LocalFileConfig
	log    *logrus.Logger

	mu       sync.Mutex
	file     *os.File
	size     int64
	maxBytes int64
}

// NewLocalFile builds a LocalFile destination. The file is not opened
// until Start.
func NewLocalFile(config LocalFileConfig, log *logrus.Logger) (*LocalFile, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("local file destination: no path configured")
	}
	if config.MaxSizeMB <= 0 {
		config.MaxSizeMB = 100
	}
	if config.MaxBackups <= 0 {
		config.MaxBackups = 5
	}
	return &LocalFile{
		config:   config,
		log:      log,
		maxBytes: int64(config.MaxSizeMB) * 1024 * 1024,
	}, nil
}

func (l *LocalFile) Name() string { return "file:" + l.config.Path }

func (l *LocalFile) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.config.Path), 0o755); err != nil {
		return fmt.Errorf("local file destination: mkdir: %w", err)
	}
	f, err := os.OpenFile(l.config.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("local file destination: open: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("local file destination: stat: %w", err)
	}
	l.file = f
	l.size = stat.Size()
	l.log.WithField("path", l.config.Path).Info("local file destination started")
	return nil
}

func (l *LocalFile) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Send appends r as a single JSON line, rotating the backing file
// first if it would exceed MaxSizeMB.
func (l *LocalFile) Send(r Record) error {
	start := time.Now()
	defer func() {
		metrics.DestinationSendDuration.WithLabelValues(l.Name()).Observe(time.Since(start).Seconds())
	}()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("local file destination %s: not started", l.Name())
	}

	line := append(append([]byte{}, r.JSON...), '\n')
	if l.size+int64(len(line)) > l.maxBytes {
		if err := l.rotate(); err != nil {
			return err
		}
	}

	n, err := l.file.Write(line)
	l.size += int64(n)
	return err
}

func (l *LocalFile) rotate() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("local file destination: close before rotate: %w", err)
	}
	for i := l.config.MaxBackups - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", l.config.Path, i)
		dst := fmt.Sprintf("%s.%d", l.config.Path, i+1)
		os.Rename(src, dst)
	}
	os.Rename(l.config.Path, l.config.Path+".1")

	f, err := os.OpenFile(l.config.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("local file destination: reopen after rotate: %w", err)
	}
	l.file = f
	l.size = 0
	l.log.WithField("path", l.config.Path).Info("local file destination rotated")
	return nil
}
