// Package backup periodically snapshots the document store as JSON,
// encrypts the snapshot, and uploads it to S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"

	"mediastock/internal/config"
)

// s3Client is the subset of the S3 API the manager uses, an interface for
// testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Exporter produces the full-store snapshot to back up. Both document store
// backends implement it.
type Exporter interface {
	ExportJSON(ctx context.Context) ([]byte, error)
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Config holds backup manager configuration.
type Config struct {
	S3         config.S3
	Passphrase string
	Interval   time.Duration
}

// Manager runs scheduled encrypted snapshots. It is disabled unless both the
// S3 target and a passphrase are configured.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback

	exporter Exporter
	client   s3Client
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager over the given exporter.
func NewManager(cfg Config, exporter Exporter, callback StatusCallback, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		exporter: exporter,
		callback: callback,
		logger:   logger,
		status:   Status{State: StateDisabled},
	}

	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}

	return m
}

func newS3Client(cfg config.S3) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Status returns the current status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Start begins the scheduled backup loop. No-op when disabled.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.status.State == StateDisabled {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	interval := m.cfg.Interval
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Run(ctx); err != nil {
					m.logger.Error("scheduled backup", "error", err)
				}
			}
		}
	}()
}

// Stop halts the scheduled loop.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Run performs one backup: export, encrypt, upload. Uploads are retried
// with exponential backoff before the run is marked failed.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.status.State == StateDisabled {
		m.mu.Unlock()
		return fmt.Errorf("backup disabled: missing S3 target or passphrase")
	}
	if m.status.InProgress {
		m.mu.Unlock()
		return fmt.Errorf("backup already in progress")
	}
	m.status.InProgress = true
	m.status.State = StateRunning
	m.status.Error = ""
	m.mu.Unlock()
	m.notifyStatus()

	err := m.run(ctx)

	m.mu.Lock()
	m.status.InProgress = false
	if err != nil {
		m.status.State = StateError
		m.status.Error = err.Error()
	} else {
		now := time.Now().UTC()
		m.status.State = StateIdle
		m.status.LastBackup = &now
	}
	m.mu.Unlock()
	m.notifyStatus()

	return err
}

func (m *Manager) run(ctx context.Context) error {
	snapshot, err := m.exporter.ExportJSON(ctx)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}

	encrypted, err := Encrypt(snapshot, m.cfg.Passphrase)
	if err != nil {
		return fmt.Errorf("encrypt snapshot: %w", err)
	}

	key := fmt.Sprintf("mediastock/snapshot-%s.json.enc", time.Now().UTC().Format("2006-01-02T15-04-05"))

	backoff := retry.WithMaxRetries(3, retry.NewExponential(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(encrypted),
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	m.logger.Info("backup uploaded", "key", key, "bytes", len(encrypted))
	return nil
}

func (m *Manager) notifyStatus() {
	if m.callback == nil {
		return
	}
	m.mu.RLock()
	status := m.status
	m.mu.RUnlock()
	m.callback(status)
}
