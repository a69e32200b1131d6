package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"mediastock/internal/config"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte(`{"churchMediaInventory":{"a":{"instrumentName":"Mixer"}}}`)

	encrypted, err := Encrypt(plaintext, "correct horse battery staple")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(encrypted, []byte("Mixer")) {
		t.Error("ciphertext leaks plaintext")
	}

	decrypted, err := Decrypt(encrypted, "correct horse battery staple")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("round trip mismatch: got %q", decrypted)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	encrypted, err := Encrypt([]byte("secret"), "right")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := Decrypt(encrypted, "wrong"); err == nil {
		t.Error("expected decryption failure with wrong passphrase")
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	encrypted, err := Encrypt([]byte("secret"), "pass")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	encrypted[len(encrypted)-1] ^= 0xff
	if _, err := Decrypt(encrypted, "pass"); err == nil {
		t.Error("expected decryption failure for tampered data")
	}
}

func TestDecryptTruncatedInput(t *testing.T) {
	if _, err := Decrypt([]byte("short"), "pass"); err == nil {
		t.Error("expected error for truncated input")
	}
}

// fakeS3 records uploads and optionally fails the first n calls.
type fakeS3 struct {
	mu       sync.Mutex
	failures int
	calls    int
	keys     []string
	bodies   [][]byte
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.keys = append(f.keys, *input.Key)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

type fakeExporter struct {
	data []byte
	err  error
}

func (f *fakeExporter) ExportJSON(ctx context.Context) ([]byte, error) {
	return f.data, f.err
}

func enabledConfig() Config {
	return Config{
		S3: config.S3{
			Bucket:    "backups",
			Region:    "auto",
			AccessKey: "key",
			SecretKey: "secret",
		},
		Passphrase: "pass",
		Interval:   time.Hour,
	}
}

func TestManagerDisabledWithoutConfig(t *testing.T) {
	m := NewManager(Config{}, &fakeExporter{}, nil, slog.Default())

	if got := m.Status().State; got != StateDisabled {
		t.Errorf("expected disabled state, got %s", got)
	}
	if err := m.Run(context.Background()); err == nil {
		t.Error("expected error running a disabled manager")
	}

	// Start on a disabled manager is a no-op, and Stop after it is safe.
	m.Start(context.Background())
	m.Stop()
}

func TestManagerRunUploadsEncryptedSnapshot(t *testing.T) {
	snapshot := []byte(`{"churchMediaInventory":{}}`)
	client := &fakeS3{}

	m := NewManager(enabledConfig(), &fakeExporter{data: snapshot}, nil, slog.Default())
	m.client = client

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(client.keys) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(client.keys))
	}
	if !strings.HasPrefix(client.keys[0], "mediastock/snapshot-") || !strings.HasSuffix(client.keys[0], ".json.enc") {
		t.Errorf("unexpected object key %q", client.keys[0])
	}

	decrypted, err := Decrypt(client.bodies[0], "pass")
	if err != nil {
		t.Fatalf("decrypt uploaded body: %v", err)
	}
	if !bytes.Equal(decrypted, snapshot) {
		t.Errorf("uploaded snapshot mismatch: got %q", decrypted)
	}

	status := m.Status()
	if status.State != StateIdle || status.LastBackup == nil || status.InProgress {
		t.Errorf("unexpected status after success: %+v", status)
	}
}

func TestManagerRunRetriesUpload(t *testing.T) {
	client := &fakeS3{failures: 1}

	m := NewManager(enabledConfig(), &fakeExporter{data: []byte("{}")}, nil, slog.Default())
	m.client = client

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if client.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", client.calls)
	}
}

func TestManagerRunExportFailure(t *testing.T) {
	m := NewManager(enabledConfig(), &fakeExporter{err: errors.New("db locked")}, nil, slog.Default())
	m.client = &fakeS3{}

	if err := m.Run(context.Background()); err == nil {
		t.Fatal("expected run to fail")
	}

	status := m.Status()
	if status.State != StateError {
		t.Errorf("expected error state, got %s", status.State)
	}
	if !strings.Contains(status.Error, "db locked") {
		t.Errorf("expected error detail, got %q", status.Error)
	}
	if status.InProgress {
		t.Error("expected in-progress flag cleared")
	}
}

func TestManagerStatusCallback(t *testing.T) {
	var mu sync.Mutex
	var states []State
	callback := func(s Status) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	}

	m := NewManager(enabledConfig(), &fakeExporter{data: []byte("{}")}, callback, slog.Default())
	m.client = &fakeS3{}

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 || states[0] != StateRunning || states[1] != StateIdle {
		t.Errorf("unexpected callback sequence: %v", states)
	}
}
