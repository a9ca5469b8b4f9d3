package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ps "github.com/mitchellh/go-ps"

	"github.com/julianstephens/habitlink/internal/constants"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int           { return m.pid }
func (m *mockProcess) PPid() int          { return 0 }
func (m *mockProcess) Executable() string { return m.executable }

func mockFindProcess(t *testing.T, executable string) {
	t.Helper()
	old := findProcessFunc
	t.Cleanup(func() { findProcessFunc = old })
	findProcessFunc = func(pid int) (ps.Process, error) {
		if executable == "" {
			return nil, nil
		}
		return &mockProcess{pid: pid, executable: executable}, nil
	}
}

func TestConsumerConfigDir(t *testing.T) {
	tempDir := t.TempDir()
	old := userConfigDirFunc
	t.Cleanup(func() { userConfigDirFunc = old })
	userConfigDirFunc = func() (string, error) { return tempDir, nil }

	want := filepath.Join(tempDir, constants.ConsumerAppIdentifier)
	dir, err := ConsumerConfigDir()
	if err != nil || dir != want {
		t.Fatalf("ConsumerConfigDir() = %q, %v; want %q", dir, err, want)
	}

	if err := os.MkdirAll(want, 0o755); err != nil {
		t.Fatal(err)
	}
	custom := filepath.Join(tempDir, "elsewhere")
	settings := fmt.Sprintf(`{"settings": {"lockfile_dir": %q}}`, custom)
	if err := os.WriteFile(filepath.Join(want, "settings.json"), []byte(settings), 0o644); err != nil {
		t.Fatal(err)
	}

	dir, err = ConsumerConfigDir()
	if err != nil || dir != custom {
		t.Errorf("ConsumerConfigDir() = %q, %v; want %q", dir, err, custom)
	}
}

func TestFindConsumer(t *testing.T) {
	lockfile := filepath.Join(t.TempDir(), constants.NotifierLockfileName)

	if _, _, err := findConsumer(lockfile); !errors.Is(err, ErrConsumerNotRunning) {
		t.Errorf("missing lockfile error = %v, want ErrConsumerNotRunning", err)
	}

	mockFindProcess(t, constants.ConsumerExecutablePref)
	bad := []struct {
		name    string
		content string
		contain string
	}{
		{"two parts", "8080|12345", "malformed"},
		{"empty port", "|12345|s3cret", "port"},
		{"port out of range", "99999|12345|s3cret", "range"},
		{"bad pid", "8080|abc|s3cret", "process ID"},
		{"empty secret", "8080|12345|", "secret"},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(lockfile, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, _, err := findConsumer(lockfile)
			if err == nil || !strings.Contains(err.Error(), tt.contain) {
				t.Errorf("findConsumer() error = %v, want mention of %q", err, tt.contain)
			}
		})
	}

	if err := os.WriteFile(lockfile, []byte("8080|12345|s3cret\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	port, secret, err := findConsumer(lockfile)
	if err != nil || port != "8080" || secret != "s3cret" {
		t.Errorf("findConsumer() = %q, %q, %v", port, secret, err)
	}
}

func TestFindConsumerWrongProcess(t *testing.T) {
	lockfile := filepath.Join(t.TempDir(), constants.NotifierLockfileName)
	if err := os.WriteFile(lockfile, []byte("8080|12345|s3cret"), 0o644); err != nil {
		t.Fatal(err)
	}

	mockFindProcess(t, "bash")
	if _, _, err := findConsumer(lockfile); err == nil {
		t.Error("expected an error for a PID owned by another program")
	}

	mockFindProcess(t, "")
	if _, _, err := findConsumer(lockfile); !errors.Is(err, ErrConsumerNotRunning) {
		t.Errorf("dead PID error = %v, want ErrConsumerNotRunning", err)
	}
}

func TestRefreshPostsToConsumer(t *testing.T) {
	var got RefreshPayload
	var gotSecret string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get(constants.NotifySecretHeader)
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	lock := u.Port() + "|4242|s3cret"
	if err := os.WriteFile(filepath.Join(dir, constants.NotifierLockfileName), []byte(lock), 0o644); err != nil {
		t.Fatal(err)
	}
	mockFindProcess(t, constants.ConsumerExecutablePref)

	n := New()
	n.LockfileDir = dir
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	if err := n.Refresh(context.Background(), at); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if gotSecret != "s3cret" {
		t.Errorf("secret header = %q", gotSecret)
	}
	if got.Event != "refresh" || !got.UpdatedAt.Equal(at) {
		t.Errorf("payload = %+v", got)
	}
}

func TestRefreshReportsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad secret", http.StatusUnauthorized)
	}))
	defer server.Close()

	u, _ := url.Parse(server.URL)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, constants.NotifierLockfileName), []byte(u.Port()+"|1|wrong"), 0o644); err != nil {
		t.Fatal(err)
	}
	mockFindProcess(t, constants.ConsumerExecutablePref)

	n := New()
	n.LockfileDir = dir
	err := n.Refresh(context.Background(), time.Now())
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("Refresh() error = %v, want status 401", err)
	}
}
