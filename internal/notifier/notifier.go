// Package notifier tells the snapshot consumer to re-read its cache.
//
// The consumer advertises itself with a lockfile holding "port|pid|secret".
// A refresh is a POST to 127.0.0.1:<port> carrying the secret in a header.
// Delivery is best effort: a consumer that is not running simply refreshes on
// its own schedule.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/habitlink/internal/constants"
)

var (
	userConfigDirFunc = os.UserConfigDir
	findProcessFunc   = ps.FindProcess

	// ErrConsumerNotRunning means no live consumer answered to the lockfile.
	ErrConsumerNotRunning = errors.New("snapshot consumer is not running")
)

type Notifier struct {
	// LockfileDir overrides the consumer's config directory lookup.
	LockfileDir string
	client      *http.Client
}

type RefreshPayload struct {
	Event     string    `json:"event"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New() *Notifier {
	return &Notifier{client: &http.Client{Timeout: constants.NotifyTimeout}}
}

// Refresh signals the consumer that snapshots written at updatedAt are ready.
func (n *Notifier) Refresh(ctx context.Context, updatedAt time.Time) error {
	dir := n.LockfileDir
	if dir == "" {
		var err error
		if dir, err = ConsumerConfigDir(); err != nil {
			return err
		}
	}

	port, secret, err := findConsumer(filepath.Join(dir, constants.NotifierLockfileName))
	if err != nil {
		return err
	}

	return n.send(ctx, port, secret, RefreshPayload{Event: "refresh", UpdatedAt: updatedAt.UTC()})
}

// ConsumerConfigDir returns the directory holding the consumer's lockfile.
// The consumer may relocate it through lockfile_dir in its settings.json.
func ConsumerConfigDir() (string, error) {
	configDir, err := userConfigDirFunc()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	consumerDir := filepath.Join(configDir, constants.ConsumerAppIdentifier)

	data, err := os.ReadFile(filepath.Join(consumerDir, "settings.json"))
	if err != nil {
		return consumerDir, nil
	}
	var store struct {
		Settings struct {
			LockfileDir *string `json:"lockfile_dir"`
		} `json:"settings"`
	}
	if err := json.Unmarshal(data, &store); err == nil {
		if d := store.Settings.LockfileDir; d != nil && *d != "" {
			return *d, nil
		}
	}
	return consumerDir, nil
}

func findConsumer(lockfilePath string) (string, string, error) {
	content, err := os.ReadFile(lockfilePath)
	if err != nil {
		return "", "", ErrConsumerNotRunning
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return "", "", errors.New("lockfile is malformed")
	}

	port := strings.TrimSpace(parts[0])
	if port == "" {
		return "", "", errors.New("port in lockfile is empty")
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return "", "", errors.New("invalid port number in lockfile")
	}
	if portNum < 1 || portNum > 65535 {
		return "", "", fmt.Errorf("port number %d is outside valid range (1-65535)", portNum)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", "", errors.New("invalid process ID in lockfile")
	}
	secret := strings.TrimSpace(parts[2])
	if secret == "" {
		return "", "", errors.New("secret in lockfile is empty")
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return "", "", ErrConsumerNotRunning
	}
	if !strings.HasPrefix(process.Executable(), constants.ConsumerExecutablePref) {
		return "", "", fmt.Errorf("process with PID %d is not %s (is %s)", pid, constants.ConsumerExecutablePref, process.Executable())
	}

	return port, secret, nil
}

func (n *Notifier) send(ctx context.Context, port, secret string, payload RefreshPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://127.0.0.1:"+port, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(constants.NotifySecretHeader, secret)

	client := n.client
	if client == nil {
		client = &http.Client{Timeout: constants.NotifyTimeout}
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK || res.StatusCode == http.StatusNoContent {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("refresh failed with status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
}
