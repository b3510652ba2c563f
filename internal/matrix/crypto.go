// ABOUTME: End-to-end encryption for the bot account using mautrix cryptohelper
// ABOUTME: Keeps a per-account SQLite crypto store and resets it when the device changes

package matrix

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/crypto/cryptohelper"
)

// Encryption owns the crypto helper attached to the client.
type Encryption struct {
	helper *cryptohelper.CryptoHelper
	logger *slog.Logger
}

// EnableEncryption attaches E2EE to a logged-in client so the bot can read
// and write encrypted DMs and staff rooms. A non-empty recoveryKey also
// verifies the device through cross-signing; failure there is logged only.
func EnableEncryption(ctx context.Context, client *mautrix.Client, recoveryKey, dataDir string, logger *slog.Logger) (*Encryption, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "crypto")

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	account := client.UserID.String()
	dbPath := cryptoStorePath(dataDir, account)
	logger.Info("setting up encryption", "db", dbPath)

	if err := resetStaleCryptoStore(dbPath, client.DeviceID.String(), logger); err != nil {
		return nil, err
	}

	helper, err := cryptohelper.NewCryptoHelper(client, pickleKey(account), dbPath)
	if err != nil {
		return nil, fmt.Errorf("creating crypto helper: %w", err)
	}
	if err := helper.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing crypto helper: %w", err)
	}
	client.Crypto = helper

	enc := &Encryption{helper: helper, logger: logger}

	if recoveryKey == "" {
		logger.Info("encryption enabled without cross-signing")
		return enc, nil
	}
	if err := enc.verify(ctx, recoveryKey); err != nil {
		logger.Warn("cross-signing verification failed, continuing unverified", "error", err)
	} else {
		logger.Info("encryption enabled with cross-signing")
	}
	return enc, nil
}

func (e *Encryption) verify(ctx context.Context, recoveryKey string) error {
	machine := e.helper.Machine()
	if machine == nil {
		return errors.New("crypto machine not initialized")
	}
	if err := machine.VerifyWithRecoveryKey(ctx, recoveryKey); err != nil {
		return fmt.Errorf("verifying with recovery key: %w", err)
	}
	return nil
}

// Close releases the crypto store.
func (e *Encryption) Close() error {
	if e == nil || e.helper == nil {
		return nil
	}
	return e.helper.Close()
}

// cryptoStorePath isolates each account's store, e.g.
// @helpdesk:example.org -> helpdesk-crypto-helpdesk_example.org.db
func cryptoStorePath(dataDir, account string) string {
	var sb strings.Builder
	for _, r := range strings.TrimPrefix(account, "@") {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		case r == ':':
			sb.WriteRune('_')
		}
	}
	return filepath.Join(dataDir, fmt.Sprintf("helpdesk-crypto-%s.db", sb.String()))
}

// pickleKey derives the store encryption key from the account ID.
func pickleKey(account string) []byte {
	sum := sha256.Sum256([]byte("helpdesk-bridge-crypto:" + account))
	return sum[:]
}

// resetStaleCryptoStore removes a store left behind by a previous device.
// Every password login creates a new device, and the helper refuses to
// open a store whose account belongs to another one.
func resetStaleCryptoStore(dbPath, deviceID string, logger *slog.Logger) error {
	stored, err := storedDeviceID(dbPath)
	if err != nil {
		logger.Debug("could not read stored device ID", "error", err)
		return nil
	}
	if stored == "" || stored == deviceID {
		return nil
	}

	logger.Warn("crypto store belongs to another device, resetting", "stored", stored, "current", deviceID)
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing old crypto database: %w", err)
		}
	}
	return nil
}

// storedDeviceID reads the device ID from an existing crypto store.
// A missing store or empty account table yields "".
func storedDeviceID(dbPath string) (string, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return "", nil
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return "", err
	}
	defer db.Close()

	var deviceID string
	err = db.QueryRow("SELECT device_id FROM crypto_account LIMIT 1").Scan(&deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return deviceID, err
}
