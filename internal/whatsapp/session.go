package whatsapp

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/user/hero-dispatch/config"
	"go.uber.org/zap"
)

// ErrAlreadyLoggedIn is returned when a QR code is requested for a logged-in account
var ErrAlreadyLoggedIn = errors.New("client already logged in")

const qrTimeout = 60 * time.Second

func sessionFileName(phoneNumber, sessionID string) string {
	return fmt.Sprintf("store_%s_%s.db", phoneNumber, sessionID)
}

// parseSessionFileName splits store_<phone>_<session>.db
func parseSessionFileName(name string) (phoneNumber, sessionID string, ok bool) {
	if !strings.HasPrefix(name, "store_") || !strings.HasSuffix(name, ".db") {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimSuffix(strings.TrimPrefix(name, "store_"), ".db"), "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// latestSessionFiles maps every phone number to its newest session id and
// removes older session files of the same number
func latestSessionFiles(storeDir string, logger *zap.Logger) (map[string]string, error) {
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(storeDir, "store_*.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to list session files: %w", err)
	}

	type candidate struct {
		file      string
		sessionID string
		modTime   time.Time
	}
	latest := make(map[string]candidate)
	stale := make([]string, 0)

	for _, file := range files {
		phoneNumber, sessionID, ok := parseSessionFileName(filepath.Base(file))
		if !ok {
			logger.Warn("Skipping unrecognized session file", zap.String("file", file))
			continue
		}
		info, err := os.Stat(file)
		if err != nil {
			logger.Error("Failed to get file info", zap.String("file", file), zap.Error(err))
			continue
		}

		current, exists := latest[phoneNumber]
		switch {
		case !exists:
			latest[phoneNumber] = candidate{file, sessionID, info.ModTime()}
		case info.ModTime().After(current.modTime):
			stale = append(stale, current.file)
			latest[phoneNumber] = candidate{file, sessionID, info.ModTime()}
		default:
			stale = append(stale, file)
		}
	}

	for _, file := range stale {
		if err := os.Remove(file); err != nil {
			logger.Error("Failed to remove old session file", zap.String("file", file), zap.Error(err))
			continue
		}
		logger.Info("Removed old session file", zap.String("file", file))
	}

	sessions := make(map[string]string, len(latest))
	for phoneNumber, c := range latest {
		sessions[phoneNumber] = c.sessionID
	}
	return sessions, nil
}

// QRCodeManager handles QR code generation and authentication
type QRCodeManager struct {
	clientManager *ClientManager
	config        config.Config
	logger        *zap.Logger
}

// NewQRCodeManager creates a new QR code manager
func NewQRCodeManager(clientManager *ClientManager, cfg config.Config, logger *zap.Logger) *QRCodeManager {
	return &QRCodeManager{
		clientManager: clientManager,
		config:        cfg,
		logger:        logger,
	}
}

// GenerateQRCode starts a login for phoneNumber and writes the QR image.
// It returns the raw code and the image path.
func (qm *QRCodeManager) GenerateQRCode(phoneNumber string) (string, string, error) {
	if loggedIn, err := qm.clientManager.IsLoggedIn(phoneNumber); err == nil && loggedIn {
		return "", "", ErrAlreadyLoggedIn
	}

	qrChan, err := qm.clientManager.GetQRChannel(phoneNumber)
	if err != nil {
		return "", "", err
	}

	select {
	case evt := <-qrChan:
		if evt.Event != "code" {
			return "", "", fmt.Errorf("unexpected QR event: %s", evt.Event)
		}
		path, err := WriteQRCode(qm.config.WhatsApp.QRCodeDir, phoneNumber, evt.Code)
		if err != nil {
			return "", "", err
		}

		qm.logger.Info("QR code generated",
			zap.String("phone_number", phoneNumber),
			zap.String("path", path))
		return evt.Code, path, nil
	case <-time.After(qrTimeout):
		return "", "", fmt.Errorf("timeout waiting for QR code")
	}
}

// WriteQRCode renders code as a PNG under dir and returns its path
func WriteQRCode(dir, phoneNumber, code string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create QR code directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.png", phoneNumber))
	if err := qrcode.WriteFile(code, qrcode.Medium, 256, path); err != nil {
		return "", fmt.Errorf("failed to generate QR code image: %w", err)
	}
	return path, nil
}

// SessionManager handles WhatsApp session files
type SessionManager struct {
	storeDir string
	logger   *zap.Logger
}

// NewSessionManager creates a new session manager
func NewSessionManager(storeDir string, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		storeDir: storeDir,
		logger:   logger,
	}
}

// SessionInfo holds information about a WhatsApp session
type SessionInfo struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListSessions returns the session files in the store directory
func (sm *SessionManager) ListSessions() ([]SessionInfo, error) {
	if err := os.MkdirAll(sm.storeDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(sm.storeDir, "store_*.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to list session files: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(matches))
	for _, match := range matches {
		phoneNumber, sessionID, ok := parseSessionFileName(filepath.Base(match))
		if !ok {
			sm.logger.Warn("Failed to parse session filename", zap.String("path", match))
			continue
		}
		info, err := os.Stat(match)
		if err != nil {
			continue
		}

		sessions = append(sessions, SessionInfo{
			ID:          sessionID,
			PhoneNumber: phoneNumber,
			UpdatedAt:   info.ModTime(),
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].PhoneNumber != sessions[j].PhoneNumber {
			return sessions[i].PhoneNumber < sessions[j].PhoneNumber
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

// DeleteSession removes a WhatsApp session
func (sm *SessionManager) DeleteSession(phoneNumber, sessionID string) error {
	dbPath := filepath.Join(sm.storeDir, sessionFileName(phoneNumber, sessionID))
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session database: %w", err)
	}

	sm.logger.Info("Session deleted",
		zap.String("phone_number", phoneNumber),
		zap.String("session_id", sessionID))
	return nil
}
