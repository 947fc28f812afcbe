package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver for the session store
	"github.com/user/hero-dispatch/config"
	"github.com/user/hero-dispatch/internal/interfaces"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waTypes "go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

// ClientManager handles WhatsApp client connections
type ClientManager struct {
	clients map[string]*ClientInfo
	console *Console
	config  config.Config
	logger  *zap.Logger
	mutex   sync.RWMutex
}

// Ensure ClientManager satisfies the interfaces.MessageSender interface
var _ interfaces.MessageSender = (*ClientManager)(nil)

// ClientInfo holds information about a WhatsApp client connection
type ClientInfo struct {
	UUID        string
	PhoneNumber string
	Client      *whatsmeow.Client
	Store       *store.Device
}

// NewClientManager creates a new WhatsApp client manager and restores saved sessions
func NewClientManager(service interfaces.DispatchService, cfg config.Config, logger *zap.Logger) *ClientManager {
	cm := &ClientManager{
		clients: make(map[string]*ClientInfo),
		console: NewConsole(service, logger),
		config:  cfg,
		logger:  logger,
	}

	cm.restoreExistingSessions()

	return cm
}

func (cm *ClientManager) storePath(phoneNumber, sessionID string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on",
		filepath.Join(cm.config.WhatsApp.StoreDir, sessionFileName(phoneNumber, sessionID)))
}

// restoreExistingSessions reconnects the most recent session of every phone number
func (cm *ClientManager) restoreExistingSessions() {
	sessions, err := latestSessionFiles(cm.config.WhatsApp.StoreDir, cm.logger)
	if err != nil {
		cm.logger.Error("Failed to scan for existing sessions", zap.Error(err))
		return
	}

	for phoneNumber, sessionID := range sessions {
		container, err := sqlstore.New("sqlite3", cm.storePath(phoneNumber, sessionID), waLog.Stdout("Database", "ERROR", true))
		if err != nil {
			cm.logger.Error("Failed to initialize database",
				zap.String("phone_number", phoneNumber),
				zap.Error(err))
			continue
		}

		deviceStore, err := container.GetFirstDevice()
		if err != nil {
			cm.logger.Info("No valid session found in database",
				zap.String("phone_number", phoneNumber))
			continue
		}

		client := cm.newClient(deviceStore)
		cm.mutex.Lock()
		cm.clients[phoneNumber] = &ClientInfo{
			UUID:        sessionID,
			PhoneNumber: phoneNumber,
			Client:      client,
			Store:       deviceStore,
		}
		cm.mutex.Unlock()

		if client.Store.ID == nil {
			cm.logger.Info("Session requires QR code login",
				zap.String("phone_number", phoneNumber))
			continue
		}

		go func(phone string, cli *whatsmeow.Client) {
			if err := cli.Connect(); err != nil {
				cm.logger.Error("Failed to connect restored client",
					zap.String("phone_number", phone),
					zap.Error(err))
				return
			}
			cm.logger.Info("Restored WhatsApp session", zap.String("phone_number", phone))
		}(phoneNumber, client)
	}
}

func (cm *ClientManager) newClient(deviceStore *store.Device) *whatsmeow.Client {
	store.DeviceProps.Os = proto.String(cm.config.WhatsApp.ClientName)

	client := whatsmeow.NewClient(deviceStore, waLog.Stdout("Client", "WARN", true))
	client.AddEventHandler(cm.handleWhatsAppEvent)
	return client
}

// SetupClient initializes a WhatsApp client for a new or existing session
func (cm *ClientManager) SetupClient(sessionID, phoneNumber string) (*whatsmeow.Client, error) {
	if err := os.MkdirAll(cm.config.WhatsApp.StoreDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	container, err := sqlstore.New("sqlite3", cm.storePath(phoneNumber, sessionID), waLog.Stdout("Database", "ERROR", true))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice()
	if err != nil {
		deviceStore = container.NewDevice()
	}

	client := cm.newClient(deviceStore)

	cm.mutex.Lock()
	if previous, exists := cm.clients[phoneNumber]; exists && previous.Client != client {
		previous.Client.Disconnect()
	}
	cm.clients[phoneNumber] = &ClientInfo{
		UUID:        sessionID,
		PhoneNumber: phoneNumber,
		Client:      client,
		Store:       deviceStore,
	}
	cm.mutex.Unlock()

	return client, nil
}

// GetClient retrieves a WhatsApp client by phone number, reconnecting it when needed
func (cm *ClientManager) GetClient(phoneNumber string) (*whatsmeow.Client, bool) {
	cm.mutex.RLock()
	clientInfo, exists := cm.clients[phoneNumber]
	cm.mutex.RUnlock()

	if !exists {
		return nil, false
	}

	if !clientInfo.Client.IsConnected() && clientInfo.Store.ID != nil {
		if err := clientInfo.Client.Connect(); err != nil {
			cm.logger.Error("Failed to connect client",
				zap.String("phone_number", phoneNumber),
				zap.Error(err))
			return nil, false
		}
		cm.logger.Info("Reconnected client", zap.String("phone_number", phoneNumber))
	}

	return clientInfo.Client, true
}

// GetQRChannel starts a fresh session for phoneNumber and returns its QR channel
func (cm *ClientManager) GetQRChannel(phoneNumber string) (<-chan whatsmeow.QRChannelItem, error) {
	client, err := cm.SetupClient(uuid.New().String(), phoneNumber)
	if err != nil {
		return nil, err
	}

	qrChan, err := client.GetQRChannel(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get QR channel: %w", err)
	}

	go func() {
		if err := client.Connect(); err != nil {
			cm.logger.Error("Failed to connect client",
				zap.String("phone_number", phoneNumber),
				zap.Error(err))
			return
		}
		cm.logger.Info("Client connected", zap.String("phone_number", phoneNumber))
	}()

	return qrChan, nil
}

// Disconnect closes a specific WhatsApp connection
func (cm *ClientManager) Disconnect(phoneNumber string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	clientInfo, exists := cm.clients[phoneNumber]
	if !exists {
		return fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}

	clientInfo.Client.Disconnect()
	delete(cm.clients, phoneNumber)
	return nil
}

// DisconnectAll closes all WhatsApp connections
func (cm *ClientManager) DisconnectAll() {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for phoneNumber, clientInfo := range cm.clients {
		if clientInfo.Client != nil {
			clientInfo.Client.Disconnect()
			cm.logger.Info("Disconnected client", zap.String("phone_number", phoneNumber))
		}
	}

	cm.clients = make(map[string]*ClientInfo)
}

// IsLoggedIn checks if a client is logged in
func (cm *ClientManager) IsLoggedIn(phoneNumber string) (bool, error) {
	client, exists := cm.GetClient(phoneNumber)
	if !exists {
		return false, fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}

	return client.IsLoggedIn(), nil
}

// SendMessage sends a text message from the account phoneNumber to recipient
func (cm *ClientManager) SendMessage(phoneNumber, recipient, message string) (string, error) {
	client, exists := cm.GetClient(phoneNumber)
	if !exists {
		return "", fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}

	recipientJID, err := parseJID(recipient)
	if err != nil {
		return "", fmt.Errorf("invalid recipient %q: %w", recipient, err)
	}

	return cm.send(client, recipientJID, message)
}

func (cm *ClientManager) send(client *whatsmeow.Client, to waTypes.JID, message string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	response, err := client.SendMessage(ctx, to, &waProto.Message{
		Conversation: proto.String(message),
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	return response.ID, nil
}

// handleWhatsAppEvent processes incoming WhatsApp events
func (cm *ClientManager) handleWhatsAppEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		cm.handleIncomingMessage(v)
	case *events.Connected:
		cm.logger.Info("WhatsApp client connected")
	case *events.Disconnected:
		cm.logger.Info("WhatsApp client disconnected")
	case *events.LoggedOut:
		cm.logger.Warn("WhatsApp client logged out")
	}
}

// handleIncomingMessage runs console commands and replies in the same chat
func (cm *ClientManager) handleIncomingMessage(message *events.Message) {
	if message.Info.MessageSource.IsFromMe {
		return
	}

	content := message.Message.GetConversation()
	if content == "" {
		content = message.Message.GetExtendedTextMessage().GetText()
	}

	content, ok := consoleCommand(content, message.Info.Chat.Server == waTypes.GroupServer)
	if !ok {
		return
	}

	cm.logger.Debug("Received command",
		zap.String("content", content),
		zap.String("sender", message.Info.Sender.User),
		zap.String("chat", message.Info.Chat.User))

	response := cm.console.Handle(message.Info.Sender.User, content)
	if response == "" {
		return
	}

	client := cm.botClient()
	if client == nil {
		cm.logger.Error("No client available to send response")
		return
	}

	if _, err := cm.send(client, message.Info.Chat, response); err != nil {
		cm.logger.Error("Failed to send response",
			zap.String("sender", message.Info.Sender.User),
			zap.Error(err))
	}
}

// botClient returns the client of the configured bot phone, or any client
func (cm *ClientManager) botClient() *whatsmeow.Client {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if info, ok := cm.clients[cm.config.WhatsApp.BotPhone]; ok {
		return info.Client
	}
	for _, info := range cm.clients {
		return info.Client
	}
	return nil
}

// consoleCommand extracts a command from chat text. Group messages need a "/ " prefix.
func consoleCommand(content string, isGroup bool) (string, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", false
	}
	if isGroup {
		if !strings.HasPrefix(content, "/ ") {
			return "", false
		}
		return "/" + strings.TrimPrefix(content, "/ "), true
	}
	return content, strings.HasPrefix(content, "/")
}

// parseJID converts a string to a WhatsApp JID
func parseJID(jidString string) (waTypes.JID, error) {
	if !strings.ContainsRune(jidString, '@') {
		jidString = jidString + "@" + waTypes.DefaultUserServer
	}

	return waTypes.ParseJID(jidString)
}
