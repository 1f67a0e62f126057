package tilt

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// CommandHandler is called when a game command arrives over MQTT.
// Parameters: command name, seed (only meaningful for "regenerate").
type CommandHandler func(command string, seed int64)

// MQTTClient manages the MQTT connection used for game telemetry and
// remote commands.
type MQTTClient struct {
	client         mqtt.Client
	config         *Config
	commandHandler CommandHandler
	isConnected    bool
	mu             sync.RWMutex
}

var (
	globalClient *MQTTClient
	clientMu     sync.Mutex
)

// InitMQTT initializes the global MQTT client with the provided configuration.
// If no broker is configured (MQTT_BROKER env var or mqtt.broker in config),
// MQTT is disabled and this returns nil.
func InitMQTT(config *Config, handler CommandHandler) (*MQTTClient, error) {
	clientMu.Lock()
	defer clientMu.Unlock()

	broker := os.Getenv("MQTT_BROKER")
	if broker == "" && config != nil && config.MQTT.Broker != "" {
		broker = config.MQTT.Broker
	}

	if broker == "" {
		log.Println("MQTT disabled: MQTT_BROKER not set")
		return nil, nil
	}

	if config == nil {
		return nil, fmt.Errorf("MQTT enabled but no configuration provided")
	}

	client := &MQTTClient{
		config:         config,
		commandHandler: handler,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" && config.MQTT.ClientID != "" {
		clientID = config.MQTT.ClientID
	}
	if clientID == "" {
		clientID = "tiltmaze"
	}
	opts.SetClientID(clientID)

	username := os.Getenv("MQTT_USERNAME")
	if username == "" && config.MQTT.Username != "" {
		username = config.MQTT.Username
	}
	if username != "" {
		opts.SetUsername(username)
		password := os.Getenv("MQTT_PASSWORD")
		if password == "" && config.MQTT.Password != "" {
			password = config.MQTT.Password
		}
		opts.SetPassword(password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false) // Preserve subscriptions on reconnect
	opts.SetOrderMatters(false)

	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)
	opts.SetReconnectingHandler(client.onReconnecting)

	client.client = mqtt.NewClient(opts)

	go client.connectWithRetry()

	globalClient = client
	return client, nil
}

// GetMQTTClient returns the global MQTT client instance
func GetMQTTClient() *MQTTClient {
	clientMu.Lock()
	defer clientMu.Unlock()
	return globalClient
}

// connectWithRetry attempts to connect to the MQTT broker with exponential backoff
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Println("Connecting to MQTT broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("Successfully connected to MQTT broker")
				c.setConnected(true)
				return
			}
			log.Printf("MQTT connection failed: %v", token.Error())
		} else {
			log.Println("MQTT connection timeout")
		}

		log.Printf("Retrying MQTT connection in %v...", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

// onConnect subscribes to the command topic once the connection is up.
func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.setConnected(true)

	topic := c.commandTopic()
	log.Printf("MQTT connected, subscribing to %s", topic)

	token := client.Subscribe(topic, 0, c.handleCommandMessage)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Printf("Error subscribing to %s: %v", topic, token.Error())
	} else {
		log.Printf("Successfully subscribed to %s", topic)
	}
}

// onConnectionLost is called when the MQTT connection is lost
// Auto-reconnect is enabled, so this is typically a transient event
func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("MQTT connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	log.Println("MQTT reconnecting...")
}

// commandTopic returns the topic remote commands arrive on.
func (c *MQTTClient) commandTopic() string {
	return fmt.Sprintf("%s/command", publishPrefix(c.config))
}

// commandPayload is the JSON body of a command message. Plain-string
// payloads ("reset") are accepted too.
type commandPayload struct {
	Command string `json:"command"`
	Seed    int64  `json:"seed,omitempty"`
}

// handleCommandMessage parses a command message and dispatches it.
// Recognized commands: reset, flatten, regenerate.
func (c *MQTTClient) handleCommandMessage(client mqtt.Client, msg mqtt.Message) {
	payload := msg.Payload()

	var cmd commandPayload
	if err := json.Unmarshal(payload, &cmd); err != nil {
		// Accept a bare JSON string or raw text command.
		var plain string
		if err2 := json.Unmarshal(payload, &plain); err2 == nil {
			cmd.Command = plain
		} else {
			cmd.Command = strings.TrimSpace(string(payload))
		}
	}

	cmd.Command = strings.ToLower(strings.TrimSpace(cmd.Command))
	if cmd.Command == "" {
		log.Printf("Empty command payload on %s, skipping", msg.Topic())
		return
	}

	switch cmd.Command {
	case "reset", "flatten", "regenerate":
		log.Printf("Received command: %s", cmd.Command)
	default:
		log.Printf("Unknown command %q on %s, ignoring", cmd.Command, msg.Topic())
		return
	}

	handler := c.getCommandHandler()
	if handler != nil {
		handler(cmd.Command, cmd.Seed)
	}
}

// SetCommandHandler registers a callback invoked for each recognized command
func (c *MQTTClient) SetCommandHandler(handler CommandHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commandHandler = handler
}

func (c *MQTTClient) getCommandHandler() CommandHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.commandHandler
}

// IsConnected returns true if the MQTT client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect gracefully closes the MQTT connection
func (c *MQTTClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		log.Println("Disconnecting from MQTT broker...")
		c.client.Disconnect(250) // 250ms quiesce time
		c.setConnected(false)
	}
}

// GetClient returns the underlying MQTT client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// publishPrefix resolves the telemetry topic prefix from env or config.
func publishPrefix(config *Config) string {
	prefix := os.Getenv("MQTT_PUBLISH_PREFIX")
	if prefix == "" && config != nil && config.MQTT.PublishPrefix != "" {
		prefix = config.MQTT.PublishPrefix
	}
	if prefix == "" {
		prefix = "tiltmaze"
	}
	return prefix
}

// newMQTTClientWithMock creates an MQTTClient with a provided mqtt.Client
// This is used for testing with mock clients
func newMQTTClientWithMock(client mqtt.Client, config *Config, handler CommandHandler) *MQTTClient {
	return &MQTTClient{
		client:         client,
		config:         config,
		commandHandler: handler,
	}
}
