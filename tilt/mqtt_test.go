package tilt

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitMQTT_Disabled(t *testing.T) {
	// No MQTT_BROKER env var and no broker in config
	config := DefaultConfig()

	client, err := InitMQTT(config, func(string, int64) {})
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestMQTTClient_IsConnected(t *testing.T) {
	client := &MQTTClient{}
	assert.False(t, client.IsConnected(), "New client should not be connected")

	client.setConnected(true)
	assert.True(t, client.IsConnected())

	client.setConnected(false)
	assert.False(t, client.IsConnected())
}

func TestMQTTClient_CommandTopic(t *testing.T) {
	config := DefaultConfig()
	config.MQTT.PublishPrefix = "maze-demo"

	client := &MQTTClient{config: config}
	assert.Equal(t, "maze-demo/command", client.commandTopic())

	client = &MQTTClient{config: DefaultConfig()}
	assert.Equal(t, "tiltmaze/command", client.commandTopic(), "empty prefix falls back to default")
}

func TestMQTTClient_HandleCommand_JSON(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)

	var gotCommand atomic.Value
	var gotSeed atomic.Int64
	config := DefaultConfig()
	client := newMQTTClientWithMock(mock, config, func(cmd string, seed int64) {
		gotCommand.Store(cmd)
		gotSeed.Store(seed)
	})

	mock.Subscribe(client.commandTopic(), 0, client.handleCommandMessage)

	mock.SimulateMessage(client.commandTopic(), []byte(`{"command":"regenerate","seed":99}`))
	assert.Equal(t, "regenerate", gotCommand.Load())
	assert.Equal(t, int64(99), gotSeed.Load())

	mock.SimulateMessage(client.commandTopic(), []byte(`{"command":"reset"}`))
	assert.Equal(t, "reset", gotCommand.Load())
}

func TestMQTTClient_HandleCommand_PlainText(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)

	var got atomic.Value
	client := newMQTTClientWithMock(mock, DefaultConfig(), func(cmd string, seed int64) {
		got.Store(cmd)
	})
	mock.Subscribe(client.commandTopic(), 0, client.handleCommandMessage)

	mock.SimulateMessage(client.commandTopic(), []byte("flatten"))
	assert.Equal(t, "flatten", got.Load())

	// JSON string form and surrounding whitespace are accepted too.
	mock.SimulateMessage(client.commandTopic(), []byte(`"reset"`))
	assert.Equal(t, "reset", got.Load())

	mock.SimulateMessage(client.commandTopic(), []byte("  FLATTEN \n"))
	assert.Equal(t, "flatten", got.Load())
}

func TestMQTTClient_HandleCommand_Unknown(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)

	called := atomic.Bool{}
	client := newMQTTClientWithMock(mock, DefaultConfig(), func(string, int64) {
		called.Store(true)
	})
	mock.Subscribe(client.commandTopic(), 0, client.handleCommandMessage)

	mock.SimulateMessage(client.commandTopic(), []byte("self-destruct"))
	assert.False(t, called.Load(), "unknown command must not reach the handler")

	mock.SimulateMessage(client.commandTopic(), []byte(""))
	assert.False(t, called.Load(), "empty payload must not reach the handler")
}

func TestMQTTClient_SetCommandHandler(t *testing.T) {
	client := &MQTTClient{config: DefaultConfig()}
	assert.Nil(t, client.getCommandHandler())

	client.SetCommandHandler(func(string, int64) {})
	assert.NotNil(t, client.getCommandHandler())
}
