package tilt

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}
	return path
}

func TestLoadConfig_NotExists(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file, got nil")
	}
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := DefaultConfig()
	if cfg.Maze != want.Maze || cfg.Sheet != want.Sheet || cfg.Physics != want.Physics {
		t.Errorf("empty config should equal defaults, got %+v", cfg)
	}
}

func TestLoadConfig_PartialOverride(t *testing.T) {
	body := `maze:
  width: 12
  height: 9
  seed: 7
physics:
  deadzone: 0.05
`
	cfg, err := LoadConfig(writeConfig(t, body))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Maze.Width != 12 || cfg.Maze.Height != 9 || cfg.Maze.Seed != 7 {
		t.Errorf("maze override lost: %+v", cfg.Maze)
	}
	if cfg.Physics.Deadzone != 0.05 {
		t.Errorf("physics.deadzone = %v, want 0.05", cfg.Physics.Deadzone)
	}
	// Untouched fields keep their defaults.
	if cfg.Physics.Gravity != 9.81 {
		t.Errorf("physics.gravity = %v, want default 9.81", cfg.Physics.Gravity)
	}
	if cfg.Sheet.Width != 0.297 {
		t.Errorf("sheet.width = %v, want default 0.297", cfg.Sheet.Width)
	}
}

func TestLoadConfig_MQTT(t *testing.T) {
	body := `mqtt:
  broker: tcp://localhost:1883
  publishPrefix: maze-demo
  clientId: tiltmaze-test
`
	cfg, err := LoadConfig(writeConfig(t, body))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("mqtt.broker = %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.PublishPrefix != "maze-demo" {
		t.Errorf("mqtt.publishPrefix = %q", cfg.MQTT.PublishPrefix)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero maze width", func(c *Config) { c.Maze.Width = 0 }},
		{"negative maze height", func(c *Config) { c.Maze.Height = -2 }},
		{"zero sheet width", func(c *Config) { c.Sheet.Width = 0 }},
		{"zero wall thickness", func(c *Config) { c.Sheet.WallThickness = 0 }},
		{"zero ball radius", func(c *Config) { c.Ball.Radius = 0 }},
		{"ball bigger than cell", func(c *Config) { c.Ball.Radius = 0.05 }},
		{"alpha zero", func(c *Config) { c.Smoothing.Alpha = 0 }},
		{"alpha above one", func(c *Config) { c.Smoothing.Alpha = 1.5 }},
		{"deadzone one", func(c *Config) { c.Physics.Deadzone = 1.0 }},
		{"negative deadzone", func(c *Config) { c.Physics.Deadzone = -0.1 }},
		{"bounce above one", func(c *Config) { c.Physics.Bounce = 1.2 }},
		{"damping zero", func(c *Config) { c.Physics.Damping = 0 }},
		{"far before near", func(c *Config) { c.Camera.Near = 10; c.Camera.Far = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := ValidateConfig(cfg); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}

	if err := ValidateConfig(DefaultConfig()); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Maze.Width = 10
	cfg.MQTT.Broker = "tcp://broker:1883"

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Maze.Width != 10 || got.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("round trip lost fields: %+v", got)
	}
}
