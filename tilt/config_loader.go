package tilt

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the configuration from a YAML file. Fields omitted in
// the file fall back to DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ValidateConfig rejects configurations the simulation cannot run on.
func ValidateConfig(c *Config) error {
	if c.Maze.Width < 1 || c.Maze.Height < 1 {
		return fmt.Errorf("maze dimensions must be at least 1x1, got %dx%d", c.Maze.Width, c.Maze.Height)
	}
	if c.Sheet.Width <= 0 || c.Sheet.Height <= 0 {
		return fmt.Errorf("sheet dimensions must be positive, got %gx%g", c.Sheet.Width, c.Sheet.Height)
	}
	if c.Sheet.WallThickness <= 0 {
		return fmt.Errorf("sheet.wallThickness must be positive, got %g", c.Sheet.WallThickness)
	}
	if c.Ball.Radius <= 0 {
		return fmt.Errorf("ball.radius must be positive, got %g", c.Ball.Radius)
	}
	if 2*c.Ball.Radius >= c.Sheet.Width/float64(c.Maze.Width) ||
		2*c.Ball.Radius >= c.Sheet.Height/float64(c.Maze.Height) {
		return fmt.Errorf("ball diameter %g does not fit in a maze cell", 2*c.Ball.Radius)
	}
	if c.Smoothing.Alpha <= 0 || c.Smoothing.Alpha > 1 {
		return fmt.Errorf("smoothing.alpha must be in (0,1], got %g", c.Smoothing.Alpha)
	}
	if c.Physics.Deadzone < 0 || c.Physics.Deadzone >= 1 {
		return fmt.Errorf("physics.deadzone must be in [0,1), got %g", c.Physics.Deadzone)
	}
	if c.Physics.Bounce < 0 || c.Physics.Bounce > 1 {
		return fmt.Errorf("physics.bounce must be in [0,1], got %g", c.Physics.Bounce)
	}
	if c.Physics.Damping <= 0 || c.Physics.Damping > 1 {
		return fmt.Errorf("physics.damping must be in (0,1], got %g", c.Physics.Damping)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return fmt.Errorf("camera clip planes invalid: near=%g far=%g", c.Camera.Near, c.Camera.Far)
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
