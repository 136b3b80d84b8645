// Package config loads daemon configuration from the environment.
// Values come from, in order of precedence: environment variables, a .env
// file in the working directory, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/sweeney/irm-lightbulb/internal/gpio"
)

// Environment variable names.
const (
	KeyLightbulbType = "LIGHTBULB_TYPE"
	KeyGPIOPin       = "GPIO_PIN"
	KeyGPIOChip      = "GPIO_CHIP"
	KeyWebhookSecret = "WEBHOOK_SECRET"
	KeyHost          = "HOST"
	KeyPort          = "PORT"
	KeyDebug         = "DEBUG"
	KeyMQTTBroker    = "MQTT_BROKER"
	KeyMQTTTopic     = "MQTT_TOPIC"
	KeyMQTTClientID  = "MQTT_CLIENT_ID"
	KeyHeartbeat     = "HEARTBEAT"
)

// Config is the daemon configuration.
type Config struct {
	LightbulbType string
	GPIOPin       int
	GPIOChip      string

	// WebhookSecret is loaded but inbound requests are not verified against it.
	WebhookSecret string

	Host  string
	Port  int
	Debug bool

	// MQTTBroker empty disables MQTT publishing.
	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string

	// Heartbeat is the MQTT status heartbeat interval (0 disables).
	Heartbeat time.Duration
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MQTTEnabled reports whether a broker is configured.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

// Validate rejects values the daemon cannot run with.
func (c Config) Validate() error {
	if c.LightbulbType == "" {
		return errors.New("LIGHTBULB_TYPE must not be empty")
	}
	if c.GPIOPin < 0 {
		return fmt.Errorf("GPIO_PIN must not be negative, got %d", c.GPIOPin)
	}
	if c.GPIOChip == "" {
		return errors.New("GPIO_CHIP must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be 1-65535, got %d", c.Port)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("HEARTBEAT must not be negative, got %v", c.Heartbeat)
	}
	if c.MQTTEnabled() && c.MQTTTopic == "" {
		return errors.New("MQTT_TOPIC must be set when MQTT_BROKER is set")
	}
	return nil
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyLightbulbType, "raspberry_pi")
	v.SetDefault(KeyGPIOPin, gpio.DefaultPin)
	v.SetDefault(KeyGPIOChip, gpio.DefaultChip)
	v.SetDefault(KeyWebhookSecret, "")
	v.SetDefault(KeyHost, "0.0.0.0")
	v.SetDefault(KeyPort, 5000)
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyMQTTBroker, "")
	v.SetDefault(KeyMQTTTopic, "alerts/lightbulb/events")
	v.SetDefault(KeyMQTTClientID, "irm-lightbulb")
	v.SetDefault(KeyHeartbeat, "15m")
	v.AutomaticEnv()
	return v
}

// Load reads an optional .env file from dir (empty for the working
// directory) and the environment.
func Load(dir string) (Config, error) {
	v := New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read .env: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper decodes a Config from v and validates it.
func FromViper(v *viper.Viper) (Config, error) {
	pin, err := strconv.Atoi(v.GetString(KeyGPIOPin))
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", KeyGPIOPin, err)
	}
	port, err := strconv.Atoi(v.GetString(KeyPort))
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", KeyPort, err)
	}
	heartbeat, err := time.ParseDuration(v.GetString(KeyHeartbeat))
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", KeyHeartbeat, err)
	}

	cfg := Config{
		LightbulbType: v.GetString(KeyLightbulbType),
		GPIOPin:       pin,
		GPIOChip:      v.GetString(KeyGPIOChip),
		WebhookSecret: v.GetString(KeyWebhookSecret),
		Host:          v.GetString(KeyHost),
		Port:          port,
		Debug:         v.GetBool(KeyDebug),
		MQTTBroker:    v.GetString(KeyMQTTBroker),
		MQTTTopic:     v.GetString(KeyMQTTTopic),
		MQTTClientID:  v.GetString(KeyMQTTClientID),
		Heartbeat:     heartbeat,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
