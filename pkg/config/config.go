package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Политики переполнения очереди подписчика.
const (
	OverflowDropOldest = "drop_oldest"
	OverflowDropNewest = "drop_newest"
)

// ErrInvalid возвращается, если значения конфигурации не проходят проверку.
var ErrInvalid = errors.New("config: invalid value")

// Bus — настройки движка шины.
type Bus struct {
	QueueCapacity int    `mapstructure:"queue_capacity"`
	Overflow      string `mapstructure:"overflow"`
	MaxTopicName  int    `mapstructure:"max_topic_name"`
	MaxTopics     int    `mapstructure:"max_topics"`
	MaxPayload    int    `mapstructure:"max_payload"`
}

// Config — конфигурация демона.
type Config struct {
	Server struct {
		ListenAddr       string `mapstructure:"listen_addr"`
		ShutdownTimeoutS int    `mapstructure:"shutdown_timeout_s"`
	} `mapstructure:"server"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Bus Bus `mapstructure:"bus"`
}

// DefaultBus возвращает настройки шины по умолчанию.
func DefaultBus() Bus {
	return Bus{
		QueueCapacity: 64,
		Overflow:      OverflowDropOldest,
		MaxTopicName:  255,
	}
}

// Validate проверяет значения настроек шины.
func (b Bus) Validate() error {
	switch {
	case b.QueueCapacity < 1:
		return fmt.Errorf("%w: queue_capacity must be at least 1, got %d", ErrInvalid, b.QueueCapacity)
	case b.Overflow != OverflowDropOldest && b.Overflow != OverflowDropNewest:
		return fmt.Errorf("%w: unknown overflow policy %q", ErrInvalid, b.Overflow)
	case b.MaxTopicName < 1:
		return fmt.Errorf("%w: max_topic_name must be at least 1, got %d", ErrInvalid, b.MaxTopicName)
	case b.MaxTopics < 0:
		return fmt.Errorf("%w: max_topics must not be negative", ErrInvalid)
	case b.MaxPayload < 0:
		return fmt.Errorf("%w: max_payload must not be negative", ErrInvalid)
	}
	return nil
}

// Parse разбирает строку конфигурации шины, переданную в Init.
// Пустая строка даёт настройки по умолчанию, строка с '{' читается как JSON,
// всё остальное как YAML. Переменные окружения MBUS_* имеют приоритет.
func Parse(raw string) (Bus, error) {
	v := viper.New()
	setBusDefaults(v, "")
	v.SetEnvPrefix("MBUS")
	v.AutomaticEnv()

	raw = strings.TrimSpace(raw)
	if raw != "" {
		v.SetConfigType(formatOf(raw))
		if err := v.ReadConfig(strings.NewReader(raw)); err != nil {
			return Bus{}, fmt.Errorf("config: parse bus config: %w", err)
		}
	}

	var b Bus
	if err := v.Unmarshal(&b); err != nil {
		return Bus{}, fmt.Errorf("config: decode bus config: %w", err)
	}
	if err := b.Validate(); err != nil {
		return Bus{}, err
	}
	return b, nil
}

// InitConfig читает configs/config.yaml в глобальный viper.
func InitConfig() error {
	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	viper.SetDefault("server.listen_addr", ":50051")
	viper.SetDefault("server.shutdown_timeout_s", 5)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	setBusDefaults(viper.GetViper(), "bus.")
	viper.SetEnvPrefix("MBUSD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	return viper.ReadInConfig()
}

// Load раскладывает прочитанную конфигурацию по структуре.
func Load() (Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Bus.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setBusDefaults(v *viper.Viper, prefix string) {
	d := DefaultBus()
	v.SetDefault(prefix+"queue_capacity", d.QueueCapacity)
	v.SetDefault(prefix+"overflow", d.Overflow)
	v.SetDefault(prefix+"max_topic_name", d.MaxTopicName)
	v.SetDefault(prefix+"max_topics", d.MaxTopics)
	v.SetDefault(prefix+"max_payload", d.MaxPayload)
}

func formatOf(raw string) string {
	if strings.HasPrefix(raw, "{") {
		return "json"
	}
	return "yaml"
}
