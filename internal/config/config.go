// Package config holds the songbird CLI configuration.
package config

import (
	"bytes"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the YAML document read from --config.
type Config struct {
	Log     Log     `yaml:"log"`
	Storage Storage `yaml:"storage"`
	Channel Channel `yaml:"channel"`
}

// Log configures the zap logger.
type Log struct {
	Level string `yaml:"level"`
}

// Storage configures the blob store.
type Storage struct {
	Root        string `yaml:"root"`
	Compression bool   `yaml:"compression"`
}

// Channel configures the echo service and client.
type Channel struct {
	Address      string        `yaml:"address"`
	NonBlocking  bool          `yaml:"non_blocking"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxFrameSize int           `yaml:"max_frame_size"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:     Log{Level: "info"},
		Storage: Storage{Root: "songbird-data"},
		Channel: Channel{
			Address:      "127.0.0.1:7070",
			PollInterval: 5 * time.Millisecond,
			MaxFrameSize: 1 << 20,
		},
	}
}

// Load reads path from fs over the defaults. Unknown keys are rejected.
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := Default()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrapf(err, "log.level")
	}
	if c.Storage.Root == "" {
		return errors.New("storage.root is empty")
	}
	if c.Channel.Address == "" {
		return errors.New("channel.address is empty")
	}
	if c.Channel.PollInterval <= 0 {
		return errors.Newf("channel.poll_interval %s must be positive", c.Channel.PollInterval)
	}
	if c.Channel.MaxFrameSize <= 0 {
		return errors.Newf("channel.max_frame_size %d must be positive", c.Channel.MaxFrameSize)
	}
	return nil
}
