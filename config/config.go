// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/ringplayer/ringplayer/constant"
	"github.com/ringplayer/ringplayer/filesystem"
	"github.com/ringplayer/ringplayer/key"
	"github.com/ringplayer/ringplayer/where"
	"github.com/spf13/viper"
)

// EnvKeyReplacer is a strings.Replacer used to normalize configuration keys into environment variable naming conventions.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup initializes the global configuration state, including defaults, environment bindings, and localized file resolution.
func Setup() error {
	viper.SetConfigName(constant.Ringplayer)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.Ringplayer)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return err
	}

	return nil
}

// Playback is the typed view of the settings a playback session is built from.
type Playback struct {
	Backend       string
	PlayWhenReady bool
	HWDec         string
	MinBuffer     time.Duration
	MinRebuffer   time.Duration
	SeekForward   time.Duration
	SeekBackward  time.Duration
	Resume        bool
	SegmentSize   int
	SegmentCount  int
	UserAgent     string
}

// LoadPlayback reads the playback settings from the active configuration.
// Non-positive buffer settings fall back to their registered defaults.
func LoadPlayback() Playback {
	p := Playback{
		Backend:       viper.GetString(key.PlayerBackend),
		PlayWhenReady: viper.GetBool(key.PlayerPlayWhenReady),
		HWDec:         viper.GetString(key.PlayerHWDec),
		MinBuffer:     millis(key.PlayerMinBufferMs),
		MinRebuffer:   millis(key.PlayerMinRebufferMs),
		SeekForward:   millis(key.PlayerSeekForwardMs),
		SeekBackward:  millis(key.PlayerSeekBackwardMs),
		Resume:        viper.GetBool(key.PlayerResume),
		SegmentSize:   positive(key.BufferSegmentSize),
		SegmentCount:  positive(key.BufferSegmentCount),
		UserAgent:     viper.GetString(key.NetworkUserAgent),
	}

	if p.Backend == "" {
		p.Backend = Default[key.PlayerBackend].Value.(string)
	}
	if p.UserAgent == "" {
		p.UserAgent = constant.UserAgent
	}

	return p
}

func millis(k string) time.Duration {
	return time.Duration(viper.GetInt(k)) * time.Millisecond
}

func positive(k string) int {
	if v := viper.GetInt(k); v > 0 {
		return v
	}
	return Default[k].Value.(int)
}
