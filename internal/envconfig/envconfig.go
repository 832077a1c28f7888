// SPDX-License-Identifier: EPL-2.0

// Package envconfig builds a mixer configuration from AUDMIX_* environment
// variables, optionally loaded from a .env file.
package envconfig

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"

	"github.com/ik5/audmix/mixer"
)

const (
	SampleRate     = "AUDMIX_SAMPLE_RATE"
	BlockFrames    = "AUDMIX_BLOCK_FRAMES"
	NumSources     = "AUDMIX_NUM_SOURCES"
	NumWorkers     = "AUDMIX_NUM_WORKERS"
	FlushTimeoutMs = "AUDMIX_FLUSH_TIMEOUT_MS"
	Synchronous    = "AUDMIX_SYNCHRONOUS"
	Debug          = "AUDMIX_DEBUG"
	OutputChannels = "AUDMIX_OUTPUT_CHANNELS"
)

// Load reads envFile into the environment, fills unset variables with the
// mixer defaults and returns the resulting configuration. Variables already
// in the environment win over the file. A missing file is not an error.
func Load(ctx context.Context, envFile string) (mixer.Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return mixer.Config{}, errors.Wrapf(err, "load %v", envFile)
			}
		} else if !os.IsNotExist(err) {
			return mixer.Config{}, errors.Wrapf(err, "stat %v", envFile)
		}
	}

	def := mixer.DefaultConfig()
	setEnvDefault(SampleRate, strconv.Itoa(def.SampleRate))
	setEnvDefault(BlockFrames, strconv.Itoa(def.NumOutputFrames))
	setEnvDefault(NumSources, strconv.Itoa(def.NumSources))
	setEnvDefault(NumWorkers, strconv.Itoa(def.NumWorkers))
	setEnvDefault(FlushTimeoutMs, strconv.FormatInt(def.FlushTimeout.Milliseconds(), 10))
	setEnvDefault(Synchronous, strconv.FormatBool(def.Synchronous))
	setEnvDefault(Debug, strconv.FormatBool(def.Debug))
	setEnvDefault(OutputChannels, strconv.Itoa(def.OutputChannels))

	cfg := def
	var err error
	if cfg.SampleRate, err = envInt(SampleRate); err != nil {
		return cfg, err
	}
	if cfg.NumOutputFrames, err = envInt(BlockFrames); err != nil {
		return cfg, err
	}
	if cfg.NumSources, err = envInt(NumSources); err != nil {
		return cfg, err
	}
	if cfg.NumWorkers, err = envInt(NumWorkers); err != nil {
		return cfg, err
	}
	if cfg.OutputChannels, err = envInt(OutputChannels); err != nil {
		return cfg, err
	}
	ms, err := envInt(FlushTimeoutMs)
	if err != nil {
		return cfg, err
	}
	cfg.FlushTimeout = time.Duration(ms) * time.Millisecond
	if cfg.Synchronous, err = envBool(Synchronous); err != nil {
		return cfg, err
	}
	if cfg.Debug, err = envBool(Debug); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "env config")
	}
	logger.Tf(ctx, "load env as %v=%v, %v=%v, %v=%v, %v=%v, %v=%v, %v=%v, %v=%v, %v=%v",
		SampleRate, cfg.SampleRate, BlockFrames, cfg.NumOutputFrames, NumSources, cfg.NumSources,
		NumWorkers, cfg.NumWorkers, FlushTimeoutMs, ms, Synchronous, cfg.Synchronous,
		Debug, cfg.Debug, OutputChannels, cfg.OutputChannels)
	return cfg, nil
}

// setEnvDefault set env key=value if not set.
func setEnvDefault(key, value string) {
	if os.Getenv(key) == "" {
		os.Setenv(key, value)
	}
}

func envInt(key string) (int, error) {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0, errors.Wrapf(err, "parse %v", key)
	}
	return v, nil
}

func envBool(key string) (bool, error) {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return false, errors.Wrapf(err, "parse %v", key)
	}
	return v, nil
}
