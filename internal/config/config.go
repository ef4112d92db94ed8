/*
Copyright © 2025 Denis Khalturin
All rights reserved.

Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are met:

1. Redistributions of source code must retain the above copyright notice,
   this list of conditions and the following disclaimer.

2. Redistributions in binary form must reproduce the above copyright notice,
   this list of conditions and the following disclaimer in the documentation
   and/or other materials provided with the distribution.

3. Neither the name of the copyright holder nor the names of its contributors
   may be used to endorse or promote products derived from this software
   without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
POSSIBILITY OF SUCH DAMAGE.
*/
// prettier-ignore-end
package config

import (
	"fmt"
	"log/slog"
	"time"

	"schemapin/internal/pinstore/types"
	"schemapin/internal/policy"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config represents the main application configuration structure.
// It contains all settings for the signing key, pin-store backend,
// discovery/revocation server, interactive pinning policy, and logging.
// UUID is generated automatically for each application instance.
type Config struct {
	Discovery ConfigDiscovery `mapstructure:"discovery"`
	Log       ConfigLog       `mapstructure:"log"`
	Pinning   ConfigPinning   `mapstructure:"pinning"`
	Server    ConfigServer    `mapstructure:"server"`
	Signing   ConfigSigning   `mapstructure:"signing"`
	Store     ConfigStore     `mapstructure:"store"`
	UUID      uuid.UUID
}

// ConfigLog defines logging configuration for the application.
// It controls log output format, verbosity level, and pretty-printing options.
type ConfigLog struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// ConfigServer defines HTTP server configuration parameters for the
// discovery/revocation/skill-signature server (`schemapin serve`).
type ConfigServer struct {
	Listen       string        `mapstructure:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ConfigSigning defines the signing identity served through the
// .well-known discovery document. `schemapin sign` does not read it; it
// takes its key from the --key flag.
type ConfigSigning struct {
	DeveloperName string `mapstructure:"developer_name"`
	Domain        string `mapstructure:"domain"`
	PrivateKey    string `mapstructure:"private_key"`
	PublicKey     string `mapstructure:"public_key"`
}

// ConfigDiscovery defines where the revocation document that the discovery
// endpoint advertises is sourced from, and where signed skill directories
// served under /skills/{name}/.schemapin.sig live.
type ConfigDiscovery struct {
	Contact        string `mapstructure:"contact"`
	RevocationFile string `mapstructure:"revocation_file"`
	SchemaVersion  string `mapstructure:"schema_version"`
	SkillsDir      string `mapstructure:"skills_dir"`
}

// ConfigPinning selects the pinning policy mode and per-domain overrides
// that `schemapin verify` seeds its policy engine with on every run;
// --interactive overrides the mode for that run.
type ConfigPinning struct {
	Mode    policy.Mode                    `mapstructure:"mode"`
	Domains map[string]policy.DomainPolicy `mapstructure:"domains"`
}

// ConfigStore defines the pin-store backend configuration.
// It includes connection parameters (DSN), dump directory for file-based
// persistence, periodic dump interval, and storage type (memory,
// filesystem, redis, postgres).
type ConfigStore struct {
	ConnMaxIdleTime time.Duration     `mapstructure:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration     `mapstructure:"conn_max_lifetime"`
	DSN             string            `mapstructure:"dsn"`
	DumpDir         string            `mapstructure:"dump_dir"`
	DumpInterval    time.Duration     `mapstructure:"dump_interval"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	Type            types.StorageType `mapstructure:"type"`
}

// New loads application configuration from viper.
// It unmarshals configuration from file/environment, applies defaults for
// the pinning mode, discovery schema version and store type when unset
// (values are not otherwise validated), and generates
// a unique UUID for the application instance.
// Returns an error if unmarshaling fails.
func New() (Config, error) {
	config := Config{
		UUID: uuid.New(),
	}

	if err := viper.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Pinning.Mode == "" {
		config.Pinning.Mode = policy.ModeAutomatic
	}

	if config.Discovery.SchemaVersion == "" {
		config.Discovery.SchemaVersion = "1.3"
	}

	if config.Store.Type == "" {
		config.Store.Type = types.StorageTypeMemory
	}

	slog.Debug("configuration loaded", "config", config)

	return config, nil
}
