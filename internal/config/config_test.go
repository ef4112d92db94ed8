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
	"testing"
	"time"

	"schemapin/internal/pinstore/types"
	"schemapin/internal/policy"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		setupViper   func()
		wantErr      bool
		validateFunc func(t *testing.T, cfg Config)
	}{
		{
			name: "valid config with all fields",
			setupViper: func() {
				viper.Reset()
				viper.Set("signing.domain", "acme.example.com")
				viper.Set("signing.developer_name", "Acme Corp")
				viper.Set("signing.private_key", "/etc/schemapin/priv.pem")
				viper.Set("signing.public_key", "/etc/schemapin/pub.pem")
				viper.Set("discovery.revocation_file", "/etc/schemapin/revocation.json")
				viper.Set("discovery.schema_version", "1.3")
				viper.Set("log.format", "json")
				viper.Set("log.level", "info")
				viper.Set("log.pretty", false)
				viper.Set("server.listen", "127.0.0.1:8080")
				viper.Set("server.read_timeout", "5s")
				viper.Set("server.write_timeout", "10s")
				viper.Set("store.conn_max_idle_time", "30s")
				viper.Set("store.conn_max_lifetime", "1h")
				viper.Set("store.dsn", "postgres://localhost:5432/schemapin")
				viper.Set("store.dump_dir", "/tmp")
				viper.Set("store.dump_interval", "15s")
				viper.Set("store.max_idle_conns", 10)
				viper.Set("store.max_open_conns", 100)
				viper.Set("store.type", "postgres")
				viper.Set("pinning.mode", "interactive")
				viper.Set("pinning.domains", map[string]interface{}{
					"trusted.example.com": "always_trust",
				})
			},
			wantErr: false,
			validateFunc: func(t *testing.T, cfg Config) {
				assert.Equal(t, "acme.example.com", cfg.Signing.Domain)
				assert.Equal(t, "Acme Corp", cfg.Signing.DeveloperName)
				assert.Equal(t, "/etc/schemapin/priv.pem", cfg.Signing.PrivateKey)
				assert.Equal(t, "/etc/schemapin/pub.pem", cfg.Signing.PublicKey)
				assert.Equal(t, "/etc/schemapin/revocation.json", cfg.Discovery.RevocationFile)
				assert.Equal(t, "1.3", cfg.Discovery.SchemaVersion)
				assert.Equal(t, "127.0.0.1:8080", cfg.Server.Listen)
				assert.Equal(t, "info", cfg.Log.Level)
				assert.Equal(t, "json", cfg.Log.Format)
				assert.Equal(t, "postgres://localhost:5432/schemapin", cfg.Store.DSN)
				assert.Equal(t, 1*time.Hour, cfg.Store.ConnMaxLifetime)
				assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 10, cfg.Store.MaxIdleConns)
				assert.Equal(t, 100, cfg.Store.MaxOpenConns)
				assert.Equal(t, 30*time.Second, cfg.Store.ConnMaxIdleTime)
				assert.Equal(t, 15*time.Second, cfg.Store.DumpInterval)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, types.StorageTypePostgres, cfg.Store.Type)
				assert.Equal(t, policy.ModeInteractive, cfg.Pinning.Mode)
				assert.Equal(t, policy.PolicyAlwaysTrust, cfg.Pinning.Domains["trusted.example.com"])
				assert.False(t, cfg.Log.Pretty)
				assert.NotEqual(t, "", cfg.UUID.String())
			},
		},
		{
			name: "defaults applied when pinning mode unset",
			setupViper: func() {
				viper.Reset()
				viper.Set("signing.domain", "test.com")
			},
			wantErr: false,
			validateFunc: func(t *testing.T, cfg Config) {
				assert.Equal(t, policy.ModeAutomatic, cfg.Pinning.Mode)
			},
		},
		{
			name: "defaults applied when discovery schema version unset",
			setupViper: func() {
				viper.Reset()
				viper.Set("signing.domain", "test.com")
			},
			wantErr: false,
			validateFunc: func(t *testing.T, cfg Config) {
				assert.Equal(t, "1.3", cfg.Discovery.SchemaVersion)
			},
		},
		{
			name: "defaults applied when store type unset",
			setupViper: func() {
				viper.Reset()
			},
			wantErr: false,
			validateFunc: func(t *testing.T, cfg Config) {
				assert.Equal(t, types.StorageTypeMemory, cfg.Store.Type)
			},
		},
		{
			name: "explicit store type preserved",
			setupViper: func() {
				viper.Reset()
				viper.Set("store.type", "redis")
			},
			wantErr: false,
			validateFunc: func(t *testing.T, cfg Config) {
				assert.Equal(t, types.StorageTypeRedis, cfg.Store.Type)
			},
		},
		{
			name: "empty config",
			setupViper: func() {
				viper.Reset()
			},
			wantErr: false,
			validateFunc: func(t *testing.T, cfg Config) {
				assert.NotEqual(t, "", cfg.UUID.String())
				assert.Equal(t, policy.ModeAutomatic, cfg.Pinning.Mode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupViper()

			cfg, err := New()

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				if tt.validateFunc != nil {
					tt.validateFunc(t, cfg)
				}
			}
		})
	}
}

func TestConfig_UUIDGeneration(t *testing.T) {
	viper.Reset()

	cfg1, err1 := New()
	require.NoError(t, err1)

	cfg2, err2 := New()
	require.NoError(t, err2)

	assert.NotEqual(t, cfg1.UUID, cfg2.UUID)
	assert.NotEmpty(t, cfg1.UUID.String())
	assert.NotEmpty(t, cfg2.UUID.String())
}
