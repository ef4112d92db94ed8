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

package verify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemapin/internal/core"
	"schemapin/internal/discovery"
	"schemapin/internal/pinstore/memory"
	"schemapin/internal/revocation"
	"schemapin/internal/signing"
	"schemapin/internal/skill"
)

func TestVerifySchemaOffline_FirstUseThenPinned(t *testing.T) {
	keys := signing.NewKeyManager()
	priv, err := keys.GenerateKeypair()
	require.NoError(t, err)

	pubPEM, err := keys.ExportPublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)

	disc := discovery.BuildWellKnown(discovery.Options{
		PublicKeyPEM:  pubPEM,
		DeveloperName: "Acme Corp",
	})

	schema := map[string]any{"name": "get_weather", "parameters": map[string]any{"city": "string"}}
	hash, err := core.CanonicalizeAndHash(schema)
	require.NoError(t, err)

	sig := signing.NewSignatureManager()
	sigB64, err := sig.SignSchemaHash(hash[:], priv)
	require.NoError(t, err)

	store, err := memory.New(context.Background())
	require.NoError(t, err)

	result := VerifySchemaOffline(context.Background(), store, schema, sigB64, "acme.example.com", "get_weather", disc, nil, nil, nil)
	require.True(t, result.Valid)
	assert.Equal(t, "first_use", result.KeyPinning.Status)

	result2 := VerifySchemaOffline(context.Background(), store, schema, sigB64, "acme.example.com", "get_weather", disc, nil, nil, nil)
	require.True(t, result2.Valid)
	assert.Equal(t, "pinned", result2.KeyPinning.Status)
}

func TestVerifySchemaOffline_KeyPinMismatch(t *testing.T) {
	keys := signing.NewKeyManager()
	priv1, err := keys.GenerateKeypair()
	require.NoError(t, err)
	priv2, err := keys.GenerateKeypair()
	require.NoError(t, err)

	pubPEM1, err := keys.ExportPublicKeyPEM(&priv1.PublicKey)
	require.NoError(t, err)
	pubPEM2, err := keys.ExportPublicKeyPEM(&priv2.PublicKey)
	require.NoError(t, err)

	schema := map[string]any{"name": "get_weather"}
	hash, err := core.CanonicalizeAndHash(schema)
	require.NoError(t, err)

	sig := signing.NewSignatureManager()
	sigB64, err := sig.SignSchemaHash(hash[:], priv1)
	require.NoError(t, err)

	store, err := memory.New(context.Background())
	require.NoError(t, err)

	disc1 := discovery.BuildWellKnown(discovery.Options{PublicKeyPEM: pubPEM1})
	result := VerifySchemaOffline(context.Background(), store, schema, sigB64, "acme.example.com", "get_weather", disc1, nil, nil, nil)
	require.True(t, result.Valid)

	disc2 := discovery.BuildWellKnown(discovery.Options{PublicKeyPEM: pubPEM2})
	result2 := VerifySchemaOffline(context.Background(), store, schema, sigB64, "acme.example.com", "get_weather", disc2, nil, nil, nil)
	assert.False(t, result2.Valid)
	assert.Equal(t, ErrKeyPinMismatch, result2.ErrorCode)
}

func TestVerifySchemaOffline_InvalidSignature(t *testing.T) {
	keys := signing.NewKeyManager()
	priv, err := keys.GenerateKeypair()
	require.NoError(t, err)

	pubPEM, err := keys.ExportPublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)

	disc := discovery.BuildWellKnown(discovery.Options{PublicKeyPEM: pubPEM})

	schema := map[string]any{"name": "get_weather"}
	store, err := memory.New(context.Background())
	require.NoError(t, err)

	result := VerifySchemaOffline(context.Background(), store, schema, "not-a-valid-signature", "acme.example.com", "get_weather", disc, nil, nil, nil)
	assert.False(t, result.Valid)
	assert.Equal(t, ErrSignatureInvalid, result.ErrorCode)
}

func TestVerifySchemaOffline_RevokedKey(t *testing.T) {
	keys := signing.NewKeyManager()
	priv, err := keys.GenerateKeypair()
	require.NoError(t, err)

	pubPEM, err := keys.ExportPublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)

	fingerprint, err := keys.CalculateKeyFingerprintFromPEM(pubPEM)
	require.NoError(t, err)

	disc := discovery.BuildWellKnown(discovery.Options{
		PublicKeyPEM: pubPEM,
		RevokedKeys:  []string{fingerprint},
	})

	schema := map[string]any{"name": "get_weather"}
	hash, err := core.CanonicalizeAndHash(schema)
	require.NoError(t, err)

	sig := signing.NewSignatureManager()
	sigB64, err := sig.SignSchemaHash(hash[:], priv)
	require.NoError(t, err)

	store, err := memory.New(context.Background())
	require.NoError(t, err)

	result := VerifySchemaOffline(context.Background(), store, schema, sigB64, "acme.example.com", "get_weather", disc, nil, nil, nil)
	assert.False(t, result.Valid)
	assert.Equal(t, ErrKeyRevoked, result.ErrorCode)
}

func TestVerifySchemaOffline_StandaloneRevocationDocument(t *testing.T) {
	keys := signing.NewKeyManager()
	priv, err := keys.GenerateKeypair()
	require.NoError(t, err)

	pubPEM, err := keys.ExportPublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)

	fingerprint, err := keys.CalculateKeyFingerprintFromPEM(pubPEM)
	require.NoError(t, err)

	disc := discovery.BuildWellKnown(discovery.Options{PublicKeyPEM: pubPEM})

	rev := revocation.BuildDocument("acme.example.com", "2026-01-01T00:00:00Z")
	rev.AddRevokedKey(fingerprint, "2026-01-01T00:00:00Z", revocation.ReasonKeyCompromise)

	schema := map[string]any{"name": "get_weather"}
	hash, err := core.CanonicalizeAndHash(schema)
	require.NoError(t, err)

	sig := signing.NewSignatureManager()
	sigB64, err := sig.SignSchemaHash(hash[:], priv)
	require.NoError(t, err)

	store, err := memory.New(context.Background())
	require.NoError(t, err)

	result := VerifySchemaOffline(context.Background(), store, schema, sigB64, "acme.example.com", "get_weather", disc, rev, nil, nil)
	assert.False(t, result.Valid)
	assert.Equal(t, ErrKeyRevoked, result.ErrorCode)
}

func TestVerifySchemaOffline_InvalidDiscovery(t *testing.T) {
	store, err := memory.New(context.Background())
	require.NoError(t, err)

	result := VerifySchemaOffline(context.Background(), store, map[string]any{}, "sig", "acme.example.com", "tool", nil, nil, nil, nil)
	assert.False(t, result.Valid)
	assert.Equal(t, ErrDiscoveryInvalid, result.ErrorCode)

	badDisc := &discovery.WellKnownResponse{SchemaVersion: "1.3", PublicKeyPEM: "not-a-pem"}
	result2 := VerifySchemaOffline(context.Background(), store, map[string]any{}, "sig", "acme.example.com", "tool", badDisc, nil, nil, nil)
	assert.False(t, result2.Valid)
	assert.Equal(t, ErrDiscoveryInvalid, result2.ErrorCode)
}

func writeSkillFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, contents := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(contents), 0o644))
	}
}

func TestVerifySkillOffline_ValidSkill(t *testing.T) {
	keys := signing.NewKeyManager()
	priv, err := keys.GenerateKeypair()
	require.NoError(t, err)

	pubPEM, err := keys.ExportPublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)

	disc := discovery.BuildWellKnown(discovery.Options{PublicKeyPEM: pubPEM})

	dir := t.TempDir()
	writeSkillFiles(t, dir, map[string]string{
		"SKILL.md":      "# weather skill\n",
		"scripts/run.py": "print('hello')\n",
	})

	rootHash, manifest, err := skill.CanonicalizeSkill(dir)
	require.NoError(t, err)

	sigMgr := signing.NewSignatureManager()
	sigB64, err := sigMgr.SignSchemaHash(rootHash[:], priv)
	require.NoError(t, err)

	sig := &skill.Signature{
		SchemaPinVersion: "1.3",
		SkillName:        "weather",
		SignatureB64:     sigB64,
		Domain:           "acme.example.com",
		FileManifest:     manifest,
	}

	store, err := memory.New(context.Background())
	require.NoError(t, err)

	result := VerifySkillOffline(context.Background(), store, dir, sig, "weather", disc, nil, nil, nil)
	require.True(t, result.Valid)
	assert.Equal(t, "first_use", result.KeyPinning.Status)
}

func TestVerifySkillOffline_TamperedFile(t *testing.T) {
	keys := signing.NewKeyManager()
	priv, err := keys.GenerateKeypair()
	require.NoError(t, err)

	pubPEM, err := keys.ExportPublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)

	disc := discovery.BuildWellKnown(discovery.Options{PublicKeyPEM: pubPEM})

	dir := t.TempDir()
	writeSkillFiles(t, dir, map[string]string{"SKILL.md": "original content\n"})

	rootHash, manifest, err := skill.CanonicalizeSkill(dir)
	require.NoError(t, err)

	sigMgr := signing.NewSignatureManager()
	sigB64, err := sigMgr.SignSchemaHash(rootHash[:], priv)
	require.NoError(t, err)

	sig := &skill.Signature{
		SignatureB64: sigB64,
		Domain:       "acme.example.com",
		FileManifest: manifest,
	}

	writeSkillFiles(t, dir, map[string]string{"SKILL.md": "tampered content\n"})

	store, err := memory.New(context.Background())
	require.NoError(t, err)

	result := VerifySkillOffline(context.Background(), store, dir, sig, "weather", disc, nil, nil, nil)
	assert.False(t, result.Valid)
	assert.Equal(t, ErrSignatureInvalid, result.ErrorCode)

	report := skill.DetectTamperedFiles(func() map[string]string {
		_, m, err := skill.CanonicalizeSkill(dir)
		require.NoError(t, err)
		return m
	}(), manifest)
	assert.Contains(t, report.Modified, "SKILL.md")
}

func TestVerifySkillOffline_EmptySkillDirectory(t *testing.T) {
	keys := signing.NewKeyManager()
	priv, err := keys.GenerateKeypair()
	require.NoError(t, err)

	pubPEM, err := keys.ExportPublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)

	disc := discovery.BuildWellKnown(discovery.Options{PublicKeyPEM: pubPEM})

	dir := t.TempDir()

	sig := &skill.Signature{
		SignatureB64: "irrelevant",
		Domain:       "acme.example.com",
		FileManifest: map[string]string{},
	}

	store, err := memory.New(context.Background())
	require.NoError(t, err)

	result := VerifySkillOffline(context.Background(), store, dir, sig, "weather", disc, nil, nil, nil)
	assert.False(t, result.Valid)
	assert.Equal(t, ErrSchemaCanonicalizationFailed, result.ErrorCode)
}

type fakeResolver struct {
	disc *discovery.WellKnownResponse
	rev  *revocation.Document
	err  error
}

func (f *fakeResolver) ResolveDiscovery(_ context.Context, _ string) (*discovery.WellKnownResponse, error) {
	return f.disc, f.err
}

func (f *fakeResolver) ResolveRevocation(_ context.Context, _ string, _ *discovery.WellKnownResponse) (*revocation.Document, error) {
	return f.rev, nil
}

func TestVerifySchemaWithResolver_DiscoveryFetchFailed(t *testing.T) {
	store, err := memory.New(context.Background())
	require.NoError(t, err)

	r := &fakeResolver{err: assert.AnError}
	result := VerifySchemaWithResolver(context.Background(), store, map[string]any{}, "sig", "acme.example.com", "tool", r, nil, nil)
	assert.False(t, result.Valid)
	assert.Equal(t, ErrDiscoveryFetchFailed, result.ErrorCode)
}

func TestVerifySchemaWithResolver_Success(t *testing.T) {
	keys := signing.NewKeyManager()
	priv, err := keys.GenerateKeypair()
	require.NoError(t, err)

	pubPEM, err := keys.ExportPublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)

	disc := discovery.BuildWellKnown(discovery.Options{PublicKeyPEM: pubPEM})

	schema := map[string]any{"name": "get_weather"}
	hash, err := core.CanonicalizeAndHash(schema)
	require.NoError(t, err)

	sigMgr := signing.NewSignatureManager()
	sigB64, err := sigMgr.SignSchemaHash(hash[:], priv)
	require.NoError(t, err)

	store, err := memory.New(context.Background())
	require.NoError(t, err)

	r := &fakeResolver{disc: disc}
	result := VerifySchemaWithResolver(context.Background(), store, schema, sigB64, "acme.example.com", "get_weather", r, nil, nil)
	require.True(t, result.Valid)
}
