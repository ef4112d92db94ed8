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
package cmd

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"schemapin/internal/core"
	"schemapin/internal/signing"
	"schemapin/internal/skill"
)

var (
	signKeyPath string
	signDomain  string
)

// signCmd groups the schema and skill signing subcommands.
var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a schema file or a skill directory",
}

// signSchemaCmd represents the sign schema command
var signSchemaCmd = &cobra.Command{
	Use:   "schema <file>",
	Short: "Canonicalize and sign a tool schema, emitting the signed envelope",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		priv := loadPrivateKeyOrExit(signKeyPath)

		raw, err := os.ReadFile(args[0])
		if err != nil {
			slog.Error("failed to read schema file", "error", err)
			os.Exit(1)
		}

		var schema any
		if err := json.Unmarshal(raw, &schema); err != nil {
			slog.Error("schema file is not valid JSON", "error", err)
			os.Exit(1)
		}

		hash, err := core.CanonicalizeAndHash(schema)
		if err != nil {
			slog.Error("failed to canonicalize schema", "error", err)
			os.Exit(1)
		}

		sigB64, err := signing.NewSignatureManager().SignHash(hash[:], priv)
		if err != nil {
			slog.Error("failed to sign schema", "error", err)
			os.Exit(1)
		}

		envelope := struct {
			Schema    any    `json:"schema"`
			Signature string `json:"signature"`
		}{Schema: schema, Signature: sigB64}

		out, err := json.MarshalIndent(envelope, "", "  ")
		if err != nil {
			slog.Error("failed to marshal signed envelope", "error", err)
			os.Exit(1)
		}

		fmt.Println(string(out))
	},
}

// signSkillCmd represents the sign skill command
var signSkillCmd = &cobra.Command{
	Use:   "skill <dir>",
	Short: "Canonicalize and sign a skill directory, writing .schemapin.sig",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if signDomain == "" {
			slog.Error("--domain is required for skill signing")
			os.Exit(1)
		}

		priv := loadPrivateKeyOrExit(signKeyPath)
		skillDir := args[0]

		rootHash, manifest, err := skill.CanonicalizeSkill(skillDir)
		if err != nil {
			slog.Error("failed to canonicalize skill directory", "error", err)
			os.Exit(1)
		}

		sigB64, err := signing.NewSignatureManager().SignHash(rootHash[:], priv)
		if err != nil {
			slog.Error("failed to sign skill", "error", err)
			os.Exit(1)
		}

		fingerprint, err := signing.NewKeyManager().CalculateKeyFingerprint(&priv.PublicKey)
		if err != nil {
			slog.Error("failed to calculate fingerprint", "error", err)
			os.Exit(1)
		}

		sig := &skill.Signature{
			SchemaPinVersion: "1.3",
			SkillName:        skill.ParseSkillName(skillDir),
			SkillHash:        "sha256:" + hex.EncodeToString(rootHash[:]),
			SignatureB64:     sigB64,
			SignedAt:         time.Now().UTC().Format(time.RFC3339),
			Domain:           signDomain,
			SignerKID:        fingerprint,
			FileManifest:     manifest,
		}

		if err := skill.WriteSignature(skillDir, sig); err != nil {
			slog.Error("failed to write signature manifest", "error", err)
			os.Exit(1)
		}

		fmt.Printf("signed %q (%d files), manifest written to %s/.schemapin.sig\n", sig.SkillName, len(manifest), skillDir)
	},
}

// loadPrivateKeyOrExit reads and parses the private key PEM at path, or
// exits the process on failure.
func loadPrivateKeyOrExit(path string) *ecdsa.PrivateKey {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("failed to read private key", "error", err)
		os.Exit(1)
	}

	priv, err := signing.NewKeyManager().LoadPrivateKeyPEM(string(data))
	if err != nil {
		slog.Error("failed to parse private key", "error", err)
		os.Exit(1)
	}

	return priv
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.AddCommand(signSchemaCmd)
	signCmd.AddCommand(signSkillCmd)

	signCmd.PersistentFlags().StringVar(&signKeyPath, "key", "priv.pem", "Path to the signer's private key PEM")
	signCmd.PersistentFlags().StringVar(&signDomain, "domain", "", "Domain the signature is bound to (required for skill signing)")
}
