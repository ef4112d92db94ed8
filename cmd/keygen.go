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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"schemapin/internal/signing"
)

var keygenOutDir string

// keygenCmd represents the keygen command
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new ECDSA P-256 signing keypair",
	Run: func(cmd *cobra.Command, args []string) {
		km := signing.NewKeyManager()

		priv, err := km.GenerateKeypair()
		if err != nil {
			slog.Error("failed to generate keypair", "error", err)
			os.Exit(1)
		}

		privPEM, err := km.ExportPrivateKeyPEM(priv)
		if err != nil {
			slog.Error("failed to export private key", "error", err)
			os.Exit(1)
		}

		pubPEM, err := km.ExportPublicKeyPEM(&priv.PublicKey)
		if err != nil {
			slog.Error("failed to export public key", "error", err)
			os.Exit(1)
		}

		if err := os.MkdirAll(keygenOutDir, 0o755); err != nil {
			slog.Error("failed to create output directory", "error", err)
			os.Exit(1)
		}

		privPath := filepath.Join(keygenOutDir, "priv.pem")
		pubPath := filepath.Join(keygenOutDir, "pub.pem")

		if err := os.WriteFile(privPath, []byte(privPEM), 0o600); err != nil {
			slog.Error("failed to write private key", "error", err)
			os.Exit(1)
		}

		if err := os.WriteFile(pubPath, []byte(pubPEM), 0o644); err != nil {
			slog.Error("failed to write public key", "error", err)
			os.Exit(1)
		}

		fingerprint, err := km.CalculateKeyFingerprint(&priv.PublicKey)
		if err != nil {
			slog.Error("failed to calculate fingerprint", "error", err)
			os.Exit(1)
		}

		fmt.Printf("private key: %s\n", privPath)
		fmt.Printf("public key:  %s\n", pubPath)
		fmt.Printf("fingerprint: %s\n", fingerprint)
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().StringVar(&keygenOutDir, "out-dir", ".", "Directory to write priv.pem/pub.pem to")
}
