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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"schemapin/internal/config"
	"schemapin/internal/interactive"
	"schemapin/internal/metrics"
	"schemapin/internal/pinstore/memory"
	"schemapin/internal/pinstore/types"
	"schemapin/internal/policy"
	"schemapin/internal/resolver"
	"schemapin/internal/skill"
	"schemapin/internal/verify"
)

var (
	verifyDomain      string
	verifyToolID      string
	verifyInteractive bool
)

// verifyCmd groups the schema and skill verification subcommands.
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a schema file or a skill directory against its signer's pinned key",
}

// verifySchemaCmd represents the verify schema command
var verifySchemaCmd = &cobra.Command{
	Use:   "schema <file>",
	Short: "Verify a signed schema envelope against the domain's discovery document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			slog.Error("failed to read schema envelope", "error", err)
			os.Exit(1)
		}

		var envelope struct {
			Schema    any    `json:"schema"`
			Signature string `json:"signature"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			slog.Error("failed to parse signed envelope", "error", err)
			os.Exit(1)
		}

		ctx := context.Background()
		store := verifyStoreOrExit(ctx)
		r := resolver.NewWellKnownResolver(5 * time.Second)
		engine := verifyPolicyEngine(verifyConfigOrExit(), interactive.NewConsoleHandler(), verifyInteractive)
		collector := metrics.NewCollector()

		result := verify.VerifySchemaWithResolver(ctx, store, envelope.Schema, envelope.Signature, verifyDomain, verifyToolID, r, engine, collector)

		printVerifyResult(result)
	},
}

// verifySkillCmd represents the verify skill command
var verifySkillCmd = &cobra.Command{
	Use:   "skill <dir>",
	Short: "Verify a signed skill directory against the domain's discovery document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		skillDir := args[0]

		sig, err := skill.LoadSignature(skillDir)
		if err != nil {
			slog.Error("failed to load skill signature manifest", "error", err)
			os.Exit(1)
		}

		ctx := context.Background()
		store := verifyStoreOrExit(ctx)
		r := resolver.NewWellKnownResolver(5 * time.Second)
		engine := verifyPolicyEngine(verifyConfigOrExit(), interactive.NewConsoleHandler(), verifyInteractive)
		collector := metrics.NewCollector()

		toolID := sig.SkillName

		result := verify.VerifySkillWithResolver(ctx, store, skillDir, sig, toolID, r, engine, collector)

		printVerifyResult(result)
	},
}

// verifyStoreOrExit constructs the in-process pin store used by a one-shot
// CLI verification. The CLI keeps no persisted pin history between
// invocations; `schemapin serve` owns the long-lived store.
func verifyStoreOrExit(ctx context.Context) types.Store {
	store, err := memory.New(ctx)
	if err != nil {
		slog.Error("failed to initialize pin store", "error", err)
		os.Exit(1)
	}

	return store
}

// verifyConfigOrExit loads application configuration, exiting on failure.
func verifyConfigOrExit() config.Config {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	return cfg
}

// verifyPolicyEngine builds the policy engine that gates the S4 TOFU step,
// seeded from the configured pinning mode and per-domain overrides
// (ConfigPinning.Mode / .Domains). forceInteractive (--interactive) switches
// the mode to interactive for this invocation regardless of the configured
// default; prompter is wired in regardless of mode, since ModeAutomatic and
// ModeStrict never call it.
func verifyPolicyEngine(cfg config.Config, prompter policy.PromptCapability, forceInteractive bool) *policy.Engine {
	mode := cfg.Pinning.Mode
	if forceInteractive {
		mode = policy.ModeInteractive
	}

	engine := policy.NewEngine(mode, prompter)

	for domain, p := range cfg.Pinning.Domains {
		engine.SetDomainPolicy(domain, p)
	}

	return engine
}

func printVerifyResult(result *verify.Result) {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		slog.Error("failed to marshal verification result", "error", err)
		os.Exit(1)
	}

	fmt.Println(string(out))

	if !result.Valid {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.AddCommand(verifySchemaCmd)
	verifyCmd.AddCommand(verifySkillCmd)

	verifyCmd.PersistentFlags().StringVar(&verifyDomain, "domain", "", "Domain to resolve the discovery document from (verify schema only; verify skill uses the domain recorded in .schemapin.sig)")
	verifyCmd.PersistentFlags().BoolVar(&verifyInteractive, "interactive", false, "Prompt the operator on key-change/first-use events")
	verifySchemaCmd.Flags().StringVar(&verifyToolID, "tool-id", "", "Tool identifier the pin store tracks this schema under")
}
