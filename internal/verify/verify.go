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

// Package verify drives the end-to-end schema and skill verification state
// machine (S0-S7): validate the discovery document, derive the signer's
// fingerprint, check revocation, apply TOFU pinning, canonicalize the
// payload, and verify its signature.
package verify

import (
	"context"
	"fmt"
	"strings"

	"schemapin/internal/core"
	"schemapin/internal/discovery"
	"schemapin/internal/metrics"
	"schemapin/internal/pinstore/types"
	"schemapin/internal/policy"
	"schemapin/internal/resolver"
	"schemapin/internal/revocation"
	"schemapin/internal/signing"
	"schemapin/internal/skill"
)

// ErrorCode identifies why a verification failed. The empty value means the
// verification succeeded.
type ErrorCode string

const (
	ErrSignatureInvalid             ErrorCode = "signature_invalid"
	ErrKeyNotFound                  ErrorCode = "key_not_found"
	ErrKeyRevoked                   ErrorCode = "key_revoked"
	ErrKeyPinMismatch               ErrorCode = "key_pin_mismatch"
	ErrDiscoveryFetchFailed         ErrorCode = "discovery_fetch_failed"
	ErrDiscoveryInvalid             ErrorCode = "discovery_invalid"
	ErrSchemaCanonicalizationFailed ErrorCode = "schema_canonicalization_failed"
)

// defaultPolicyEngine is consulted when a caller passes a nil *policy.Engine,
// preserving the engine's original unattended behavior: silently pin on
// first use, reject any key change or revocation.
var defaultPolicyEngine = policy.NewEngine(policy.ModeAutomatic, nil)

// KeyPinningStatus reports the outcome of the TOFU check performed during
// verification.
type KeyPinningStatus struct {
	Status string `json:"status"`
}

// Result is the structured outcome of a verification call.
type Result struct {
	Valid         bool              `json:"valid"`
	Domain        string            `json:"domain,omitempty"`
	DeveloperName string            `json:"developer_name,omitempty"`
	KeyPinning    *KeyPinningStatus `json:"key_pinning,omitempty"`
	ErrorCode     ErrorCode         `json:"error_code,omitempty"`
	ErrorMessage  string            `json:"error_message,omitempty"`
	Warnings      []string          `json:"warnings,omitempty"`
}

func fail(collector *metrics.Collector, domain string, code ErrorCode, format string, args ...any) *Result {
	if collector != nil {
		collector.IncError(string(code))
	}
	return &Result{
		Valid:        false,
		Domain:       domain,
		ErrorCode:    code,
		ErrorMessage: fmt.Sprintf(format, args...),
	}
}

// resolvedKey carries state S1-S4's output (validated key + pin decision)
// shared by both the schema and skill verification flows.
type resolvedKey struct {
	fingerprint string
	pinResult   types.PinResult
	warning     string
}

// resolveAndPinKey runs S1-S4: it validates the discovery document's key,
// checks revocation, and consults policyEngine for the first-use/key-change/
// revoked TOFU event the fingerprint represents, per §4.8's mode table. A
// nil policyEngine falls back to defaultPolicyEngine (automatic mode, no
// prompter), preserving the engine's original silently-pin/reject-change
// behavior.
func resolveAndPinKey(ctx context.Context, store types.Store, toolID, domain string, disc *discovery.WellKnownResponse, rev *revocation.Document, policyEngine *policy.Engine, collector *metrics.Collector) (*resolvedKey, *Result) {
	if disc == nil || disc.PublicKeyPEM == "" || !strings.Contains(disc.PublicKeyPEM, "-----BEGIN PUBLIC KEY-----") {
		return nil, fail(collector, domain, ErrDiscoveryInvalid, "discovery document missing or invalid public_key_pem")
	}

	keys := signing.NewKeyManager()

	if _, err := keys.LoadPublicKeyPEM(disc.PublicKeyPEM); err != nil {
		return nil, fail(collector, domain, ErrKeyNotFound, "failed to load public key: %v", err)
	}

	fingerprint, err := keys.CalculateKeyFingerprintFromPEM(disc.PublicKeyPEM)
	if err != nil {
		return nil, fail(collector, domain, ErrKeyNotFound, "failed to calculate fingerprint: %v", err)
	}

	if policyEngine == nil {
		policyEngine = defaultPolicyEngine
	}

	if revokedErr := revocation.CheckRevocationCombined(disc.RevokedKeys, rev, fingerprint); revokedErr != nil {
		// §4.8: interactive mode may still prompt on a revoked key (to let
		// the operator set a never_trust override going forward), but the
		// policy engine forces every such prompt's decision to reject or
		// never_trust, so this verification fails regardless of the
		// returned decision.
		_, _ = policyEngine.Evaluate(ctx, &policy.PromptContext{
			Event:          policy.EventRevoked,
			ToolID:         toolID,
			Domain:         domain,
			NewFingerprint: fingerprint,
			DeveloperName:  disc.DeveloperName,
		})
		return nil, fail(collector, domain, ErrKeyRevoked, "%s", revokedErr.Error())
	}

	existing, err := store.GetPinned(ctx, toolID, domain)
	if err != nil {
		return nil, fail(collector, domain, ErrKeyNotFound, "pin store lookup failed: %v", err)
	}

	if existing != nil && existing.Fingerprint == fingerprint {
		pinResult, err := store.CheckAndPin(ctx, toolID, domain, fingerprint)
		if err != nil {
			return nil, fail(collector, domain, ErrKeyNotFound, "pin store check failed: %v", err)
		}
		if pinResult == types.PinChanged {
			return nil, fail(collector, domain, ErrKeyPinMismatch, "key fingerprint changed since last use")
		}
		return &resolvedKey{fingerprint: fingerprint, pinResult: pinResult}, nil
	}

	event := policy.EventFirstUse
	currentFingerprint := ""
	if existing != nil {
		event = policy.EventKeyChange
		currentFingerprint = existing.Fingerprint
	}

	decision, err := policyEngine.Evaluate(ctx, &policy.PromptContext{
		Event:              event,
		ToolID:             toolID,
		Domain:             domain,
		CurrentFingerprint: currentFingerprint,
		NewFingerprint:     fingerprint,
		DeveloperName:      disc.DeveloperName,
	})
	if err != nil {
		return nil, fail(collector, domain, ErrKeyNotFound, "policy evaluation failed: %v", err)
	}

	switch decision {
	case policy.DecisionAccept, policy.DecisionAlwaysTrust:
		if event == policy.EventFirstUse {
			pinResult, err := store.CheckAndPin(ctx, toolID, domain, fingerprint)
			if err != nil {
				return nil, fail(collector, domain, ErrKeyNotFound, "pin store check failed: %v", err)
			}
			if pinResult == types.PinChanged {
				return nil, fail(collector, domain, ErrKeyPinMismatch, "key fingerprint changed since last use")
			}
			return &resolvedKey{fingerprint: fingerprint, pinResult: pinResult}, nil
		}

		if err := store.Replace(ctx, toolID, domain, fingerprint); err != nil {
			return nil, fail(collector, domain, ErrKeyNotFound, "pin store update failed: %v", err)
		}
		return &resolvedKey{
			fingerprint: fingerprint,
			pinResult:   types.PinPinned,
			warning:     fmt.Sprintf("key change accepted for domain %q, pin replaced", domain),
		}, nil

	case policy.DecisionTemporaryAccept:
		return &resolvedKey{
			fingerprint: fingerprint,
			pinResult:   types.PinPinned,
			warning:     "key change accepted once, pin not updated",
		}, nil

	default:
		if event == policy.EventKeyChange {
			return nil, fail(collector, domain, ErrKeyPinMismatch, "key fingerprint changed since last use")
		}
		return nil, fail(collector, domain, ErrKeyNotFound, "first use of key for domain %q was not accepted", domain)
	}
}

func successResult(domain string, disc *discovery.WellKnownResponse, key *resolvedKey, toolID string, collector *metrics.Collector) *Result {
	if collector != nil {
		collector.IncPinEvent(toolID, domain, string(key.pinResult))
	}

	result := &Result{
		Valid:         true,
		Domain:        domain,
		DeveloperName: disc.DeveloperName,
		KeyPinning:    &KeyPinningStatus{Status: string(key.pinResult)},
		Warnings:      []string{},
	}

	if key.pinResult == types.PinFirstUse {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("first use of key for domain %q, pin recorded", domain))
	}

	if key.warning != "" {
		result.Warnings = append(result.Warnings, key.warning)
	}

	return result
}

// VerifySchemaOffline runs the schema verification state machine against a
// pre-fetched discovery document and optional revocation document. A nil
// policyEngine defaults to automatic mode; a nil collector skips metrics.
func VerifySchemaOffline(ctx context.Context, store types.Store, schema any, signatureB64, domain, toolID string, disc *discovery.WellKnownResponse, rev *revocation.Document, policyEngine *policy.Engine, collector *metrics.Collector) *Result {
	key, failure := resolveAndPinKey(ctx, store, toolID, domain, disc, rev, policyEngine, collector)
	if failure != nil {
		return failure
	}

	publicKey, err := signing.NewKeyManager().LoadPublicKeyPEM(disc.PublicKeyPEM)
	if err != nil {
		return fail(collector, domain, ErrKeyNotFound, "failed to reload public key: %v", err)
	}

	hash, err := core.CanonicalizeAndHash(schema)
	if err != nil {
		return fail(collector, domain, ErrSchemaCanonicalizationFailed, "failed to canonicalize schema: %v", err)
	}

	if !signing.NewSignatureManager().VerifySchemaSignature(hash[:], signatureB64, publicKey) {
		return fail(collector, domain, ErrSignatureInvalid, "signature verification failed")
	}

	return successResult(domain, disc, key, toolID, collector)
}

// VerifySchemaWithResolver resolves the discovery and revocation documents
// for domain via r, then runs VerifySchemaOffline.
func VerifySchemaWithResolver(ctx context.Context, store types.Store, schema any, signatureB64, domain, toolID string, r resolver.SchemaResolver, policyEngine *policy.Engine, collector *metrics.Collector) *Result {
	disc, err := r.ResolveDiscovery(ctx, domain)
	if err != nil || disc == nil {
		return fail(collector, domain, ErrDiscoveryFetchFailed, "could not resolve discovery for domain %q", domain)
	}

	rev, _ := r.ResolveRevocation(ctx, domain, disc)

	return VerifySchemaOffline(ctx, store, schema, signatureB64, domain, toolID, disc, rev, policyEngine, collector)
}

// VerifySkillOffline runs the skill verification state machine: recomputes
// the skill directory's root hash and verifies it against the recorded
// signature. A tampered file changes the recomputed root hash, so the
// signature check below is the sole gate on tampering — per §8 scenario 4,
// a modified file surfaces as ErrSignatureInvalid, not a distinct tamper
// code. skill.DetectTamperedFiles remains available as a separate reporting
// utility for callers that want to name which files changed.
func VerifySkillOffline(ctx context.Context, store types.Store, skillPath string, sig *skill.Signature, toolID string, disc *discovery.WellKnownResponse, rev *revocation.Document, policyEngine *policy.Engine, collector *metrics.Collector) *Result {
	domain := sig.Domain

	key, failure := resolveAndPinKey(ctx, store, toolID, domain, disc, rev, policyEngine, collector)
	if failure != nil {
		return failure
	}

	rootHash, _, err := skill.CanonicalizeSkill(skillPath)
	if err != nil {
		return fail(collector, domain, ErrSchemaCanonicalizationFailed, "failed to canonicalize skill: %v", err)
	}

	publicKey, err := signing.NewKeyManager().LoadPublicKeyPEM(disc.PublicKeyPEM)
	if err != nil {
		return fail(collector, domain, ErrKeyNotFound, "failed to reload public key: %v", err)
	}

	if !signing.NewSignatureManager().VerifySchemaSignature(rootHash[:], sig.SignatureB64, publicKey) {
		return fail(collector, domain, ErrSignatureInvalid, "signature verification failed")
	}

	return successResult(domain, disc, key, toolID, collector)
}

// VerifySkillWithResolver resolves the discovery and revocation documents
// for sig.Domain via r, then runs VerifySkillOffline.
func VerifySkillWithResolver(ctx context.Context, store types.Store, skillPath string, sig *skill.Signature, toolID string, r resolver.SchemaResolver, policyEngine *policy.Engine, collector *metrics.Collector) *Result {
	disc, err := r.ResolveDiscovery(ctx, sig.Domain)
	if err != nil || disc == nil {
		return fail(collector, sig.Domain, ErrDiscoveryFetchFailed, "could not resolve discovery for domain %q", sig.Domain)
	}

	rev, _ := r.ResolveRevocation(ctx, sig.Domain, disc)

	return VerifySkillOffline(ctx, store, skillPath, sig, toolID, disc, rev, policyEngine, collector)
}
