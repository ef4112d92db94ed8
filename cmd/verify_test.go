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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemapin/internal/config"
	"schemapin/internal/policy"
)

type fakePrompter struct {
	decision policy.Decision
}

func (f *fakePrompter) Prompt(_ context.Context, _ *policy.PromptContext) (policy.Decision, error) {
	return f.decision, nil
}

func TestVerifyPolicyEngine_UsesConfiguredModeWhenNotForced(t *testing.T) {
	cfg := config.Config{Pinning: config.ConfigPinning{Mode: policy.ModeAutomatic}}

	engine := verifyPolicyEngine(cfg, &fakePrompter{decision: policy.DecisionReject}, false)

	decision, err := engine.Evaluate(context.Background(), &policy.PromptContext{
		Event:  policy.EventFirstUse,
		Domain: "acme.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, policy.DecisionAccept, decision)
}

func TestVerifyPolicyEngine_ForceInteractiveOverridesConfiguredMode(t *testing.T) {
	cfg := config.Config{Pinning: config.ConfigPinning{Mode: policy.ModeAutomatic}}

	engine := verifyPolicyEngine(cfg, &fakePrompter{decision: policy.DecisionReject}, true)

	decision, err := engine.Evaluate(context.Background(), &policy.PromptContext{
		Event:  policy.EventFirstUse,
		Domain: "acme.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, policy.DecisionReject, decision)
}

func TestVerifyPolicyEngine_SeedsDomainOverridesFromConfig(t *testing.T) {
	cfg := config.Config{
		Pinning: config.ConfigPinning{
			Mode: policy.ModeAutomatic,
			Domains: map[string]policy.DomainPolicy{
				"acme.example.com": policy.PolicyAlwaysTrust,
			},
		},
	}

	engine := verifyPolicyEngine(cfg, nil, false)

	decision, err := engine.Evaluate(context.Background(), &policy.PromptContext{
		Event:  policy.EventKeyChange,
		Domain: "acme.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, policy.DecisionAccept, decision)
}

func TestVerifyPolicyEngine_NeverTrustOverrideRejectsEvenFirstUse(t *testing.T) {
	cfg := config.Config{
		Pinning: config.ConfigPinning{
			Mode: policy.ModeAutomatic,
			Domains: map[string]policy.DomainPolicy{
				"evil.example.com": policy.PolicyNeverTrust,
			},
		},
	}

	engine := verifyPolicyEngine(cfg, nil, false)

	decision, err := engine.Evaluate(context.Background(), &policy.PromptContext{
		Event:  policy.EventFirstUse,
		Domain: "evil.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, policy.DecisionReject, decision)
}
