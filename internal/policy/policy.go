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

// Package policy decides how the verification engine's TOFU step should
// react to a first-use, key-change, or revoked-key event, given an
// operating mode and any per-domain override.
package policy

import (
	"context"
	"fmt"
	"sync"
)

// Mode is the engine-wide default pinning behavior.
type Mode string

const (
	ModeAutomatic   Mode = "automatic"
	ModeInteractive Mode = "interactive"
	ModeStrict      Mode = "strict"
)

// DomainPolicy is a per-domain override of Mode.
type DomainPolicy string

const (
	PolicyDefault         DomainPolicy = "default"
	PolicyAlwaysTrust     DomainPolicy = "always_trust"
	PolicyNeverTrust      DomainPolicy = "never_trust"
	PolicyInteractiveOnly DomainPolicy = "interactive_only"
)

// Event is the TOFU outcome that triggered a policy decision.
type Event string

const (
	EventFirstUse  Event = "first_use"
	EventKeyChange Event = "key_change"
	EventRevoked   Event = "revoked"
)

// Decision is the outcome of evaluating a policy, or of a user prompt.
type Decision string

const (
	DecisionAccept          Decision = "accept"
	DecisionReject          Decision = "reject"
	DecisionAlwaysTrust     Decision = "always_trust"
	DecisionNeverTrust      Decision = "never_trust"
	DecisionTemporaryAccept Decision = "temporary_accept"
)

// PromptContext describes a pending policy decision for a prompt capability
// to render and resolve.
type PromptContext struct {
	Event              Event
	ToolID             string
	Domain             string
	CurrentFingerprint string
	NewFingerprint     string
	DeveloperName      string
	SecurityWarning    string
}

// PromptCapability is satisfied by anything that can resolve a
// PromptContext into a user Decision. The engine depends only on this
// interface; internal/interactive provides a console-based implementation.
type PromptCapability interface {
	Prompt(ctx context.Context, pc *PromptContext) (Decision, error)
}

// Engine evaluates pinning decisions against a mode, per-domain overrides,
// and an optional prompt capability.
type Engine struct {
	mu       sync.Mutex
	mode     Mode
	domains  map[string]DomainPolicy
	prompter PromptCapability
}

// NewEngine constructs a policy engine in mode, optionally wired to a
// prompt capability for interactive decisions.
func NewEngine(mode Mode, prompter PromptCapability) *Engine {
	return &Engine{
		mode:     mode,
		domains:  make(map[string]DomainPolicy),
		prompter: prompter,
	}
}

// SetDomainPolicy installs an override for domain.
func (e *Engine) SetDomainPolicy(domain string, p DomainPolicy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.domains[domain] = p
}

// GetDomainPolicy returns the override for domain, or PolicyDefault if none
// was set.
func (e *Engine) GetDomainPolicy(domain string) DomainPolicy {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.domains[domain]; ok {
		return p
	}
	return PolicyDefault
}

// Evaluate decides whether a TOFU event should proceed, per §4.8's mode ×
// domain-policy × event table. A DecisionAlwaysTrust or DecisionNeverTrust
// returned by a prompt also installs the corresponding domain override.
func (e *Engine) Evaluate(ctx context.Context, pc *PromptContext) (Decision, error) {
	switch e.GetDomainPolicy(pc.Domain) {
	case PolicyNeverTrust:
		return DecisionReject, nil
	case PolicyAlwaysTrust:
		return DecisionAccept, nil
	case PolicyInteractiveOnly:
		return e.prompt(ctx, pc)
	}

	switch e.mode {
	case ModeAutomatic:
		return e.evaluateAutomatic(pc)
	case ModeStrict:
		return e.evaluateStrict(pc)
	case ModeInteractive:
		return e.prompt(ctx, pc)
	default:
		return DecisionReject, fmt.Errorf("policy: unknown mode %q", e.mode)
	}
}

func (e *Engine) evaluateAutomatic(pc *PromptContext) (Decision, error) {
	switch pc.Event {
	case EventFirstUse:
		return DecisionAccept, nil
	case EventKeyChange:
		return DecisionReject, nil
	case EventRevoked:
		return DecisionReject, nil
	default:
		return DecisionReject, fmt.Errorf("policy: unknown event %q", pc.Event)
	}
}

func (e *Engine) evaluateStrict(pc *PromptContext) (Decision, error) {
	switch pc.Event {
	case EventFirstUse:
		return DecisionAccept, nil
	case EventKeyChange, EventRevoked:
		return DecisionReject, nil
	default:
		return DecisionReject, fmt.Errorf("policy: unknown event %q", pc.Event)
	}
}

func (e *Engine) prompt(ctx context.Context, pc *PromptContext) (Decision, error) {
	if e.prompter == nil {
		return DecisionReject, nil
	}

	if pc.Event == EventRevoked {
		pc.SecurityWarning = "this key has been revoked by the developer"
	} else if pc.Event == EventKeyChange {
		pc.SecurityWarning = "the signer's key has changed since it was last pinned"
	}

	decision, err := e.prompter.Prompt(ctx, pc)
	if err != nil {
		return DecisionReject, fmt.Errorf("policy: prompt failed: %w", err)
	}

	if pc.Event == EventRevoked && decision != DecisionReject && decision != DecisionNeverTrust {
		decision = DecisionReject
	}

	switch decision {
	case DecisionAlwaysTrust:
		e.SetDomainPolicy(pc.Domain, PolicyAlwaysTrust)
	case DecisionNeverTrust:
		e.SetDomainPolicy(pc.Domain, PolicyNeverTrust)
	}

	return decision, nil
}
