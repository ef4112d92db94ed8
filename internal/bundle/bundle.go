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

// Package bundle holds pre-distributed trust bundles for offline or
// air-gapped verification, backing resolver.TrustBundleResolver.
package bundle

import (
	"encoding/json"
	"fmt"

	"schemapin/internal/discovery"
	"schemapin/internal/revocation"
)

// Entry pairs a domain with its discovery document for flattened JSON
// storage in a trust bundle.
type Entry struct {
	Domain    string
	WellKnown discovery.WellKnownResponse
}

// MarshalJSON flattens Entry's domain and discovery fields into one object.
func (e Entry) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"domain":         e.Domain,
		"schema_version": e.WellKnown.SchemaVersion,
		"developer_name": e.WellKnown.DeveloperName,
		"public_key_pem": e.WellKnown.PublicKeyPEM,
	}
	if e.WellKnown.Contact != "" {
		m["contact"] = e.WellKnown.Contact
	}
	if len(e.WellKnown.RevokedKeys) > 0 {
		m["revoked_keys"] = e.WellKnown.RevokedKeys
	}
	if e.WellKnown.RevocationEndpoint != "" {
		m["revocation_endpoint"] = e.WellKnown.RevocationEndpoint
	}

	return json.Marshal(m)
}

// UnmarshalJSON reverses MarshalJSON's flattening.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	if v, ok := m["domain"]; ok {
		if err := json.Unmarshal(v, &e.Domain); err != nil {
			return fmt.Errorf("bundle: failed to unmarshal domain: %w", err)
		}
	}

	flat, err := json.Marshal(m)
	if err != nil {
		return err
	}

	return json.Unmarshal(flat, &e.WellKnown)
}

// TrustBundle is a pre-packaged collection of discovery and revocation
// documents for offline verification.
type TrustBundle struct {
	BundleVersion string                `json:"schemapin_bundle_version"`
	CreatedAt     string                `json:"created_at"`
	Documents     []Entry               `json:"documents"`
	Revocations   []revocation.Document `json:"revocations"`
}

// New returns an empty trust bundle stamped with createdAt.
func New(createdAt string) *TrustBundle {
	return &TrustBundle{
		BundleVersion: "1.3",
		CreatedAt:     createdAt,
		Documents:     []Entry{},
		Revocations:   []revocation.Document{},
	}
}

// FindDiscovery returns the discovery document for domain, or nil.
func (b *TrustBundle) FindDiscovery(domain string) *discovery.WellKnownResponse {
	for i := range b.Documents {
		if b.Documents[i].Domain == domain {
			return &b.Documents[i].WellKnown
		}
	}
	return nil
}

// FindRevocation returns the revocation document for domain, or nil.
func (b *TrustBundle) FindRevocation(domain string) *revocation.Document {
	for i := range b.Revocations {
		if b.Revocations[i].Domain == domain {
			return &b.Revocations[i]
		}
	}
	return nil
}

// Parse decodes a trust bundle from JSON bytes.
func Parse(data []byte) (*TrustBundle, error) {
	var b TrustBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("bundle: failed to parse trust bundle: %w", err)
	}
	return &b, nil
}

// Serialize encodes the trust bundle back to JSON.
func (b *TrustBundle) Serialize() ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("bundle: failed to serialize trust bundle: %w", err)
	}
	return data, nil
}
