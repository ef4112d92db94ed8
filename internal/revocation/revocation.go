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

// Package revocation implements the simple-list and standalone-document
// revocation checks described for discovery documents.
package revocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Reason is the publisher-declared cause of a key revocation.
type Reason string

const (
	ReasonKeyCompromise        Reason = "key_compromise"
	ReasonSuperseded           Reason = "superseded"
	ReasonCessationOfOperation Reason = "cessation_of_operation"
	ReasonPrivilegeWithdrawn   Reason = "privilege_withdrawn"
)

// RevokedKey is one entry in a standalone revocation document.
type RevokedKey struct {
	Fingerprint string `json:"fingerprint"`
	RevokedAt   string `json:"revoked_at"`
	Reason      Reason `json:"reason"`
}

// Document is the standalone revocation document served at a discovery
// document's revocation_endpoint.
type Document struct {
	SchemaPinVersion string       `json:"schemapin_version"`
	Domain           string       `json:"domain"`
	UpdatedAt        string       `json:"updated_at"`
	RevokedKeys      []RevokedKey `json:"revoked_keys"`
}

// BuildDocument constructs an empty revocation document for domain.
func BuildDocument(domain, updatedAt string) *Document {
	return &Document{
		SchemaPinVersion: "1.3",
		Domain:           domain,
		UpdatedAt:        updatedAt,
		RevokedKeys:      []RevokedKey{},
	}
}

// AddRevokedKey appends a revoked key entry to doc.
func (doc *Document) AddRevokedKey(fingerprint, revokedAt string, reason Reason) {
	doc.RevokedKeys = append(doc.RevokedKeys, RevokedKey{
		Fingerprint: fingerprint,
		RevokedAt:   revokedAt,
		Reason:      reason,
	})
}

// inSimpleList reports whether fingerprint appears in a discovery document's
// simple revoked_keys list.
func inSimpleList(fingerprint string, simpleList []string) bool {
	for _, fp := range simpleList {
		if fp == fingerprint {
			return true
		}
	}
	return false
}

// inDocument reports whether fingerprint appears in a standalone revocation
// document.
func inDocument(fingerprint string, doc *Document) bool {
	if doc == nil {
		return false
	}

	for _, entry := range doc.RevokedKeys {
		if entry.Fingerprint == fingerprint {
			return true
		}
	}

	return false
}

// CheckRevocation checks fingerprint against a standalone revocation
// document only, returning an error naming the reason if revoked.
func CheckRevocation(fingerprint string, doc *Document) error {
	if doc == nil {
		return nil
	}

	for _, entry := range doc.RevokedKeys {
		if entry.Fingerprint == fingerprint {
			return fmt.Errorf("revocation: key %s is revoked (reason: %s)", fingerprint, entry.Reason)
		}
	}
	return nil
}

// CheckRevocationCombined checks fingerprint against both the discovery
// document's simple revoked_keys list and an optional standalone revocation
// document, per §4.4: a key is revoked if it appears in either.
func CheckRevocationCombined(simpleList []string, doc *Document, fingerprint string) error {
	if inSimpleList(fingerprint, simpleList) || inDocument(fingerprint, doc) {
		return fmt.Errorf("revocation: key %s is revoked", fingerprint)
	}
	return nil
}

// FetchDocument fetches and parses a standalone revocation document from
// url. A failed fetch is treated by callers as a non-fatal absence; the
// verification engine proceeds with the simple-list check alone.
func FetchDocument(ctx context.Context, client *http.Client, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("revocation: failed to build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("revocation: failed to fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("revocation: unexpected status %d", resp.StatusCode)
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("revocation: failed to decode document: %w", err)
	}

	return &doc, nil
}
