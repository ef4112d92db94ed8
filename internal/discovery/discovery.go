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

// Package discovery defines the .well-known/schemapin.json document shape
// and the publisher-side builder that emits it.
package discovery

import (
	"fmt"
	"net/url"
	"strings"
)

// WellKnownResponse is the discovery document served at
// https://<domain>/.well-known/schemapin.json.
type WellKnownResponse struct {
	SchemaVersion      string   `json:"schema_version"`
	DeveloperName      string   `json:"developer_name"`
	PublicKeyPEM       string   `json:"public_key_pem"`
	Contact            string   `json:"contact,omitempty"`
	RevokedKeys        []string `json:"revoked_keys,omitempty"`
	RevocationEndpoint string   `json:"revocation_endpoint,omitempty"`
}

// Options configures BuildWellKnown.
type Options struct {
	PublicKeyPEM       string
	DeveloperName      string
	Contact            string
	RevokedKeys        []string
	SchemaVersion      string
	RevocationEndpoint string
}

// BuildWellKnown is the pure well-known response builder (C9): it emits
// exactly the fields present in opts, omitting absent optionals.
func BuildWellKnown(opts Options) *WellKnownResponse {
	schemaVersion := opts.SchemaVersion
	if schemaVersion == "" {
		schemaVersion = "1.3"
	}

	return &WellKnownResponse{
		SchemaVersion:      schemaVersion,
		DeveloperName:      opts.DeveloperName,
		PublicKeyPEM:       opts.PublicKeyPEM,
		Contact:            opts.Contact,
		RevokedKeys:        opts.RevokedKeys,
		RevocationEndpoint: opts.RevocationEndpoint,
	}
}

// Validate reports whether resp satisfies the §3 validity invariant:
// schema_version non-empty and public_key_pem present. Curve validation
// happens downstream when the key is actually loaded.
func (resp *WellKnownResponse) Validate() bool {
	return resp != nil &&
		resp.SchemaVersion != "" &&
		strings.Contains(resp.PublicKeyPEM, "-----BEGIN PUBLIC KEY-----")
}

// ConstructWellKnownURL builds the .well-known discovery URL for domain,
// adding an https:// scheme if one is not already present.
func ConstructWellKnownURL(domain string) string {
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}

	base, err := url.Parse(domain)
	if err != nil {
		trimmed := strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://")
		return fmt.Sprintf("https://%s/.well-known/schemapin.json", trimmed)
	}

	base.Path = "/.well-known/schemapin.json"
	return base.String()
}
