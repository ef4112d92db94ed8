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

package bundle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemapin/internal/discovery"
	"schemapin/internal/revocation"
)

func TestTrustBundle_SerializeParseRoundTrip(t *testing.T) {
	b := New("2026-01-01T00:00:00Z")
	b.Documents = append(b.Documents, Entry{
		Domain: "example.com",
		WellKnown: discovery.WellKnownResponse{
			SchemaVersion: "1.3",
			DeveloperName: "Acme",
			PublicKeyPEM:  "-----BEGIN PUBLIC KEY-----\nABC\n-----END PUBLIC KEY-----\n",
		},
	})

	rev := revocation.Document{Domain: "example.com", SchemaPinVersion: "1.3", UpdatedAt: "2026-01-01T00:00:00Z"}
	rev.AddRevokedKey("sha256:aaa", "2026-01-02T00:00:00Z", revocation.ReasonSuperseded)
	b.Revocations = append(b.Revocations, rev)

	data, err := b.Serialize()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, b.BundleVersion, parsed.BundleVersion)
	assert.Equal(t, "example.com", parsed.Documents[0].Domain)
	assert.Equal(t, "Acme", parsed.Documents[0].WellKnown.DeveloperName)
	assert.Len(t, parsed.Revocations, 1)
}

func TestTrustBundle_FindDiscoveryAndRevocation(t *testing.T) {
	b := New("2026-01-01T00:00:00Z")
	b.Documents = append(b.Documents, Entry{
		Domain:    "example.com",
		WellKnown: discovery.WellKnownResponse{SchemaVersion: "1.3", PublicKeyPEM: "pem"},
	})
	b.Revocations = append(b.Revocations, revocation.Document{Domain: "example.com"})

	assert.NotNil(t, b.FindDiscovery("example.com"))
	assert.Nil(t, b.FindDiscovery("other.com"))
	assert.NotNil(t, b.FindRevocation("example.com"))
	assert.Nil(t, b.FindRevocation("other.com"))
}

func TestEntry_MarshalOmitsAbsentOptionals(t *testing.T) {
	e := Entry{Domain: "example.com", WellKnown: discovery.WellKnownResponse{SchemaVersion: "1.3", PublicKeyPEM: "pem"}}

	data, err := e.MarshalJSON()
	require.NoError(t, err)

	assert.NotContains(t, string(data), "contact")
	assert.NotContains(t, string(data), "revoked_keys")
}
