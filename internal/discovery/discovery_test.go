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

package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildWellKnown_OmitsAbsentOptionals(t *testing.T) {
	resp := BuildWellKnown(Options{
		PublicKeyPEM:  "-----BEGIN PUBLIC KEY-----\nABC\n-----END PUBLIC KEY-----\n",
		DeveloperName: "Acme Inc",
	})

	assert.Equal(t, "1.3", resp.SchemaVersion)
	assert.Empty(t, resp.Contact)
	assert.Empty(t, resp.RevokedKeys)
	assert.Empty(t, resp.RevocationEndpoint)
}

func TestBuildWellKnown_IncludesProvidedOptionals(t *testing.T) {
	resp := BuildWellKnown(Options{
		PublicKeyPEM:       "-----BEGIN PUBLIC KEY-----\nABC\n-----END PUBLIC KEY-----\n",
		DeveloperName:      "Acme Inc",
		Contact:            "security@acme.example",
		RevokedKeys:        []string{"sha256:aaa"},
		RevocationEndpoint: "https://acme.example/.well-known/schemapin-revocation.json",
	})

	assert.Equal(t, "security@acme.example", resp.Contact)
	assert.Equal(t, []string{"sha256:aaa"}, resp.RevokedKeys)
}

func TestValidate(t *testing.T) {
	valid := &WellKnownResponse{
		SchemaVersion: "1.3",
		PublicKeyPEM:  "-----BEGIN PUBLIC KEY-----\nABC\n-----END PUBLIC KEY-----\n",
	}
	assert.True(t, valid.Validate())

	var nilResp *WellKnownResponse
	assert.False(t, nilResp.Validate())

	missingKey := &WellKnownResponse{SchemaVersion: "1.3"}
	assert.False(t, missingKey.Validate())

	missingVersion := &WellKnownResponse{PublicKeyPEM: valid.PublicKeyPEM}
	assert.False(t, missingVersion.Validate())
}

func TestConstructWellKnownURL(t *testing.T) {
	assert.Equal(t, "https://example.com/.well-known/schemapin.json", ConstructWellKnownURL("example.com"))
	assert.Equal(t, "https://example.com/.well-known/schemapin.json", ConstructWellKnownURL("https://example.com"))
}
