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

package revocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckRevocationCombined_SimpleListOnly(t *testing.T) {
	err := CheckRevocationCombined([]string{"sha256:aaa"}, nil, "sha256:aaa")
	assert.Error(t, err)

	err = CheckRevocationCombined([]string{"sha256:aaa"}, nil, "sha256:bbb")
	assert.NoError(t, err)
}

func TestCheckRevocationCombined_StandaloneDocument(t *testing.T) {
	doc := BuildDocument("example.com", "2026-01-01T00:00:00Z")
	doc.AddRevokedKey("sha256:ccc", "2026-01-02T00:00:00Z", ReasonKeyCompromise)

	err := CheckRevocationCombined(nil, doc, "sha256:ccc")
	assert.Error(t, err)

	err = CheckRevocationCombined(nil, doc, "sha256:ddd")
	assert.NoError(t, err)
}

func TestCheckRevocationCombined_EmptyListEquivalentToAbsent(t *testing.T) {
	err := CheckRevocationCombined([]string{}, nil, "sha256:aaa")
	assert.NoError(t, err)
}

func TestCheckRevocationCombined_EitherSourceRevokes(t *testing.T) {
	doc := BuildDocument("example.com", "2026-01-01T00:00:00Z")
	doc.AddRevokedKey("sha256:ccc", "2026-01-02T00:00:00Z", ReasonSuperseded)

	// revoked in discovery's simple list but not in the standalone doc
	assert.Error(t, CheckRevocationCombined([]string{"sha256:aaa"}, doc, "sha256:aaa"))
	// revoked in the standalone doc but not the simple list
	assert.Error(t, CheckRevocationCombined([]string{"sha256:aaa"}, doc, "sha256:ccc"))
}
