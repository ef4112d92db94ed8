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

// Package core implements deterministic JSON canonicalization for tool schemas.
package core

import (
	"crypto/sha256"
	"fmt"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// Canonicalize produces the canonical UTF-8 byte form of a JSON-compatible
// value: object members sorted by key, no insignificant whitespace, and
// number lexemes matching RFC 8785. The input is marshaled to JSON first so
// callers may pass either raw JSON bytes (via json.RawMessage), a struct, or
// a map — canonicalization itself is delegated to the JCS transform rather
// than re-derived from Go's own (unordered) map marshaling.
func Canonicalize(value any) ([]byte, error) {
	raw, err := marshalJSON(value)
	if err != nil {
		return nil, fmt.Errorf("core: failed to marshal value: %w", err)
	}

	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("core: failed to canonicalize: %w", err)
	}

	return canonical, nil
}

// HashCanonical returns the SHA-256 digest of the canonical byte form.
func HashCanonical(canonical []byte) [32]byte {
	return sha256.Sum256(canonical)
}

// CanonicalizeAndHash canonicalizes value and returns its SHA-256 digest in
// one step, the form consumed by the signing and verification engines.
func CanonicalizeAndHash(value any) ([32]byte, error) {
	canonical, err := Canonicalize(value)
	if err != nil {
		return [32]byte{}, err
	}

	return HashCanonical(canonical), nil
}
