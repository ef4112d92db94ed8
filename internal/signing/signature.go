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

package signing

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/asn1"
	"encoding/base64"
	"fmt"
	"math/big"
)

// SignatureManager signs and verifies ECDSA-P256-SHA256 signatures encoded
// as Base64(ASN.1 DER(SEQUENCE{r, s})).
type SignatureManager struct{}

// NewSignatureManager returns a SignatureManager.
func NewSignatureManager() *SignatureManager {
	return &SignatureManager{}
}

// ecdsaSignature is the ASN.1 wire shape of an ECDSA signature.
type ecdsaSignature struct {
	R, S *big.Int
}

// SignHash signs a 32-byte hash and returns the Base64-encoded DER signature.
func (s *SignatureManager) SignHash(hash []byte, priv *ecdsa.PrivateKey) (string, error) {
	r, sVal, err := ecdsa.Sign(rand.Reader, priv, hash)
	if err != nil {
		return "", fmt.Errorf("signing: failed to sign hash: %w", err)
	}

	der, err := asn1.Marshal(ecdsaSignature{R: r, S: sVal})
	if err != nil {
		return "", fmt.Errorf("signing: failed to marshal signature: %w", err)
	}

	return base64.StdEncoding.EncodeToString(der), nil
}

// VerifySignature verifies a Base64-encoded DER signature against a 32-byte
// hash. It never panics or returns an error on malformed input — any
// unparseable signature simply fails to verify.
func (s *SignatureManager) VerifySignature(hash []byte, signatureB64 string, pub *ecdsa.PublicKey) bool {
	der, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false
	}

	var sig ecdsaSignature
	rest, err := asn1.Unmarshal(der, &sig)
	if err != nil || len(rest) != 0 {
		return false
	}

	if sig.R == nil || sig.S == nil {
		return false
	}

	return ecdsa.Verify(pub, hash, sig.R, sig.S)
}

// SignSchemaHash signs a schema or skill root hash (convenience alias).
func (s *SignatureManager) SignSchemaHash(hash []byte, priv *ecdsa.PrivateKey) (string, error) {
	return s.SignHash(hash, priv)
}

// VerifySchemaSignature verifies a schema or skill signature (convenience alias).
func (s *SignatureManager) VerifySchemaSignature(hash []byte, signatureB64 string, pub *ecdsa.PublicKey) bool {
	return s.VerifySignature(hash, signatureB64, pub)
}
