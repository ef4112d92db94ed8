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

// Package signing provides ECDSA P-256 key management and signature
// operations shared by the signer and the verification engine.
package signing

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// KeyManager performs ECDSA P-256 key generation, PEM encoding/decoding, and
// fingerprinting. It holds no state and is safe for concurrent use.
type KeyManager struct{}

// NewKeyManager returns a KeyManager.
func NewKeyManager() *KeyManager {
	return &KeyManager{}
}

// GenerateKeypair generates a new ECDSA private key on the P-256 curve.
func (k *KeyManager) GenerateKeypair() (*ecdsa.PrivateKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("signing: failed to generate keypair: %w", err)
	}

	return priv, nil
}

// ExportPrivateKeyPEM encodes a private key as PKCS#8 PEM.
func (k *KeyManager) ExportPrivateKeyPEM(key *ecdsa.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", fmt.Errorf("signing: failed to marshal private key: %w", err)
	}

	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// ExportPublicKeyPEM encodes a public key as SubjectPublicKeyInfo PEM.
func (k *KeyManager) ExportPublicKeyPEM(key *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("signing: failed to marshal public key: %w", err)
	}

	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// LoadPrivateKeyPEM decodes a private key PEM, accepting PKCS#8 (preferred)
// or SEC1 EC PRIVATE KEY for interoperability. It rejects curves other than
// P-256.
func (k *KeyManager) LoadPrivateKeyPEM(pemData string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("signing: failed to decode PEM block")
	}

	var ecKey *ecdsa.PrivateKey

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		k, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("signing: PKCS8 key is not ECDSA")
		}
		ecKey = k
	} else {
		k, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("signing: failed to parse private key: %w", err)
		}
		ecKey = k
	}

	if ecKey.Curve != elliptic.P256() {
		return nil, fmt.Errorf("signing: private key curve is not P-256")
	}

	return ecKey, nil
}

// LoadPublicKeyPEM decodes a SubjectPublicKeyInfo PEM public key, rejecting
// curves other than P-256.
func (k *KeyManager) LoadPublicKeyPEM(pemData string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("signing: failed to decode PEM block")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("signing: failed to parse public key: %w", err)
	}

	ecKey, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("signing: key is not ECDSA")
	}

	if ecKey.Curve != elliptic.P256() {
		return nil, fmt.Errorf("signing: public key curve is not P-256")
	}

	return ecKey, nil
}

// CalculateKeyFingerprint computes the stable "sha256:<hex>" fingerprint of
// a public key over its SubjectPublicKeyInfo DER encoding.
func (k *KeyManager) CalculateKeyFingerprint(key *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("signing: failed to marshal public key for fingerprint: %w", err)
	}

	sum := sha256.Sum256(der)
	return fmt.Sprintf("sha256:%x", sum), nil
}

// CalculateKeyFingerprintFromPEM is a convenience wrapper combining
// LoadPublicKeyPEM and CalculateKeyFingerprint.
func (k *KeyManager) CalculateKeyFingerprintFromPEM(publicKeyPEM string) (string, error) {
	pub, err := k.LoadPublicKeyPEM(publicKeyPEM)
	if err != nil {
		return "", err
	}

	return k.CalculateKeyFingerprint(pub)
}
