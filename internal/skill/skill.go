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

// Package skill implements canonicalization, signing, and tamper detection
// for signed skill directories.
package skill

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// SignatureFilename is the name of the signature manifest placed at the root
// of a signed skill directory. It is always excluded from its own manifest.
const SignatureFilename = ".schemapin.sig"

// Signature is the on-disk manifest produced by SignSkill.
type Signature struct {
	SchemaPinVersion string            `json:"schemapin_version"`
	SkillName        string            `json:"skill_name"`
	SkillHash        string            `json:"skill_hash"`
	SignatureB64     string            `json:"signature"`
	SignedAt         string            `json:"signed_at"`
	Domain           string            `json:"domain"`
	SignerKID        string            `json:"signer_kid"`
	FileManifest     map[string]string `json:"file_manifest"`
}

// EmptySkillError is returned when a skill directory contains no signable
// files after skipping symlinks and the signature file itself.
type EmptySkillError struct {
	Path string
}

func (e *EmptySkillError) Error() string {
	return fmt.Sprintf("skill: no files found under %q", e.Path)
}

// walkSorted returns the relative, forward-slash-normalized paths of every
// regular file under root, skipping symlinks and SignatureFilename at any
// depth.
func walkSorted(root string) ([]string, error) {
	var paths []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		if info.IsDir() {
			return nil
		}

		if info.Name() == SignatureFilename {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("skill: failed to walk %q: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// CanonicalizeSkill computes the deterministic root hash and per-file
// manifest for the skill directory rooted at path, per the fixed wire
// contract: per-file digest is sha256(relpath_utf8 ‖ file_bytes), and the
// root hash is sha256 of the concatenated per-file hex digest strings in
// sorted path order.
func CanonicalizeSkill(path string) (rootHash [32]byte, manifest map[string]string, err error) {
	paths, err := walkSorted(path)
	if err != nil {
		return rootHash, nil, err
	}

	if len(paths) == 0 {
		return rootHash, nil, &EmptySkillError{Path: path}
	}

	manifest = make(map[string]string, len(paths))
	var concatenated strings.Builder

	for _, rel := range paths {
		data, err := os.ReadFile(filepath.Join(path, rel))
		if err != nil {
			return rootHash, nil, fmt.Errorf("skill: failed to read %q: %w", rel, err)
		}

		h := sha256.New()
		h.Write([]byte(rel))
		h.Write(data)
		digest := h.Sum(nil)
		hexDigest := hex.EncodeToString(digest)

		manifest[rel] = "sha256:" + hexDigest
		concatenated.WriteString(hexDigest)
	}

	rootHash = sha256.Sum256([]byte(concatenated.String()))

	return rootHash, manifest, nil
}

var skillNameFrontMatter = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---`)
var skillNameField = regexp.MustCompile(`(?m)^name:\s*['"]?([^'"#\n]+?)['"]?\s*$`)

// ParseSkillName extracts the skill name from SKILL.md front matter if
// present, falling back to the directory's basename.
func ParseSkillName(path string) string {
	data, err := os.ReadFile(filepath.Join(path, "SKILL.md"))
	if err == nil {
		if m := skillNameFrontMatter.FindSubmatch(data); m != nil {
			if nm := skillNameField.FindSubmatch(m[1]); nm != nil {
				return strings.TrimSpace(string(nm[1]))
			}
		}
	}

	return filepath.Base(filepath.Clean(path))
}

// TamperReport groups file-manifest differences between a signed manifest
// and the current state of a directory.
type TamperReport struct {
	Modified []string
	Added    []string
	Removed  []string
}

// DetectTamperedFiles compares the current manifest of a directory against
// the manifest recorded at signing time.
func DetectTamperedFiles(current, signed map[string]string) TamperReport {
	var report TamperReport

	for path, hash := range current {
		signedHash, ok := signed[path]
		if !ok {
			report.Added = append(report.Added, path)
			continue
		}
		if signedHash != hash {
			report.Modified = append(report.Modified, path)
		}
	}

	for path := range signed {
		if _, ok := current[path]; !ok {
			report.Removed = append(report.Removed, path)
		}
	}

	sort.Strings(report.Modified)
	sort.Strings(report.Added)
	sort.Strings(report.Removed)

	return report
}

// ParseSignature decodes a signature manifest from JSON bytes.
func ParseSignature(data []byte) (*Signature, error) {
	var sig Signature
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, fmt.Errorf("skill: failed to parse signature manifest: %w", err)
	}

	return &sig, nil
}

// LoadSignature reads and parses the signature manifest from the skill
// directory rooted at path.
func LoadSignature(path string) (*Signature, error) {
	data, err := os.ReadFile(filepath.Join(path, SignatureFilename))
	if err != nil {
		return nil, fmt.Errorf("skill: failed to read signature manifest: %w", err)
	}

	return ParseSignature(data)
}

// WriteSignature marshals and writes the signature manifest at the root of
// path.
func WriteSignature(path string, sig *Signature) error {
	data, err := json.MarshalIndent(sig, "", "  ")
	if err != nil {
		return fmt.Errorf("skill: failed to marshal signature manifest: %w", err)
	}

	if err := os.WriteFile(filepath.Join(path, SignatureFilename), data, 0o644); err != nil {
		return fmt.Errorf("skill: failed to write signature manifest: %w", err)
	}

	return nil
}
