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

// Package resolver provides pluggable discovery/revocation document lookup
// by domain (C5).
package resolver

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"schemapin/internal/discovery"
	"schemapin/internal/revocation"
)

// SchemaResolver is the abstract capability the verification engine calls
// at most once per (domain, which-doc) pair per verification.
type SchemaResolver interface {
	ResolveDiscovery(ctx context.Context, domain string) (*discovery.WellKnownResponse, error)
	ResolveRevocation(ctx context.Context, domain string, disc *discovery.WellKnownResponse) (*revocation.Document, error)
}

// WellKnownResolver resolves documents over HTTPS from a domain's
// .well-known endpoint.
type WellKnownResolver struct {
	client *http.Client
}

// NewWellKnownResolver returns a WellKnownResolver with the given timeout.
func NewWellKnownResolver(timeout time.Duration) *WellKnownResolver {
	return &WellKnownResolver{client: &http.Client{Timeout: timeout}}
}

// ResolveDiscovery fetches and parses https://<domain>/.well-known/schemapin.json.
// Network and parse errors yield (nil, nil) rather than an error, matching
// the spec's "∅ on failure" contract for discovery resolution.
func (r *WellKnownResolver) ResolveDiscovery(ctx context.Context, domain string) (*discovery.WellKnownResponse, error) {
	url := discovery.ConstructWellKnownURL(domain)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var doc discovery.WellKnownResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, nil
	}

	if !doc.Validate() {
		return nil, nil
	}

	return &doc, nil
}

// ResolveRevocation fetches the standalone revocation document named by
// disc.RevocationEndpoint, if any. A fetch failure is non-fatal and yields
// (nil, nil).
func (r *WellKnownResolver) ResolveRevocation(ctx context.Context, domain string, disc *discovery.WellKnownResponse) (*revocation.Document, error) {
	if disc == nil || disc.RevocationEndpoint == "" {
		return nil, nil
	}

	doc, err := revocation.FetchDocument(ctx, r.client, disc.RevocationEndpoint)
	if err != nil {
		return nil, nil
	}

	return doc, nil
}

// LocalFileResolver resolves discovery documents from <dir>/<domain>.json.
type LocalFileResolver struct {
	Dir string
}

// NewLocalFileResolver returns a LocalFileResolver rooted at dir.
func NewLocalFileResolver(dir string) *LocalFileResolver {
	return &LocalFileResolver{Dir: dir}
}

// ResolveDiscovery reads and parses <dir>/<domain>.json.
func (r *LocalFileResolver) ResolveDiscovery(_ context.Context, domain string) (*discovery.WellKnownResponse, error) {
	data, err := os.ReadFile(filepath.Join(r.Dir, domain+".json"))
	if err != nil {
		return nil, nil
	}

	var doc discovery.WellKnownResponse
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil
	}

	return &doc, nil
}

// ResolveRevocation reads and parses <dir>/<domain>.revocation.json.
func (r *LocalFileResolver) ResolveRevocation(_ context.Context, domain string, _ *discovery.WellKnownResponse) (*revocation.Document, error) {
	data, err := os.ReadFile(filepath.Join(r.Dir, domain+".revocation.json"))
	if err != nil {
		return nil, nil
	}

	var doc revocation.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil
	}

	return &doc, nil
}

// TrustBundleResolver resolves documents from an in-memory trust bundle
// (see internal/bundle), by linear lookup on domain.
type TrustBundleResolver struct {
	findDiscovery  func(domain string) *discovery.WellKnownResponse
	findRevocation func(domain string) *revocation.Document
}

// NewTrustBundleResolver builds a TrustBundleResolver from lookup functions,
// decoupling this package from internal/bundle's concrete type to avoid an
// import cycle between the two.
func NewTrustBundleResolver(
	findDiscovery func(domain string) *discovery.WellKnownResponse,
	findRevocation func(domain string) *revocation.Document,
) *TrustBundleResolver {
	return &TrustBundleResolver{findDiscovery: findDiscovery, findRevocation: findRevocation}
}

// ResolveDiscovery looks up domain in the bundle.
func (r *TrustBundleResolver) ResolveDiscovery(_ context.Context, domain string) (*discovery.WellKnownResponse, error) {
	return r.findDiscovery(domain), nil
}

// ResolveRevocation looks up domain's revocation document in the bundle.
func (r *TrustBundleResolver) ResolveRevocation(_ context.Context, domain string, _ *discovery.WellKnownResponse) (*revocation.Document, error) {
	return r.findRevocation(domain), nil
}

// ChainResolver tries each resolver in order and returns the first non-nil
// result.
type ChainResolver struct {
	Resolvers []SchemaResolver
}

// NewChainResolver returns a ChainResolver over resolvers, tried in order.
func NewChainResolver(resolvers ...SchemaResolver) *ChainResolver {
	return &ChainResolver{Resolvers: resolvers}
}

// ResolveDiscovery returns the first non-nil discovery document, or nil if
// every resolver in the chain yields nil. A member that fails is treated
// as yielding nil and the chain continues.
func (c *ChainResolver) ResolveDiscovery(ctx context.Context, domain string) (*discovery.WellKnownResponse, error) {
	for _, r := range c.Resolvers {
		doc, err := r.ResolveDiscovery(ctx, domain)
		if err != nil {
			continue
		}
		if doc != nil {
			return doc, nil
		}
	}

	return nil, nil
}

// ResolveRevocation returns the first non-nil revocation document. A member
// that fails is treated as yielding nil and the chain continues.
func (c *ChainResolver) ResolveRevocation(ctx context.Context, domain string, disc *discovery.WellKnownResponse) (*revocation.Document, error) {
	for _, r := range c.Resolvers {
		doc, err := r.ResolveRevocation(ctx, domain, disc)
		if err != nil {
			continue
		}
		if doc != nil {
			return doc, nil
		}
	}

	return nil, nil
}
