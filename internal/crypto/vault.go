package crypto

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/persistorai/caseqc/internal/config"
)

const (
	defaultKeyTTL    = 15 * time.Minute
	defaultVaultPath = "secret/data/caseqc/keys"
	maxVaultBody     = 1 << 20
)

// Key IDs end up in a URL path, so they are restricted to a safe alphabet.
var keyIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// VaultOption configures a VaultProvider.
type VaultOption func(*VaultProvider)

// WithVaultPath sets the KV v2 data path keys are read from.
func WithVaultPath(path string) VaultOption {
	return func(p *VaultProvider) { p.path = path }
}

// WithKeyTTL sets how long a fetched key is served from memory.
func WithKeyTTL(ttl time.Duration) VaultOption {
	return func(p *VaultProvider) { p.ttl = ttl }
}

// WithVaultClock overrides the clock used for key expiry.
func WithVaultClock(now func() time.Time) VaultOption {
	return func(p *VaultProvider) { p.now = now }
}

// VaultProvider reads base64 AES-256 keys from a HashiCorp Vault KV v2 mount
// and keeps them in memory for a bounded time.
type VaultProvider struct {
	addr   string
	path   string
	token  config.Secret
	client *http.Client
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	keys  map[string]vaultKey
	fetch singleflight.Group
}

type vaultKey struct {
	key     []byte
	expires time.Time
}

// NewVaultProvider creates a VaultProvider for the Vault at addr.
func NewVaultProvider(addr, token string, opts ...VaultOption) *VaultProvider {
	p := &VaultProvider{
		addr:  addr,
		path:  defaultVaultPath,
		token: config.Secret(token),
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		ttl:  defaultKeyTTL,
		now:  time.Now,
		keys: make(map[string]vaultKey),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// GetKey returns a copy of the key for keyID. Concurrent misses for the same
// ID share one Vault request.
func (p *VaultProvider) GetKey(ctx context.Context, keyID string) ([]byte, error) {
	if !keyIDPattern.MatchString(keyID) {
		return nil, fmt.Errorf("crypto/vault: invalid key ID format: %q", keyID)
	}

	if key, ok := p.cached(keyID); ok {
		return key, nil
	}

	v, err, _ := p.fetch.Do(keyID, func() (any, error) {
		if key, ok := p.cached(keyID); ok {
			return key, nil
		}

		key, err := p.read(ctx, keyID)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.keys[keyID] = vaultKey{key: key, expires: p.now().Add(p.ttl)}
		p.mu.Unlock()

		return key, nil
	})
	if err != nil {
		return nil, err
	}

	return append([]byte(nil), v.([]byte)...), nil //nolint:forcetypeassert // only []byte is stored.
}

func (p *VaultProvider) cached(keyID string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	k, ok := p.keys[keyID]
	if !ok {
		return nil, false
	}

	if !p.now().Before(k.expires) {
		delete(p.keys, keyID)
		return nil, false
	}

	return append([]byte(nil), k.key...), true
}

// read fetches one key from Vault.
func (p *VaultProvider) read(ctx context.Context, keyID string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/v1/%s/%s", p.addr, p.path, url.PathEscape(keyID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("crypto/vault: create request: %w", err)
	}
	req.Header.Set("X-Vault-Token", p.token.Value())

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crypto/vault: request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body.

	body := io.LimitReader(resp.Body, maxVaultBody)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("crypto/vault: no encryption key %q found at %s", keyID, p.path)
	default:
		msg, _ := io.ReadAll(body)
		return nil, fmt.Errorf("crypto/vault: unexpected status %d: %s", resp.StatusCode, msg)
	}

	var payload struct {
		Data struct {
			Data struct {
				Key string `json:"encryption_key"`
			} `json:"data"`
		} `json:"data"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("crypto/vault: decode response: %w", err)
	}

	if payload.Data.Data.Key == "" {
		return nil, fmt.Errorf("crypto/vault: encryption_key field missing for key %q", keyID)
	}

	key, err := base64.StdEncoding.DecodeString(payload.Data.Data.Key)
	if err != nil {
		return nil, fmt.Errorf("crypto/vault: decode base64 key: %w", err)
	}

	if len(key) != 32 {
		return nil, fmt.Errorf("crypto/vault: key must be 32 bytes, got %d", len(key))
	}

	return key, nil
}
