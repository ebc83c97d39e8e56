package services

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/99designs/keyring"

	"alignstudio/internal/database"
	"alignstudio/internal/llm/client"
	"alignstudio/internal/models"
)

const serviceName = "alignstudio"

func GetOS() string {
	return runtime.GOOS
}

// desktopBackends are the OS credential stores usable without a terminal.
var desktopBackends = []keyring.BackendType{
	keyring.KeychainBackend,
	keyring.WinCredBackend,
	keyring.SecretServiceBackend,
	keyring.KWalletBackend,
}

// KeyringConfig describes the credential store. Only an interactive
// process may fall back to the password-protected file backend.
func KeyringConfig(interactive bool) keyring.Config {
	cfg := keyring.Config{
		ServiceName:              serviceName,
		KeychainTrustApplication: true,
		LibSecretCollectionName:  serviceName,
		KWalletAppID:             serviceName,
		KWalletFolder:            serviceName,
		WinCredPrefix:            serviceName,
		AllowedBackends:          desktopBackends,
	}
	if interactive {
		cfg.AllowedBackends = append(append([]keyring.BackendType{}, desktopBackends...), keyring.FileBackend)
		cfg.FileDir = filepath.Join(database.AppDataDir(), "keys")
		cfg.FilePasswordFunc = keyring.TerminalPrompt
	}
	return cfg
}

// OpenSystemKeyring opens the OS credential store.
func OpenSystemKeyring(interactive bool) (keyring.Keyring, error) {
	ring, err := keyring.Open(KeyringConfig(interactive))
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return ring, nil
}

// KeyringService stores provider API keys. Lookups fall back to the
// environment when no key has been saved.
type KeyringService struct {
	mu        sync.RWMutex
	ring      keyring.Keyring
	fallbacks map[string]string
}

func NewKeyringService(ring keyring.Keyring, fallbacks map[string]string) *KeyringService {
	if fallbacks == nil {
		fallbacks = map[string]string{}
	}
	return &KeyringService{ring: ring, fallbacks: fallbacks}
}

func (s *KeyringService) StoreApiKey(provider string, apiKey []byte) error {
	provider = models.NormalizeProvider(provider)
	if provider == "" {
		return errors.New("provider is required")
	}
	value := strings.TrimSpace(string(apiKey))
	if value == "" {
		return errors.New("API key is empty")
	}
	if err := ValidateAPIKey(provider, value); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.Set(keyring.Item{
		Key:         provider,
		Data:        []byte(value),
		Label:       models.ProviderLabel(provider) + " API key",
		Description: "API key for " + models.ProviderLabel(provider) + " used by Alignment Studio",
	})
}

// GetApiKey returns the stored key for provider, or the environment
// fallback. An unknown provider with nothing configured yields "".
func (s *KeyringService) GetApiKey(provider string) (string, error) {
	provider = models.NormalizeProvider(provider)
	if provider == "" {
		return "", errors.New("provider is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	item, err := s.ring.Get(provider)
	if err == nil {
		return string(item.Data), nil
	}
	if !errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("failed to read %s key: %w", provider, err)
	}
	return s.fallbacks[provider], nil
}

func (s *KeyringService) DeleteApiKey(provider string) error {
	provider = models.NormalizeProvider(provider)
	if provider == "" {
		return errors.New("provider is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ring.Remove(provider); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

// ListApiKeys describes every provider that has a stored key.
func (s *KeyringService) ListApiKeys() ([]map[string]string, error) {
	s.mu.RLock()
	keys, err := s.ring.Keys()
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	results := make([]map[string]string, 0, len(keys))
	for _, provider := range keys {
		label := models.ProviderLabel(provider)
		results = append(results, map[string]string{
			"provider":    provider,
			"label":       label + " API key",
			"description": "API key for " + label + " used by Alignment Studio",
		})
	}
	return results, nil
}

// ResolveCredentials collects the effective secret for every provider.
// Read failures are treated as "not configured".
func (s *KeyringService) ResolveCredentials() client.Credentials {
	get := func(provider string) string {
		v, err := s.GetApiKey(provider)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(v)
	}
	return client.Credentials{
		Anthropic:     get(models.ProviderAnthropic),
		OpenAI:        get(models.ProviderOpenAI),
		Gemini:        get(models.ProviderGemini),
		OllamaBaseURL: client.NormalizeOllamaBaseURL(get(models.ProviderOllama)),
	}
}
