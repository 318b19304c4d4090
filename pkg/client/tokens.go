package client

import "sync"

// Tokens is the credential pair issued by login, register and refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenStore holds the current token pair behind a mutex.
type TokenStore struct {
	mu     sync.RWMutex
	tokens Tokens
}

func (s *TokenStore) Set(t Tokens) {
	s.mu.Lock()
	s.tokens = t
	s.mu.Unlock()
}

func (s *TokenStore) Get() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

func (s *TokenStore) AccessToken() string {
	return s.Get().AccessToken
}

func (s *TokenStore) Clear() {
	s.Set(Tokens{})
}

// HasSession reports whether a refreshable session is stored.
func (s *TokenStore) HasSession() bool {
	t := s.Get()
	return t.AccessToken != "" && t.RefreshToken != ""
}
