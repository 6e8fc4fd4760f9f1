package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ExpiryBuffer is subtracted from the stored expiry so a token is never handed out
// moments before it lapses.
const ExpiryBuffer = 60 * time.Second

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyIDToken      = "id_token"
	keyExpiresAt    = "expires_at"
	keyUserEmail    = "user_email"
	keyUserID       = "user_id"
)

// StoredCredentials is the persisted record. Empty strings and a zero ExpiresAt mean
// the field is absent.
type StoredCredentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	// ExpiresAt is the absolute expiry in milliseconds since the Unix epoch.
	ExpiresAt int64  `json:"expires_at,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// Tokens is a freshly issued token set as written by SetTokens.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	// ExpiresIn is the lifetime in seconds relative to the time of the write.
	ExpiresIn int64
}

// record is the on-disk shape; raw values keep unknown keys intact across merges.
type record map[string]json.RawMessage

func (r record) setString(key, value string) {
	if value == "" {
		return
	}
	raw, _ := json.Marshal(value)
	r[key] = raw
}

func (r record) setInt(key string, value int64) {
	if value == 0 {
		return
	}
	raw, _ := json.Marshal(value)
	r[key] = raw
}

type Store struct {
	backend Backend
	now     func() time.Time
	log     *zap.SugaredLogger
}

type Option func(*Store)

// WithClock overrides the time source used for expiry arithmetic.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
		log:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFileStore is a shorthand for a Store backed by the file at path.
func NewFileStore(path string, opts ...Option) *Store {
	return NewStore(&FileBackend{Path: path}, opts...)
}

func (s *Store) Location() string {
	return s.backend.Location()
}

// Load returns the stored credentials. A missing, unreadable or malformed record
// reports false; it is never an error for the caller.
func (s *Store) Load() (StoredCredentials, bool) {
	data, err := s.backend.Read()
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Debugw("Ignoring unreadable credentials", "location", s.Location(), "error", err)
		}
		return StoredCredentials{}, false
	}
	var creds StoredCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		s.log.Debugw("Ignoring malformed credentials", "location", s.Location(), "error", err)
		return StoredCredentials{}, false
	}
	if creds.AccessToken == "" {
		return StoredCredentials{}, false
	}
	return creds, true
}

// Save merges the present fields of creds into the stored record.
func (s *Store) Save(creds StoredCredentials) error {
	return s.update(func(r record) {
		r.setString(keyAccessToken, creds.AccessToken)
		r.setString(keyRefreshToken, creds.RefreshToken)
		r.setString(keyIDToken, creds.IDToken)
		r.setInt(keyExpiresAt, creds.ExpiresAt)
		r.setString(keyUserEmail, creds.UserEmail)
		r.setString(keyUserID, creds.UserID)
	})
}

// SetTokens stores a token set, computing the absolute expiry from ExpiresIn. A
// missing refresh or id token leaves the previously stored one in place.
func (s *Store) SetTokens(tokens Tokens) error {
	if tokens.AccessToken == "" {
		return errors.New("access token is required")
	}
	expiresAt := s.now().UnixMilli() + tokens.ExpiresIn*1000
	return s.update(func(r record) {
		r.setString(keyAccessToken, tokens.AccessToken)
		r.setString(keyRefreshToken, tokens.RefreshToken)
		r.setString(keyIDToken, tokens.IDToken)
		raw, _ := json.Marshal(expiresAt)
		r[keyExpiresAt] = raw
	})
}

// SetUserInfo stores the identity of the logged in user. An empty email keeps the stored one.
func (s *Store) SetUserInfo(email, userID string) error {
	return s.update(func(r record) {
		r.setString(keyUserEmail, email)
		raw, _ := json.Marshal(userID)
		r[keyUserID] = raw
	})
}

// Clear removes the record. It is safe to call when nothing is stored.
func (s *Store) Clear() error {
	return s.backend.Remove()
}

func (s *Store) IsAuthenticated() bool {
	_, ok := s.Load()
	return ok
}

// IsExpired reports whether the stored access token is missing an expiry or is
// within ExpiryBuffer of it.
func (s *Store) IsExpired() bool {
	creds, ok := s.Load()
	if !ok {
		return true
	}
	return creds.Expired(s.now())
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}

// Expired reports whether the credentials are expired at now, including ExpiryBuffer.
func (c StoredCredentials) Expired(now time.Time) bool {
	if c.ExpiresAt == 0 {
		return true
	}
	return now.UnixMilli() > c.ExpiresAt-ExpiryBuffer.Milliseconds()
}

// ExpiryTime returns ExpiresAt as a time, or the zero time when absent.
func (c StoredCredentials) ExpiryTime() time.Time {
	if c.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(c.ExpiresAt)
}

func (s *Store) read() record {
	data, err := s.backend.Read()
	if err != nil {
		return record{}
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil || r == nil {
		s.log.Debugw("Replacing malformed credentials", "location", s.Location())
		return record{}
	}
	return r
}

// update performs the read-merge-write. It is not guarded against concurrent
// arclio processes writing the same record.
func (s *Store) update(merge func(record)) error {
	r := s.read()
	merge(r)
	content, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := s.backend.Write(content); err != nil {
		return err
	}
	s.log.Debugw("Saved credentials", "location", s.Location(), "keys", len(r))
	return nil
}
