package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// UploadsPrefix is the path under which LocalStore objects are served.
const UploadsPrefix = "/uploads/"

// Object is a stored upload.
type Object struct {
	ContentType string
	Data        []byte
}

// LocalStore keeps uploads in memory and signs its own upload URLs.
type LocalStore struct {
	baseURL string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	objects map[string]Object
}

// NewLocalStore serves objects below baseURL + UploadsPrefix.
func NewLocalStore(baseURL, secret string, ttl time.Duration) *LocalStore {
	return &LocalStore{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		objects: make(map[string]Object),
	}
}

// WithNowFunc allows tests to override the time source.
func (s *LocalStore) WithNowFunc(now func() time.Time) *LocalStore {
	s.now = now
	return s
}

// SetBaseURL changes the advertised origin once the listener address is known.
func (s *LocalStore) SetBaseURL(baseURL string) {
	s.mu.Lock()
	s.baseURL = strings.TrimSuffix(baseURL, "/")
	s.mu.Unlock()
}

func (s *LocalStore) Presign(_ context.Context, key, contentType string) (Target, error) {
	key, err := cleanKey(key)
	if err != nil {
		return Target{}, err
	}
	expires := strconv.FormatInt(s.now().Add(s.ttl).Unix(), 10)

	q := url.Values{}
	q.Set("expires", expires)
	q.Set("sig", s.sign(key, contentType, expires))

	s.mu.RLock()
	public := s.baseURL + UploadsPrefix + escapeKey(key)
	s.mu.RUnlock()
	return Target{UploadURL: public + "?" + q.Encode(), PublicURL: public}, nil
}

// Verify checks the signature and deadline of an upload request.
func (s *LocalStore) Verify(key, contentType, expires, sig string) error {
	want := s.sign(key, contentType, expires)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrBadSignature
	}
	deadline, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if s.now().Unix() > deadline {
		return ErrExpired
	}
	return nil
}

// Put stores data under key, replacing any previous object.
func (s *LocalStore) Put(key string, obj Object) {
	s.mu.Lock()
	s.objects[key] = obj
	s.mu.Unlock()
}

func (s *LocalStore) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

func (s *LocalStore) sign(key, contentType, expires string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key + "\n" + contentType + "\n" + expires))
	return hex.EncodeToString(mac.Sum(nil))
}
