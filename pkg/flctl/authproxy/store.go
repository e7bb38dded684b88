package authproxy

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// flowState is one in-flight device authorization attempt. It lives only in
// proxy memory and is lost on restart.
type flowState struct {
	deviceCode string
	userCode   string
	expiresAt  time.Time
	token      *oauth2.Token
	denied     bool
}

type pollStatus int

const (
	pollUnknown pollStatus = iota
	pollPending
	pollExpired
	pollDenied
	pollDelivered
)

// flowStore indexes device authorization attempts by device code and by user
// code. Expired records are swept lazily on access; there is no background
// timer. All methods are safe for concurrent use.
type flowStore struct {
	mu       sync.Mutex
	byDevice map[string]*flowState
	byUser   map[string]string
	codeTTL  time.Duration
	now      func() time.Time
}

func newFlowStore(codeTTL time.Duration) *flowStore {
	return &flowStore{
		byDevice: map[string]*flowState{},
		byUser:   map[string]string{},
		codeTTL:  codeTTL,
		now:      time.Now,
	}
}

// Create sweeps expired attempts and registers a fresh code pair.
func (s *flowStore) Create() *flowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	st := &flowState{
		deviceCode: uuid.NewString(),
		userCode:   newUserCode(),
		expiresAt:  s.now().Add(s.codeTTL),
	}
	s.byDevice[st.deviceCode] = st
	s.byUser[strings.ToUpper(st.userCode)] = st.deviceCode
	return st
}

// ResolveUserCode maps a user code to its device code, case-insensitively.
// Codes already authorized no longer resolve: the user index entry is removed
// when the token is attached.
func (s *flowStore) ResolveUserCode(userCode string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	deviceCode, ok := s.byUser[strings.ToUpper(strings.TrimSpace(userCode))]
	return deviceCode, ok
}

// AttachToken records the exchanged token on the attempt and removes the user
// code index entry so the code cannot be verified a second time.
func (s *flowStore) AttachToken(deviceCode string, token *oauth2.Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	st, ok := s.byDevice[deviceCode]
	if !ok {
		return false
	}
	st.token = token
	delete(s.byUser, strings.ToUpper(st.userCode))
	return true
}

// MarkDenied records a provider rejection for the attempt.
func (s *flowStore) MarkDenied(deviceCode string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	st, ok := s.byDevice[deviceCode]
	if !ok {
		return false
	}
	st.denied = true
	delete(s.byUser, strings.ToUpper(st.userCode))
	return true
}

// Poll reports the attempt's state. A delivered token is removed atomically:
// the first poll after attachment receives it, every later poll sees an
// unknown code. Expired and denied attempts are evicted on observation.
func (s *flowStore) Poll(deviceCode string) (*oauth2.Token, pollStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byDevice[deviceCode]
	if !ok {
		return nil, pollUnknown
	}
	if s.now().After(st.expiresAt) {
		s.evict(st)
		return nil, pollExpired
	}
	if st.denied {
		s.evict(st)
		return nil, pollDenied
	}
	if st.token == nil {
		return nil, pollPending
	}
	token := st.token
	s.evict(st)
	return token, pollDelivered
}

func (s *flowStore) evict(st *flowState) {
	delete(s.byDevice, st.deviceCode)
	delete(s.byUser, strings.ToUpper(st.userCode))
}

func (s *flowStore) sweep() {
	now := s.now()
	for _, st := range s.byDevice {
		if now.After(st.expiresAt) {
			s.evict(st)
		}
	}
}

// newUserCode produces a short human-typeable code, e.g. "QWJH-0482".
func newUserCode() string {
	const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "0123456789"
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure is unrecoverable for code issuance
		panic(fmt.Sprintf("authproxy: rand failed: %v", err))
	}
	out := make([]byte, 0, 9)
	for i := 0; i < 4; i++ {
		out = append(out, letters[int(buf[i])%len(letters)])
	}
	out = append(out, '-')
	for i := 4; i < 8; i++ {
		out = append(out, digits[int(buf[i])%len(digits)])
	}
	return string(out)
}
