package authproxy

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestFlowStore_CreateAndResolve(t *testing.T) {
	store := newFlowStore(15 * time.Minute)
	st := store.Create()

	assert.NotEmpty(t, st.deviceCode)
	assert.Regexp(t, `^[A-HJ-NP-Z]{4}-\d{4}$`, st.userCode)

	deviceCode, ok := store.ResolveUserCode(st.userCode)
	require.True(t, ok)
	assert.Equal(t, st.deviceCode, deviceCode)

	// Case and whitespace insensitive
	deviceCode, ok = store.ResolveUserCode("  " + strings.ToLower(st.userCode) + " ")
	require.True(t, ok)
	assert.Equal(t, st.deviceCode, deviceCode)
}

func TestFlowStore_ResolveUnknownCode(t *testing.T) {
	store := newFlowStore(15 * time.Minute)
	_, ok := store.ResolveUserCode("XXXX-0000")
	assert.False(t, ok)
}

func TestFlowStore_TokenDeliveredExactlyOnce(t *testing.T) {
	store := newFlowStore(15 * time.Minute)
	st := store.Create()

	_, status := store.Poll(st.deviceCode)
	assert.Equal(t, pollPending, status)

	require.True(t, store.AttachToken(st.deviceCode, &oauth2.Token{AccessToken: "tok"}))

	// The user code no longer resolves once the token is attached
	_, ok := store.ResolveUserCode(st.userCode)
	assert.False(t, ok)

	token, status := store.Poll(st.deviceCode)
	require.Equal(t, pollDelivered, status)
	assert.Equal(t, "tok", token.AccessToken)

	// Second poll must not see the token again
	token, status = store.Poll(st.deviceCode)
	assert.Equal(t, pollUnknown, status)
	assert.Nil(t, token)
}

func TestFlowStore_Expiry(t *testing.T) {
	store := newFlowStore(900 * time.Second)
	base := time.Now()
	store.now = func() time.Time { return base }

	st := store.Create()

	// Just past the TTL
	store.now = func() time.Time { return base.Add(920 * time.Second) }

	token, status := store.Poll(st.deviceCode)
	assert.Equal(t, pollExpired, status)
	assert.Nil(t, token)

	// Expired attempts are evicted; later polls see an unknown code
	_, status = store.Poll(st.deviceCode)
	assert.Equal(t, pollUnknown, status)

	_, ok := store.ResolveUserCode(st.userCode)
	assert.False(t, ok)
}

func TestFlowStore_SweepOnCreate(t *testing.T) {
	store := newFlowStore(time.Minute)
	base := time.Now()
	store.now = func() time.Time { return base }

	old := store.Create()
	store.now = func() time.Time { return base.Add(2 * time.Minute) }

	store.Create()
	assert.NotContains(t, store.byDevice, old.deviceCode)
}

func TestFlowStore_Denied(t *testing.T) {
	store := newFlowStore(15 * time.Minute)
	st := store.Create()

	require.True(t, store.MarkDenied(st.deviceCode))

	token, status := store.Poll(st.deviceCode)
	assert.Equal(t, pollDenied, status)
	assert.Nil(t, token)

	// Denial is reported once, then the code is gone
	_, status = store.Poll(st.deviceCode)
	assert.Equal(t, pollUnknown, status)
}

func TestFlowStore_AttachToUnknownCode(t *testing.T) {
	store := newFlowStore(15 * time.Minute)
	assert.False(t, store.AttachToken("missing", &oauth2.Token{AccessToken: "tok"}))
	assert.False(t, store.MarkDenied("missing"))
}

func TestNewUserCode_Format(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := newUserCode()
		assert.Regexp(t, `^[A-HJ-NP-Z]{4}-\d{4}$`, code)
		seen[code] = true
	}
	// Collisions in 100 draws would indicate a broken generator
	assert.Greater(t, len(seen), 95)
}
