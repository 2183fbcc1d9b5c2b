package verification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-account-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore mirrors the DynamoDB repo's semantics in memory: a record map
// keyed (user_id, kind) so Replace supersedes atomically, and a conditional
// Consume matching on key material so consumption is exactly-once.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]domain.UserVerification // "userID/kind"
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]domain.UserVerification)}
}

func rk(userID string, kind domain.VerificationKind) string {
	return userID + "/" + string(kind)
}

func (f *fakeStore) Replace(_ context.Context, v *domain.UserVerification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rk(v.UserID, domain.VerificationKind(v.Kind))] = *v
	return nil
}

func (f *fakeStore) GetByKey(_ context.Context, kind domain.VerificationKind, key string) (*domain.UserVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.records {
		if v.Kind == string(kind) && v.Key == key {
			out := v
			return &out, nil
		}
	}
	return nil, domain.ErrVerificationNotFound
}

func (f *fakeStore) GetByUser(_ context.Context, userID string, kind domain.VerificationKind) (*domain.UserVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.records[rk(userID, kind)]; ok {
		out := v
		return &out, nil
	}
	return nil, domain.ErrVerificationNotFound
}

func (f *fakeStore) Consume(_ context.Context, v *domain.UserVerification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.records[rk(v.UserID, domain.VerificationKind(v.Kind))]
	if !ok || cur.Key != v.Key {
		return domain.ErrVerificationNotFound
	}
	delete(f.records, rk(v.UserID, domain.VerificationKind(v.Kind)))
	return nil
}

func (f *fakeStore) ConsumeByKey(ctx context.Context, kind domain.VerificationKind, key string) (*domain.UserVerification, error) {
	v, err := f.GetByKey(ctx, kind, key)
	if err != nil {
		return nil, err
	}
	if err := f.Consume(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (f *fakeStore) DeleteByUser(_ context.Context, userID string, kind domain.VerificationKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, rk(userID, kind))
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// recordingNotifier captures dispatched deliveries.
type recordingNotifier struct {
	mu       sync.Mutex
	accounts []string // urls
	mfaEmail []string // codes
	mfaSMS   []string // codes
	resets   []string // urls
}

func (n *recordingNotifier) SendAccountVerification(_, _, url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accounts = append(n.accounts, url)
}
func (n *recordingNotifier) SendMfaCodeEmail(_, _, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mfaEmail = append(n.mfaEmail, code)
}
func (n *recordingNotifier) SendMfaCodeSMS(_, _, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mfaSMS = append(n.mfaSMS, code)
}
func (n *recordingNotifier) SendResetPasswordURL(_, _, url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, url)
}

func newTestService(store Store, n Notifier) *service {
	return NewService(store, n, "http://localhost:3000", 24*time.Hour, 10*time.Minute).(*service)
}

func testUser() *domain.User {
	return &domain.User{
		UserID:    "u1",
		Email:     "alice@example.com",
		FirstName: "Alice",
		MfaType:   domain.MfaTypeEmail,
	}
}

func TestIssue_Account_NoExpiry(t *testing.T) {
	store := newFakeStore()
	n := &recordingNotifier{}
	svc := newTestService(store, n)

	v, err := svc.Issue(context.Background(), testUser(), domain.VerificationAccount)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.ExpiresAt)
	assert.NotEmpty(t, v.Key)
	require.Len(t, n.accounts, 1)
	assert.Contains(t, n.accounts[0], "/users/verify/account/"+v.Key)
}

func TestIssue_Mfa_CodeShapeAndTTL(t *testing.T) {
	store := newFakeStore()
	n := &recordingNotifier{}
	svc := newTestService(store, n)

	before := time.Now()
	v, err := svc.Issue(context.Background(), testUser(), domain.VerificationMfa)
	require.NoError(t, err)
	assert.Len(t, v.Key, 8)
	assert.InDelta(t, before.Add(24*time.Hour).Unix(), v.ExpiresAt, 2)
	require.Len(t, n.mfaEmail, 1)
	assert.Equal(t, v.Key, n.mfaEmail[0])
}

func TestIssue_Mfa_SMSChannel(t *testing.T) {
	store := newFakeStore()
	n := &recordingNotifier{}
	svc := newTestService(store, n)

	phone := "+15550001111"
	u := testUser()
	u.MfaType = domain.MfaTypeSMS
	u.Phone = &phone

	_, err := svc.Issue(context.Background(), u, domain.VerificationMfa)
	require.NoError(t, err)
	assert.Len(t, n.mfaSMS, 1)
	assert.Empty(t, n.mfaEmail)
}

func TestIssue_ReplacesExistingRecord(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})

	first, err := svc.Issue(context.Background(), testUser(), domain.VerificationReset)
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), testUser(), domain.VerificationReset)
	require.NoError(t, err)

	assert.Equal(t, 1, store.count())

	// Only the newest key is live; the superseded one is gone.
	_, err = svc.ConsumeKey(context.Background(), domain.VerificationReset, first.Key)
	assert.True(t, errors.Is(err, domain.ErrVerificationNotFound))
	_, err = svc.ConsumeKey(context.Background(), domain.VerificationReset, second.Key)
	assert.NoError(t, err)
}

func TestIssue_ConcurrentSameUser_OneSurvivor(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})

	const parallel = 16
	var wg sync.WaitGroup
	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Issue(context.Background(), testUser(), domain.VerificationMfa)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.count())
}

func TestConsumeKey_ExactlyOnce(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})

	v, err := svc.Issue(context.Background(), testUser(), domain.VerificationAccount)
	require.NoError(t, err)

	got, err := svc.ConsumeKey(context.Background(), domain.VerificationAccount, v.Key)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	// Replay fails with not-found, never expired.
	_, err = svc.ConsumeKey(context.Background(), domain.VerificationAccount, v.Key)
	assert.True(t, errors.Is(err, domain.ErrVerificationNotFound))
}

func TestConsumeKey_ExpiredDeletesRecord(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})

	v := &domain.UserVerification{
		UserID:    "u1",
		Kind:      string(domain.VerificationReset),
		Key:       "expired-key",
		ExpiresAt: time.Now().Add(-time.Second).Unix(),
	}
	require.NoError(t, store.Replace(context.Background(), v))

	_, err := svc.ConsumeKey(context.Background(), domain.VerificationReset, "expired-key")
	assert.True(t, errors.Is(err, domain.ErrVerificationExpired))
	assert.Equal(t, 0, store.count(), "expired record must not linger")

	_, err = svc.ConsumeKey(context.Background(), domain.VerificationReset, "expired-key")
	assert.True(t, errors.Is(err, domain.ErrVerificationNotFound))
}

func TestPeekKey_DoesNotConsume(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})

	v, err := svc.Issue(context.Background(), testUser(), domain.VerificationReset)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, err := svc.PeekKey(context.Background(), domain.VerificationReset, v.Key)
		require.NoError(t, err)
		assert.Equal(t, "u1", got.UserID)
	}
	assert.Equal(t, 1, store.count())
}

func TestPeekKey_ExpiredDeletes(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})

	v := &domain.UserVerification{
		UserID:    "u1",
		Kind:      string(domain.VerificationReset),
		Key:       "stale",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}
	require.NoError(t, store.Replace(context.Background(), v))

	_, err := svc.PeekKey(context.Background(), domain.VerificationReset, "stale")
	assert.True(t, errors.Is(err, domain.ErrVerificationExpired))
	assert.Equal(t, 0, store.count())
}

func TestConsumeMfaCode_Success(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})

	v, err := svc.Issue(context.Background(), testUser(), domain.VerificationMfa)
	require.NoError(t, err)

	require.NoError(t, svc.ConsumeMfaCode(context.Background(), "u1", v.Key))
	assert.Equal(t, 0, store.count())

	// Same code again: record is gone.
	err = svc.ConsumeMfaCode(context.Background(), "u1", v.Key)
	assert.True(t, errors.Is(err, domain.ErrVerificationNotFound))
}

func TestConsumeMfaCode_MismatchKeepsRecord(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})

	v, err := svc.Issue(context.Background(), testUser(), domain.VerificationMfa)
	require.NoError(t, err)

	err = svc.ConsumeMfaCode(context.Background(), "u1", "WRONG123")
	assert.True(t, errors.Is(err, domain.ErrMfaCodeInvalid))
	assert.Equal(t, 1, store.count(), "mismatch must not burn the record")

	// Correct code still works afterwards.
	require.NoError(t, svc.ConsumeMfaCode(context.Background(), "u1", v.Key))
}

func TestConsumeMfaCode_ExpiredDeletes(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})

	v := &domain.UserVerification{
		UserID:    "u1",
		Kind:      string(domain.VerificationMfa),
		Key:       "ABCDEFGH",
		ExpiresAt: time.Now().Add(-time.Second).Unix(),
	}
	require.NoError(t, store.Replace(context.Background(), v))

	err := svc.ConsumeMfaCode(context.Background(), "u1", "ABCDEFGH")
	assert.True(t, errors.Is(err, domain.ErrVerificationExpired))
	assert.Equal(t, 0, store.count())
}

func TestConsumeMfaCode_NoRecord(t *testing.T) {
	svc := newTestService(newFakeStore(), &recordingNotifier{})
	err := svc.ConsumeMfaCode(context.Background(), "u1", "ABCDEFGH")
	assert.True(t, errors.Is(err, domain.ErrVerificationNotFound))
}

// failingStore wraps fakeStore to simulate a key collision on first lookups.
type collidingStore struct {
	*fakeStore
	collisions int
	calls      int
	mu         sync.Mutex
}

func (c *collidingStore) GetByKey(ctx context.Context, kind domain.VerificationKind, key string) (*domain.UserVerification, error) {
	c.mu.Lock()
	c.calls++
	collide := c.calls <= c.collisions
	c.mu.Unlock()
	if collide {
		return &domain.UserVerification{UserID: "someone-else", Kind: string(kind), Key: key}, nil
	}
	return c.fakeStore.GetByKey(ctx, kind, key)
}

func TestIssue_KeyCollisionRegenerates(t *testing.T) {
	store := &collidingStore{fakeStore: newFakeStore(), collisions: 2}
	svc := newTestService(store, &recordingNotifier{})

	v, err := svc.Issue(context.Background(), testUser(), domain.VerificationReset)
	require.NoError(t, err)
	assert.NotEmpty(t, v.Key)
	assert.Equal(t, 1, store.count())
}

func TestIssue_KeyCollisionExhaustsRetries(t *testing.T) {
	store := &collidingStore{fakeStore: newFakeStore(), collisions: maxKeyAttempts}
	svc := newTestService(store, &recordingNotifier{})

	_, err := svc.Issue(context.Background(), testUser(), domain.VerificationReset)
	require.Error(t, err)
	assert.Equal(t, 0, store.count())
}

func TestRevoke_RemovesPendingRecord(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingNotifier{})

	v, err := svc.Issue(context.Background(), testUser(), domain.VerificationReset)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), "u1", domain.VerificationReset))
	_, err = svc.PeekKey(context.Background(), domain.VerificationReset, v.Key)
	assert.ErrorIs(t, err, domain.ErrVerificationNotFound)

	// Revoking again is a no-op.
	require.NoError(t, svc.Revoke(context.Background(), "u1", domain.VerificationReset))
}

func TestVerificationURL(t *testing.T) {
	svc := newTestService(newFakeStore(), &recordingNotifier{})
	url := svc.verificationURL("password", "k123")
	assert.Equal(t, fmt.Sprintf("%s/users/verify/password/k123", "http://localhost:3000"), url)
}
