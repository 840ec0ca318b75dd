package otp

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-otp-gate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore mirrors the DynamoDB repo: every Put adds a row, Latest picks the
// highest otp_id, Consume is conditional on consumed=false.
type memStore struct {
	mu      sync.Mutex
	rows    map[string][]*domain.OTPRecord
	failPut error
}

func newMemStore() *memStore { return &memStore{rows: map[string][]*domain.OTPRecord{}} }

func (m *memStore) Put(_ context.Context, rec *domain.OTPRecord) error {
	if m.failPut != nil {
		return m.failPut
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.rows[rec.Key] = append(m.rows[rec.Key], &cp)
	sort.Slice(m.rows[rec.Key], func(i, j int) bool { return m.rows[rec.Key][i].OTPID < m.rows[rec.Key][j].OTPID })
	return nil
}

func (m *memStore) Latest(_ context.Context, key string) (*domain.OTPRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rows[key]
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	cp := *rows[len(rows)-1]
	return &cp, nil
}

func (m *memStore) Consume(_ context.Context, key, otpID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows[key] {
		if r.OTPID == otpID {
			if r.Consumed {
				return domain.ErrConflict
			}
			r.Consumed = true
			return nil
		}
	}
	return domain.ErrConflict
}

func (m *memStore) RecordFailure(_ context.Context, key, otpID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows[key] {
		if r.OTPID == otpID {
			r.Attempts++
			return nil
		}
	}
	return domain.ErrNotFound
}

func newTestService(store Store) *service {
	return &service{store: store, ttl: 10 * time.Minute, length: 6, now: time.Now}
}

func TestIssue_GeneratesNumericCode(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	code, err := svc.Issue(context.Background(), " A@B.com ", domain.PurposeLogin)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Regexp(t, `^[0-9]{6}$`, code)

	rec, err := store.Latest(context.Background(), "a@b.com#login")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", rec.Identifier)
	assert.False(t, rec.Consumed)
	assert.Greater(t, rec.ExpiresAt, time.Now().Unix())
}

func TestIssue_UnknownPurpose(t *testing.T) {
	_, err := newTestService(newMemStore()).Issue(context.Background(), "a@b.com", "reset")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestIssue_StoreError(t *testing.T) {
	store := newMemStore()
	store.failPut = errors.New("dynamo down")
	_, err := newTestService(store).Issue(context.Background(), "a@b.com", domain.PurposeLogin)
	assert.ErrorContains(t, err, "dynamo down")
}

func TestVerify_SucceedsOnceThenRejectsReplay(t *testing.T) {
	svc := newTestService(newMemStore())
	ctx := context.Background()
	code, err := svc.Issue(ctx, "a@b.com", domain.PurposeLogin)
	require.NoError(t, err)

	ok, err := svc.Verify(ctx, "A@b.com", code, domain.PurposeLogin)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Verify(ctx, "a@b.com", code, domain.PurposeLogin)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_WrongCode(t *testing.T) {
	svc := newTestService(newMemStore())
	ctx := context.Background()
	code, err := svc.Issue(ctx, "a@b.com", domain.PurposeLogin)
	require.NoError(t, err)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	ok, err := svc.Verify(ctx, "a@b.com", wrong, domain.PurposeLogin)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Verify(ctx, "a@b.com", code, domain.PurposeLogin)
	require.NoError(t, err)
	assert.True(t, ok, "a wrong guess does not burn the code")
}

func TestVerify_LocksAfterMaxAttempts(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()
	code, err := svc.Issue(ctx, "a@b.com", domain.PurposeLogin)
	require.NoError(t, err)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < domain.MaxOTPAttempts; i++ {
		ok, err := svc.Verify(ctx, "a@b.com", wrong, domain.PurposeLogin)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	rec, err := store.Latest(ctx, "a@b.com#login")
	require.NoError(t, err)
	assert.Equal(t, domain.MaxOTPAttempts, rec.Attempts)

	ok, err := svc.Verify(ctx, "a@b.com", code, domain.PurposeLogin)
	require.NoError(t, err)
	assert.False(t, ok, "the right code is refused once the guess budget is spent")
}

func TestVerify_NewCodeResetsAttempts(t *testing.T) {
	svc := newTestService(newMemStore())
	ctx := context.Background()
	_, err := svc.Issue(ctx, "a@b.com", domain.PurposeLogin)
	require.NoError(t, err)
	for i := 0; i < domain.MaxOTPAttempts; i++ {
		_, err := svc.Verify(ctx, "a@b.com", "x", domain.PurposeLogin)
		require.NoError(t, err)
	}

	code, err := svc.Issue(ctx, "a@b.com", domain.PurposeLogin)
	require.NoError(t, err)
	ok, err := svc.Verify(ctx, "a@b.com", code, domain.PurposeLogin)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_Expired(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()
	code, err := svc.Issue(ctx, "a@b.com", domain.PurposeSignup)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	ok, err := svc.Verify(ctx, "a@b.com", code, domain.PurposeSignup)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_NoCode(t *testing.T) {
	ok, err := newTestService(newMemStore()).Verify(context.Background(), "a@b.com", "123456", domain.PurposeLogin)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_PurposeIsolation(t *testing.T) {
	svc := newTestService(newMemStore())
	ctx := context.Background()
	code, err := svc.Issue(ctx, "a@b.com", domain.PurposeSignup)
	require.NoError(t, err)

	ok, err := svc.Verify(ctx, "a@b.com", code, domain.PurposeLogin)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_OnlyLatestCodeCounts(t *testing.T) {
	svc := newTestService(newMemStore())
	ctx := context.Background()
	first, err := svc.Issue(ctx, "a@b.com", domain.PurposeLogin)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, "a@b.com", domain.PurposeLogin)
	require.NoError(t, err)

	if first != second {
		ok, err := svc.Verify(ctx, "a@b.com", first, domain.PurposeLogin)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	ok, err := svc.Verify(ctx, "a@b.com", second, domain.PurposeLogin)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_ConcurrentReplayHasOneWinner(t *testing.T) {
	svc := newTestService(newMemStore())
	ctx := context.Background()
	code, err := svc.Issue(ctx, "a@b.com", domain.PurposeLogin)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.Verify(ctx, "a@b.com", code, domain.PurposeLogin)
			if err == nil && ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestGenerateCode_Length(t *testing.T) {
	for _, n := range []int{4, 6, 8} {
		code, err := generateCode(n)
		require.NoError(t, err)
		assert.Len(t, code, n)
	}
}
