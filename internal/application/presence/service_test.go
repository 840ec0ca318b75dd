package presence

import (
	"context"
	"testing"
	"time"

	"github.com/go-otp-gate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPresenceStore struct{ mock.Mock }

func (m *mockPresenceStore) Put(ctx context.Context, p *domain.Presence) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockPresenceStore) Get(ctx context.Context, userID string) (*domain.Presence, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.Presence); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPresenceStore) SeenSince(ctx context.Context, since time.Time) ([]domain.Presence, error) {
	args := m.Called(ctx, since)
	ps, _ := args.Get(0).([]domain.Presence)
	return ps, args.Error(1)
}

func TestBeat(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo := new(mockPresenceStore)
	repo.On("Put", mock.Anything, &domain.Presence{UserID: "u1", LastSeenAt: now, LastSeenUnix: now.Unix()}).Return(nil)
	svc := &service{repo: repo, window: time.Minute, now: func() time.Time { return now }}

	require.NoError(t, svc.Beat(context.Background(), "u1"))
	repo.AssertExpectations(t)
}

func TestOnline_UsesWindow(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo := new(mockPresenceStore)
	repo.On("SeenSince", mock.Anything, now.Add(-2*time.Minute)).Return([]domain.Presence{{UserID: "u1"}}, nil)
	svc := &service{repo: repo, window: 2 * time.Minute, now: func() time.Time { return now }}

	got, err := svc.Online(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
