package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/go-otp-gate/internal/domain"
	"github.com/go-otp-gate/internal/pkg/hashutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockCodes struct{ mock.Mock }

func (m *mockCodes) Issue(ctx context.Context, identifier, purpose string) (string, error) {
	args := m.Called(ctx, identifier, purpose)
	return args.String(0), args.Error(1)
}
func (m *mockCodes) Verify(ctx context.Context, identifier, code, purpose string) (bool, error) {
	args := m.Called(ctx, identifier, code, purpose)
	return args.Bool(0), args.Error(1)
}

type mockSender struct {
	mock.Mock
	dev bool
}

func (m *mockSender) SendOTP(ctx context.Context, to, code, purpose string) (string, error) {
	args := m.Called(ctx, to, code, purpose)
	return args.String(0), args.Error(1)
}
func (m *mockSender) DevMode() bool { return m.dev }

type mockProfiles struct{ mock.Mock }

func (m *mockProfiles) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProfiles) Upsert(ctx context.Context, userID string, input domain.ProfileInput) (*domain.Profile, error) {
	args := m.Called(ctx, userID, input)
	p, _ := args.Get(0).(*domain.Profile)
	return p, args.Error(1)
}
func (m *mockProfiles) MarkEmailVerified(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockProfiles) MarkPhoneVerified(ctx context.Context, userID, phone string) error {
	return m.Called(ctx, userID, phone).Error(0)
}

type mockDevices struct{ mock.Mock }

func (m *mockDevices) Trust(ctx context.Context, userID string, info domain.DeviceInfo) error {
	return m.Called(ctx, userID, info).Error(0)
}

type stubSigner struct{}

func (stubSigner) Sign(userID, email, sessionID string) (string, error) {
	return "token-" + userID, nil
}

type fixture struct {
	users    *mockUserStore
	codes    *mockCodes
	sender   *mockSender
	profiles *mockProfiles
	devices  *mockDevices
	svc      Service
}

func newFixture(dev bool) *fixture {
	f := &fixture{
		users:    new(mockUserStore),
		codes:    new(mockCodes),
		sender:   &mockSender{dev: dev},
		profiles: new(mockProfiles),
		devices:  new(mockDevices),
	}
	f.svc = NewService(Deps{
		Users:    f.users,
		Codes:    f.codes,
		Sender:   f.sender,
		Profiles: f.profiles,
		Devices:  f.devices,
		Tokens:   stubSigner{},
	})
	return f
}

// --- tests ---

func TestCheckEmail(t *testing.T) {
	f := newFixture(false)
	f.users.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1"}, nil)
	f.users.On("GetByEmail", mock.Anything, "none@b.com").Return(nil, domain.ErrNotFound)
	f.users.On("GetByEmail", mock.Anything, "err@b.com").Return(nil, errors.New("throttled"))

	exists, err := f.svc.CheckEmail(context.Background(), " A@B.com ")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.svc.CheckEmail(context.Background(), "none@b.com")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.svc.CheckEmail(context.Background(), "err@b.com")
	assert.Error(t, err)
}

func TestSendLoginOTP_DevModeReturnsCode(t *testing.T) {
	f := newFixture(true)
	f.codes.On("Issue", mock.Anything, "a@b.com", domain.PurposeLogin).Return("123456", nil)
	f.sender.On("SendOTP", mock.Anything, "a@b.com", "123456", domain.PurposeLogin).Return("dev-1", nil)

	res, err := f.svc.SendLoginOTP(context.Background(), "A@b.com")
	require.NoError(t, err)
	assert.Equal(t, "dev-1", res.MessageID)
	assert.Equal(t, "123456", res.DevCode)
}

func TestSendLoginOTP_DeliveryFailure(t *testing.T) {
	f := newFixture(false)
	f.codes.On("Issue", mock.Anything, "a@b.com", domain.PurposeLogin).Return("123456", nil)
	f.sender.On("SendOTP", mock.Anything, "a@b.com", "123456", domain.PurposeLogin).Return("", errors.New("smtp down"))

	_, err := f.svc.SendLoginOTP(context.Background(), "a@b.com")
	assert.Error(t, err)
}

func TestVerifyLoginOTP_WrongCode(t *testing.T) {
	f := newFixture(false)
	f.codes.On("Verify", mock.Anything, "a@b.com", "000000", domain.PurposeLogin).Return(false, nil)

	sess, err := f.svc.VerifyLoginOTP(context.Background(), "a@b.com", "000000", domain.DeviceInfo{})
	require.NoError(t, err)
	assert.Nil(t, sess)
	f.users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestVerifyLoginOTP_CreatesUserAndTrustsDevice(t *testing.T) {
	f := newFixture(false)
	info := domain.DeviceInfo{DeviceUUID: "dev-1"}
	f.codes.On("Verify", mock.Anything, "new@b.com", "123456", domain.PurposeLogin).Return(true, nil)
	f.users.On("GetByEmail", mock.Anything, "new@b.com").Return(nil, domain.ErrNotFound)
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "new@b.com" && u.EmailVerified && u.Enable && !u.HasPassword()
	})).Return(nil)
	f.profiles.On("MarkEmailVerified", mock.Anything, mock.AnythingOfType("string")).Return(nil)
	f.devices.On("Trust", mock.Anything, mock.AnythingOfType("string"), info).Return(nil)

	sess, err := f.svc.VerifyLoginOTP(context.Background(), "new@b.com", "123456", info)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "token-"+sess.User.UserID, sess.Token)
	f.devices.AssertExpectations(t)
}

func TestVerifyLoginOTP_ExistingUserDeviceErrorIsNotFatal(t *testing.T) {
	f := newFixture(false)
	f.codes.On("Verify", mock.Anything, "a@b.com", "123456", domain.PurposeLogin).Return(true, nil)
	f.users.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1", Email: "a@b.com", EmailVerified: true}, nil)
	f.devices.On("Trust", mock.Anything, "u1", mock.Anything).Return(errors.New("throttled"))

	sess, err := f.svc.VerifyLoginOTP(context.Background(), "a@b.com", "123456", domain.DeviceInfo{})
	require.NoError(t, err)
	assert.Equal(t, "token-u1", sess.Token)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSignup(t *testing.T) {
	f := newFixture(false)
	req := domain.SignupRequest{Email: "New@B.com", Password: "correct horse", DisplayName: "Ada", Code: "123456"}
	f.users.On("GetByEmail", mock.Anything, "new@b.com").Return(nil, domain.ErrNotFound)
	f.codes.On("Verify", mock.Anything, "new@b.com", "123456", domain.PurposeSignup).Return(true, nil)

	var created *domain.User
	f.users.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.User)
	}).Return(nil)
	f.profiles.On("Upsert", mock.Anything, mock.Anything, mock.Anything).Return(&domain.Profile{}, nil)
	f.profiles.On("MarkEmailVerified", mock.Anything, mock.Anything).Return(nil)

	sess, err := f.svc.Signup(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.True(t, hashutil.Verify("correct horse", created.PasswordHash, created.PasswordSalt))
	assert.NotEqual(t, "correct horse", created.PasswordHash)
}

func TestSignup_ProfileWriteFailureStillSignsIn(t *testing.T) {
	f := newFixture(false)
	req := domain.SignupRequest{Email: "new@b.com", Password: "correct horse", DisplayName: "Ada", Code: "123456"}
	f.users.On("GetByEmail", mock.Anything, "new@b.com").Return(nil, domain.ErrNotFound)
	f.codes.On("Verify", mock.Anything, "new@b.com", "123456", domain.PurposeSignup).Return(true, nil)
	f.users.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.profiles.On("Upsert", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("dynamo throttled"))
	f.profiles.On("MarkEmailVerified", mock.Anything, mock.Anything).Return(errors.New("dynamo throttled"))

	sess, err := f.svc.Signup(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "new@b.com", sess.User.Email)
	f.users.AssertNumberOfCalls(t, "Create", 1)
}

func TestSignup_ExistingAccount(t *testing.T) {
	f := newFixture(false)
	f.users.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1"}, nil)

	_, err := f.svc.Signup(context.Background(), domain.SignupRequest{Email: "a@b.com", Password: "password1", Code: "1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	f.codes.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSignup_BadCode(t *testing.T) {
	f := newFixture(false)
	f.users.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)
	f.codes.On("Verify", mock.Anything, "a@b.com", "999999", domain.PurposeSignup).Return(false, nil)

	_, err := f.svc.Signup(context.Background(), domain.SignupRequest{Email: "a@b.com", Password: "password1", Code: "999999"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestPasswordLogin(t *testing.T) {
	h, err := hashutil.Hash("s3cret-pass", "")
	require.NoError(t, err)
	f := newFixture(false)
	f.users.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1", Email: "a@b.com", PasswordHash: h.Hash, PasswordSalt: h.Salt}, nil)
	f.users.On("GetByEmail", mock.Anything, "otp@b.com").Return(&domain.User{UserID: "u2", Email: "otp@b.com"}, nil)
	f.users.On("GetByEmail", mock.Anything, "none@b.com").Return(nil, domain.ErrNotFound)

	sess, err := f.svc.PasswordLogin(context.Background(), domain.PasswordLoginRequest{Email: "a@b.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "token-u1", sess.Token)

	for _, req := range []domain.PasswordLoginRequest{
		{Email: "a@b.com", Password: "wrong"},
		{Email: "otp@b.com", Password: "anything"},
		{Email: "none@b.com", Password: "anything"},
	} {
		_, err := f.svc.PasswordLogin(context.Background(), req)
		assert.ErrorIs(t, err, domain.ErrUnauthorized, req.Email)
	}
}

func TestVerifyEmailOTP(t *testing.T) {
	f := newFixture(false)
	f.users.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "a@b.com"}, nil)
	f.codes.On("Verify", mock.Anything, "a@b.com", "123456", domain.PurposeEmail).Return(true, nil)
	f.users.On("Update", mock.Anything, "u1", map[string]interface{}{"email_verified": true}).Return(nil)
	f.profiles.On("MarkEmailVerified", mock.Anything, "u1").Return(nil)

	ok, err := f.svc.VerifyEmailOTP(context.Background(), "u1", "123456")
	require.NoError(t, err)
	assert.True(t, ok)
	f.users.AssertExpectations(t)
}

func TestSendPhoneOTP_RequiresPhone(t *testing.T) {
	f := newFixture(false)
	f.profiles.On("Get", mock.Anything, "u1").Return(&domain.Profile{ID: "u1"}, nil)

	_, err := f.svc.SendPhoneOTP(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestVerifyPhoneOTP(t *testing.T) {
	f := newFixture(false)
	f.profiles.On("Get", mock.Anything, "u1").Return(&domain.Profile{ID: "u1", PhoneNumber: "+16502530000"}, nil)
	f.codes.On("Verify", mock.Anything, "+16502530000", "123456", domain.PurposePhone).Return(true, nil)
	f.profiles.On("MarkPhoneVerified", mock.Anything, "u1", "+16502530000").Return(nil)

	ok, err := f.svc.VerifyPhoneOTP(context.Background(), "u1", "123456")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMe_DisabledAccount(t *testing.T) {
	f := newFixture(false)
	f.users.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Enable: false}, nil)

	_, err := f.svc.Me(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
