package device

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/pkg/logger"
	"github.com/sitebeam/notify-service/pkg/security"
)

type fakeRepo struct {
	devices  map[uuid.UUID]*model.DeviceRegistration
	disabled []uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{devices: make(map[uuid.UUID]*model.DeviceRegistration)}
}

// Register mirrors the repository upsert: (user_id, token_hash) is the
// conflict key and the caller's struct takes the existing row's id.
func (f *fakeRepo) Register(_ context.Context, d *model.DeviceRegistration) error {
	for _, existing := range f.devices {
		if existing.UserID == d.UserID && existing.TokenHash == d.TokenHash {
			existing.Platform = d.Platform
			existing.Token = d.Token
			existing.DeviceName = d.DeviceName
			existing.Enabled = true
			d.ID = existing.ID
			return nil
		}
	}
	f.devices[d.ID] = d
	return nil
}

func (f *fakeRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]*model.DeviceRegistration, error) {
	var out []*model.DeviceRegistration
	for _, d := range f.devices {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListEnabledForUser(ctx context.Context, userID uuid.UUID) ([]*model.DeviceRegistration, error) {
	return f.ListForUser(ctx, userID)
}

func (f *fakeRepo) Disable(_ context.Context, id uuid.UUID) error {
	f.disabled = append(f.disabled, id)
	return nil
}

func (f *fakeRepo) TouchLastUsed(context.Context, uuid.UUID, time.Time) error { return nil }

func newTestService(t *testing.T, repo *fakeRepo) Service {
	t.Helper()
	encryptor, err := security.NewAESEncryptor([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return NewService(repo, encryptor, logger.Nop())
}

func TestRegisterEncryptsToken(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)
	userID := uuid.New()

	d, err := svc.Register(context.Background(), userID, model.DevicePlatformIOS, "plain-token", "Dana's iPhone")
	require.NoError(t, err)
	assert.True(t, d.Enabled)
	assert.NotEqual(t, "plain-token", d.Token)
	assert.NotContains(t, d.Token, "plain-token")

	stored := repo.devices[d.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "plain-token", stored.Token)
}

func TestRegisterSameTokenUpdatesInPlace(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)
	userID := uuid.New()

	first, err := svc.Register(context.Background(), userID, model.DevicePlatformIOS, "device-token-abc", "old name")
	require.NoError(t, err)
	firstCiphertext := first.Token

	second, err := svc.Register(context.Background(), userID, model.DevicePlatformIOS, "device-token-abc", "new name")
	require.NoError(t, err)

	// GCM ciphertexts differ per call, so the dedup key must be the
	// fingerprint, not the encrypted column.
	assert.NotEqual(t, firstCiphertext, second.Token)
	assert.Equal(t, first.TokenHash, second.TokenHash)

	assert.Equal(t, first.ID, second.ID)
	require.Len(t, repo.devices, 1)
	stored := repo.devices[first.ID]
	assert.Equal(t, "new name", stored.DeviceName)
	assert.True(t, stored.Enabled)
}

func TestRegisterDifferentTokensKeepSeparateRows(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)
	userID := uuid.New()

	first, err := svc.Register(context.Background(), userID, model.DevicePlatformIOS, "token-one", "")
	require.NoError(t, err)
	second, err := svc.Register(context.Background(), userID, model.DevicePlatformAndroid, "token-two", "")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, repo.devices, 2)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t, newFakeRepo())

	_, err := svc.Register(context.Background(), uuid.New(), model.DevicePlatform("blackberry"), "tok", "")
	assert.Error(t, err)

	_, err = svc.Register(context.Background(), uuid.New(), model.DevicePlatformWeb, "", "")
	assert.Error(t, err)
}

func TestDisableEnforcesOwnership(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)
	userID := uuid.New()

	d, err := svc.Register(context.Background(), userID, model.DevicePlatformAndroid, "tok", "")
	require.NoError(t, err)

	err = svc.Disable(context.Background(), uuid.New(), d.ID)
	assert.Error(t, err)
	assert.Empty(t, repo.disabled)

	err = svc.Disable(context.Background(), userID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{d.ID}, repo.disabled)
}
