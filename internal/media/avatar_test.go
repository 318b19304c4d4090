package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/medok/medok-backend/internal/profiles"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type fakeStore struct {
	uploads   map[string][]byte
	deleted   []string
	uploadErr error
	deleteErr error
}

func (f *fakeStore) Upload(_ context.Context, object, _ string, body io.Reader) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if f.uploads == nil {
		f.uploads = map[string][]byte{}
	}
	f.uploads[object] = data
	return nil
}

func (f *fakeStore) Delete(_ context.Context, object string) error {
	f.deleted = append(f.deleted, object)
	return f.deleteErr
}

func (f *fakeStore) PublicURL(object string) string {
	return "https://cdn.test/bucket/" + object
}

func (f *fakeStore) ObjectFromURL(raw string) (string, bool) {
	return strings.CutPrefix(raw, "https://cdn.test/bucket/")
}

type fakeProfiles struct {
	current *profiles.ProfileDTO
	setURL  string
}

func (f *fakeProfiles) Me(context.Context, uuid.UUID) (*profiles.ProfileDTO, error) {
	return f.current, nil
}

func (f *fakeProfiles) SetAvatarURL(_ context.Context, userID uuid.UUID, url string) (*profiles.ProfileDTO, error) {
	f.setURL = url
	return &profiles.ProfileDTO{ID: userID, AvatarURL: &url}, nil
}

func newTestService(t *testing.T, store *fakeStore, profs *fakeProfiles) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Store:    store,
		Profiles: profs,
		Prefix:   "avatars",
		MaxBytes: 1024,
		Now:      func() time.Time { return time.UnixMilli(1700000000000) },
	})
	require.NoError(t, err)
	return svc
}

func TestUploadAvatarStoresObjectAndUpdatesProfile(t *testing.T) {
	userID := uuid.New()
	store := &fakeStore{}
	profs := &fakeProfiles{current: &profiles.ProfileDTO{ID: userID}}
	svc := newTestService(t, store, profs)

	got, err := svc.UploadAvatar(context.Background(), userID, AvatarUpload{
		ContentType: "image/png",
		Size:        int64(len(pngHeader)),
		Body:        bytes.NewReader(pngHeader),
	})
	require.NoError(t, err)

	object := "avatars/" + userID.String() + "_1700000000000.png"
	require.Equal(t, pngHeader, store.uploads[object])
	require.Equal(t, "https://cdn.test/bucket/"+object, profs.setURL)
	require.Equal(t, profs.setURL, *got.AvatarURL)
	require.Empty(t, store.deleted)
}

func TestUploadAvatarRemovesPreviousObject(t *testing.T) {
	userID := uuid.New()
	previous := "https://cdn.test/bucket/avatars/old.png"
	store := &fakeStore{deleteErr: errors.New("gone")}
	profs := &fakeProfiles{current: &profiles.ProfileDTO{ID: userID, AvatarURL: &previous}}
	svc := newTestService(t, store, profs)

	_, err := svc.UploadAvatar(context.Background(), userID, AvatarUpload{
		ContentType: "image/png",
		Body:        bytes.NewReader(pngHeader),
	})
	require.NoError(t, err, "delete failures must not fail the upload")
	require.Equal(t, []string{"avatars/old.png"}, store.deleted)
}

func TestUploadAvatarKeepsForeignAvatarURL(t *testing.T) {
	userID := uuid.New()
	previous := "https://ui-avatars.com/api/?name=Jan"
	store := &fakeStore{}
	profs := &fakeProfiles{current: &profiles.ProfileDTO{ID: userID, AvatarURL: &previous}}
	svc := newTestService(t, store, profs)

	_, err := svc.UploadAvatar(context.Background(), userID, AvatarUpload{
		ContentType: "image/png",
		Body:        bytes.NewReader(pngHeader),
	})
	require.NoError(t, err)
	require.Empty(t, store.deleted)
}

func TestUploadAvatarRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name   string
		upload AvatarUpload
	}{
		{"unsupported type", AvatarUpload{ContentType: "application/pdf", Body: strings.NewReader("%PDF-1.4")}},
		{"declared too large", AvatarUpload{ContentType: "image/png", Size: 4096, Body: bytes.NewReader(pngHeader)}},
		{"body too large", AvatarUpload{ContentType: "image/png", Body: bytes.NewReader(append(append([]byte{}, pngHeader...), make([]byte, 2048)...))}},
		{"content mismatch", AvatarUpload{ContentType: "image/jpeg", Body: bytes.NewReader(pngHeader)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{}
			svc := newTestService(t, store, &fakeProfiles{current: &profiles.ProfileDTO{}})
			_, err := svc.UploadAvatar(context.Background(), uuid.New(), tc.upload)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeResourceInvalid), "got %v", err)
			require.Empty(t, store.uploads)
		})
	}
}

func TestUploadAvatarWrapsStorageFailure(t *testing.T) {
	store := &fakeStore{uploadErr: errors.New("bucket down")}
	svc := newTestService(t, store, &fakeProfiles{current: &profiles.ProfileDTO{}})

	_, err := svc.UploadAvatar(context.Background(), uuid.New(), AvatarUpload{
		ContentType: "image/png",
		Body:        bytes.NewReader(pngHeader),
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)
}

func TestAvatarExtension(t *testing.T) {
	ext, ok := AvatarExtension("IMAGE/JPEG; charset=binary")
	require.True(t, ok)
	require.Equal(t, "jpeg", ext)

	_, ok = AvatarExtension("image/webp")
	require.False(t, ok)
}

func TestSniffMatches(t *testing.T) {
	require.True(t, SniffMatches("image/gif", []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00")))
	require.True(t, SniffMatches("image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}))
	require.False(t, SniffMatches("image/gif", pngHeader))
}
