package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/internal/profiles"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
	"github.com/medok/medok-backend/pkg/logger"
)

// DefaultMaxAvatarBytes is the upload ceiling when none is configured.
const DefaultMaxAvatarBytes = 5 * 1024 * 1024

type objectStore interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) error
	Delete(ctx context.Context, object string) error
	PublicURL(object string) string
	ObjectFromURL(raw string) (string, bool)
}

type profileService interface {
	Me(ctx context.Context, userID uuid.UUID) (*profiles.ProfileDTO, error)
	SetAvatarURL(ctx context.Context, userID uuid.UUID, url string) (*profiles.ProfileDTO, error)
}

// AvatarUpload is one multipart file part.
type AvatarUpload struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

// Service handles avatar uploads.
type Service interface {
	UploadAvatar(ctx context.Context, userID uuid.UUID, upload AvatarUpload) (*profiles.ProfileDTO, error)
}

type ServiceParams struct {
	Store    objectStore
	Profiles profileService
	Prefix   string
	MaxBytes int64
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	store    objectStore
	profiles profileService
	prefix   string
	maxBytes int64
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile service required")
	}
	maxBytes := params.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAvatarBytes
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		store:    params.Store,
		profiles: params.Profiles,
		prefix:   params.Prefix,
		maxBytes: maxBytes,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// UploadAvatar validates, stores and links a new avatar, then drops the previous object.
func (s *service) UploadAvatar(ctx context.Context, userID uuid.UUID, upload AvatarUpload) (*profiles.ProfileDTO, error) {
	if upload.Size > s.maxBytes {
		return nil, tooLarge(s.maxBytes)
	}
	ext, ok := AvatarExtension(upload.ContentType)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeResourceInvalid, "avatar must be a JPEG, PNG or GIF image").
			WithDetails(map[string]any{"content_type": upload.ContentType})
	}
	if upload.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}

	data, err := io.ReadAll(io.LimitReader(upload.Body, s.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, tooLarge(s.maxBytes)
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if !SniffMatches(upload.ContentType, data) {
		return nil, pkgerrors.New(pkgerrors.CodeResourceInvalid, "file content does not match its declared type")
	}

	current, err := s.profiles.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	object := path.Join(s.prefix, fmt.Sprintf("%s_%d.%s", userID, s.now().UnixMilli(), ext))
	if err := s.store.Upload(ctx, object, avatarContentType(ext), bytes.NewReader(data)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload avatar")
	}

	updated, err := s.profiles.SetAvatarURL(ctx, userID, s.store.PublicURL(object))
	if err != nil {
		return nil, err
	}

	if current.AvatarURL != nil {
		s.removePrevious(ctx, *current.AvatarURL)
	}
	return updated, nil
}

func (s *service) removePrevious(ctx context.Context, previousURL string) {
	object, ok := s.store.ObjectFromURL(previousURL)
	if !ok {
		return
	}
	if err := s.store.Delete(ctx, object); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"object": object, "error": err.Error()}), "delete previous avatar")
	}
}

func avatarContentType(ext string) string {
	return "image/" + ext
}

func tooLarge(limit int64) error {
	return pkgerrors.New(pkgerrors.CodeResourceInvalid, fmt.Sprintf("avatar exceeds %d MB", limit/(1024*1024))).
		WithDetails(map[string]any{"max_bytes": limit})
}
