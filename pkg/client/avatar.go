package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/gabriel-vasile/mimetype"
)

// MaxAvatarBytes mirrors the server-side upload ceiling.
const MaxAvatarBytes = 5 * 1024 * 1024

var (
	ErrAvatarTooLarge = errors.New("avatar exceeds 5 MB")
	ErrAvatarType     = errors.New("avatar must be a JPEG, PNG or GIF image")
)

var avatarTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
}

// CheckAvatar applies the upload rules locally and returns the sniffed content type.
func CheckAvatar(data []byte) (string, error) {
	if len(data) > MaxAvatarBytes {
		return "", ErrAvatarTooLarge
	}
	if len(data) == 0 {
		return "", ErrAvatarType
	}
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if _, ok := avatarTypes[m.String()]; ok {
			return m.String(), nil
		}
	}
	return "", fmt.Errorf("%w: got %s", ErrAvatarType, detected.String())
}

// UploadAvatar checks the image, then posts it as the multipart "file" part.
func (c *Client) UploadAvatar(ctx context.Context, data []byte) (*Profile, error) {
	contentType, err := CheckAvatar(data)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="avatar.%s"`, avatarTypes[contentType]))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("client: build avatar form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("client: build avatar form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("client: build avatar form: %w", err)
	}

	var out Profile
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        apiPrefix + "/profiles/me/avatar",
		raw:         &body,
		contentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
