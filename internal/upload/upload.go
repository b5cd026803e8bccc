// Package upload publishes videos and avatars through pre-signed URLs: the
// API hands out an upload target, the bytes go straight to object storage and
// the resulting public URL is attached to a record.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/google/uuid"

	"github.com/rift/client/internal/api"
	"github.com/rift/client/internal/logging"
	"github.com/rift/client/internal/models"
)

// Media kinds understood by /upload/presign.
const (
	TypeVideo = "video"
	TypeImage = "image"

	ContentTypeMP4  = "video/mp4"
	ContentTypeJPEG = "image/jpeg"
)

// ErrInvalidUploadURL is returned when the presign response is unusable.
var ErrInvalidUploadURL = errors.New("invalid upload URL")

// API is the subset of api.Client the uploader needs.
type API interface {
	api.Doer
	Upload(ctx context.Context, rawURL string, body io.Reader, size int64, contentType string) error
}

// Uploader runs the presign, PUT and register sequence.
type Uploader struct {
	api API
}

// New builds an uploader on top of client.
func New(client API) *Uploader {
	return &Uploader{api: client}
}

// Video describes a clip to publish. Duration is in whole seconds.
type Video struct {
	Caption  string
	Duration int
	Body     io.Reader
	Size     int64
}

// UploadVideo publishes v and returns the created record.
func (u *Uploader) UploadVideo(ctx context.Context, v Video) (models.Video, error) {
	ctx, span := logging.StartSpan(ctx, "upload.video")

	publicURL, err := u.put(ctx, "video_"+uuid.NewString()+".mp4", TypeVideo, ContentTypeMP4, v.Body, v.Size)
	if err != nil {
		span.End(err)
		return models.Video{}, err
	}

	req := models.CreateVideoRequest{VideoURL: publicURL, Duration: v.Duration}
	if v.Caption != "" {
		req.Caption = models.Ptr(v.Caption)
	}
	var created models.Video
	if err := u.api.Do(ctx, api.Request{Method: http.MethodPost, Path: api.PathVideos, Body: req}, &created); err != nil {
		span.End(err)
		return models.Video{}, fmt.Errorf("create video record: %w", err)
	}
	span.End(nil)
	return created, nil
}

// UploadAvatar stores a JPEG and returns its public URL. The profile itself
// is not changed.
func (u *Uploader) UploadAvatar(ctx context.Context, body io.Reader, size int64) (string, error) {
	ctx, span := logging.StartSpan(ctx, "upload.avatar")
	publicURL, err := u.put(ctx, "avatar_"+uuid.NewString()+".jpg", TypeImage, ContentTypeJPEG, body, size)
	span.End(err)
	return publicURL, err
}

func (u *Uploader) put(ctx context.Context, filename, kind, contentType string, body io.Reader, size int64) (string, error) {
	var target models.PresignResponse
	err := u.api.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   api.PathPresign,
		Body:   models.PresignRequest{Filename: filename, Type: kind, ContentType: contentType},
	}, &target)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", filename, err)
	}
	if !absolute(target.UploadURL) {
		return "", fmt.Errorf("%w: %q", ErrInvalidUploadURL, target.UploadURL)
	}

	if err := u.api.Upload(ctx, target.UploadURL, body, size, contentType); err != nil {
		return "", err
	}
	logging.FromContext(ctx).Info("uploaded media",
		slog.String("filename", filename),
		slog.Int64("bytes", size),
		slog.String("public_url", target.PublicURL))
	return target.PublicURL, nil
}

func absolute(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// OpenFile opens path for upload and reports its size.
func OpenFile(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return f, info.Size(), nil
}
