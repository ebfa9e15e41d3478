// Package storage holds the durable media store backed by Cloudinary.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
	"github.com/bolle-sn/citizen-relay/internal/core/ports"
)

const mediaFolder = "media"

// Config carries the Cloudinary account credentials.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
}

// CloudinaryStorage implements ports.MediaStorage against Cloudinary.
// Audio is uploaded under the "video" resource type, which is how
// Cloudinary models audio-only assets.
type CloudinaryStorage struct {
	cld *cloudinary.Cloudinary
	log zerolog.Logger
}

// NewCloudinaryStorage builds the store. With no credentials configured it
// runs disabled: uploads fail and callers fall back to local copies only.
func NewCloudinaryStorage(cfg Config, log zerolog.Logger) (*CloudinaryStorage, error) {
	if cfg.CloudName == "" {
		log.Warn().Msg("cloudinary not configured, media uploads will stay local")
		return &CloudinaryStorage{log: log}, nil
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	cld.Config.URL.Secure = true
	return &CloudinaryStorage{cld: cld, log: log}, nil
}

func (s *CloudinaryStorage) UploadImage(ctx context.Context, r io.Reader, folder, publicID string) (*ports.StoredMedia, error) {
	return s.upload(ctx, r, publicID, "image", false)
}

func (s *CloudinaryStorage) UploadVideo(ctx context.Context, r io.Reader, folder, publicID string) (*ports.StoredMedia, error) {
	return s.upload(ctx, r, publicID, "video", true)
}

func (s *CloudinaryStorage) UploadAudio(ctx context.Context, r io.Reader, folder, publicID string) (*ports.StoredMedia, error) {
	return s.upload(ctx, r, publicID, "video", false)
}

func (s *CloudinaryStorage) upload(ctx context.Context, r io.Reader, publicID, resourceType string, withThumbnail bool) (*ports.StoredMedia, error) {
	if s.cld == nil {
		return nil, fmt.Errorf("cloudinary not configured")
	}

	resp, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:         mediaFolder,
		PublicID:       publicID,
		ResourceType:   resourceType,
		UseFilename:    api.Bool(true),
		UniqueFilename: api.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}

	stored := &ports.StoredMedia{
		URL:       resp.URL,
		SecureURL: resp.SecureURL,
		PublicID:  resp.PublicID,
		Width:     resp.Width,
		Height:    resp.Height,
		Bytes:     int64(resp.Bytes),
	}
	if withThumbnail {
		if thumb, err := s.videoThumbnailURL(resp.PublicID); err != nil {
			s.log.Error().Err(err).Str("public_id", resp.PublicID).Msg("failed to build video thumbnail url")
		} else {
			stored.ThumbnailURL = thumb
		}
	}
	return stored, nil
}

// videoThumbnailURL builds a 320x240 poster-frame delivery URL for an
// uploaded video.
func (s *CloudinaryStorage) videoThumbnailURL(publicID string) (string, error) {
	video, err := s.cld.Video(publicID)
	if err != nil {
		return "", err
	}
	video.Transformation = "w_320,h_240,c_fill/f_auto"
	return video.String()
}

// Delete removes the asset. The resource type is derived from the proof
// type because Cloudinary addresses images and videos in separate spaces.
func (s *CloudinaryStorage) Delete(ctx context.Context, publicID string, proofType domain.ProofType) error {
	if s.cld == nil || publicID == "" {
		return nil
	}

	resourceType := "image"
	if proofType == domain.ProofVideo || proofType == domain.ProofAudio {
		resourceType = "video"
	}

	resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("cloudinary destroy: %s", resp.Result)
	}
	return nil
}
