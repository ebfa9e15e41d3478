package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/bolle-sn/citizen-relay/internal/api/metrics"
	"github.com/bolle-sn/citizen-relay/internal/core/domain"
	"github.com/bolle-sn/citizen-relay/internal/core/ports"
)

const (
	maxFileSize  = 50 * 1024 * 1024
	maxFileCount = 5

	imageMaxWidth    = 1200
	imageQuality     = 85
	thumbnailWidth   = 320
	thumbnailHeight  = 240
	thumbnailQuality = 70
)

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true, "image/png": true, "image/gif": true, "image/webp": true,
	"video/mp4": true, "video/quicktime": true, "video/x-msvideo": true, "video/webm": true,
	"audio/mpeg": true, "audio/wav": true, "audio/ogg": true, "audio/webm": true,
}

// UploadService turns uploaded files into alert proofs: local processed
// copies plus a durable Cloudinary copy. A remote upload failure degrades
// the proof (local URLs only, error recorded) instead of failing the batch.
type UploadService struct {
	storage   ports.MediaStorage
	frames    ports.FrameExtractor
	uploadDir string
	log       zerolog.Logger
	now       func() time.Time
}

func NewUploadService(storage ports.MediaStorage, frames ports.FrameExtractor, uploadDir string, log zerolog.Logger) (*UploadService, error) {
	for _, sub := range []string{"photos", "videos", "audio", "thumbnails"} {
		if err := os.MkdirAll(filepath.Join(uploadDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &UploadService{
		storage:   storage,
		frames:    frames,
		uploadDir: uploadDir,
		log:       log,
		now:       time.Now,
	}, nil
}

// ProcessFiles validates and processes a batch of uploads. MIME and size
// violations reject the whole batch before any file is touched.
func (s *UploadService) ProcessFiles(ctx context.Context, files []ports.IncomingFile) ([]domain.Proof, error) {
	if len(files) > maxFileCount {
		return nil, domain.ErrTooManyFiles
	}
	for _, f := range files {
		if !allowedMimeTypes[f.ContentType] {
			return nil, domain.ErrUnsupportedFileType
		}
		if f.Size > maxFileSize || int64(len(f.Data)) > maxFileSize {
			return nil, domain.ErrFileTooLarge
		}
	}

	proofs := make([]domain.Proof, 0, len(files))
	for _, f := range files {
		var (
			proof domain.Proof
			err   error
		)
		switch {
		case strings.HasPrefix(f.ContentType, "image/"):
			proof, err = s.processImage(ctx, f)
		case strings.HasPrefix(f.ContentType, "video/"):
			proof, err = s.processVideo(ctx, f)
		case strings.HasPrefix(f.ContentType, "audio/"):
			proof, err = s.processAudio(ctx, f)
		}
		if err != nil {
			return nil, err
		}

		result := "ok"
		if proof.UploadError != "" {
			result = "degraded"
		}
		metrics.UploadsTotal.WithLabelValues(string(proof.Type), result).Inc()
		proofs = append(proofs, proof)
	}
	return proofs, nil
}

// processImage re-encodes the image (max width 1200, jpeg q85), writes a
// 320x240 cover thumbnail, then pushes the processed copy to the store.
func (s *UploadService) processImage(ctx context.Context, f ports.IncomingFile) (domain.Proof, error) {
	img, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true))
	if err != nil {
		return domain.Proof{}, fmt.Errorf("decode image: %w", err)
	}

	if img.Bounds().Dx() > imageMaxWidth {
		img = imaging.Resize(img, imageMaxWidth, 0, imaging.Lanczos)
	}

	name := s.uniqueName(".jpg")
	path := filepath.Join(s.uploadDir, "photos", name)
	if err := imaging.Save(img, path, imaging.JPEGQuality(imageQuality)); err != nil {
		return domain.Proof{}, fmt.Errorf("save image: %w", err)
	}

	thumb := imaging.Fill(img, thumbnailWidth, thumbnailHeight, imaging.Center, imaging.Lanczos)
	thumbPath := filepath.Join(s.uploadDir, "thumbnails", "thumb_"+name)
	if err := imaging.Save(thumb, thumbPath, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return domain.Proof{}, fmt.Errorf("save thumbnail: %w", err)
	}

	size := fileSize(path, f.Size)
	proof := domain.Proof{
		Type:      domain.ProofPhoto,
		URL:       "/uploads/photos/" + name,
		Thumbnail: "/uploads/thumbnails/thumb_" + name,
		Size:      size,
		CreatedAt: s.now().UTC(),
	}

	processed, err := os.Open(path)
	if err != nil {
		return domain.Proof{}, fmt.Errorf("reopen processed image: %w", err)
	}
	defer processed.Close()

	stored, err := s.storage.UploadImage(ctx, processed, "photo", strings.TrimSuffix(name, ".jpg"))
	if err != nil {
		s.log.Error().Err(err).Str("file", name).Msg("cloudinary image upload failed")
		proof.UploadError = err.Error()
		return proof, nil
	}
	proof.CloudinaryURL = stored.SecureURL
	proof.CloudinaryPublicID = stored.PublicID
	return proof, nil
}

// processVideo stores the file, grabs a poster frame when ffmpeg allows it,
// and uploads the original to the store. Both the frame extraction and the
// remote upload are allowed to fail independently.
func (s *UploadService) processVideo(ctx context.Context, f ports.IncomingFile) (domain.Proof, error) {
	ext := extensionFor(f.Name, ".mp4")
	name := s.uniqueName(ext)
	path := filepath.Join(s.uploadDir, "videos", name)
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return domain.Proof{}, fmt.Errorf("save video: %w", err)
	}

	proof := domain.Proof{
		Type:      domain.ProofVideo,
		URL:       "/uploads/videos/" + name,
		Size:      int64(len(f.Data)),
		CreatedAt: s.now().UTC(),
	}

	if frame, err := s.frames.ExtractFrame(ctx, path); err != nil {
		s.log.Error().Err(err).Str("file", name).Msg("video thumbnail extraction failed")
	} else {
		thumbPath := filepath.Join(s.uploadDir, "thumbnails", "thumb_"+name+".jpg")
		if err := os.WriteFile(thumbPath, frame, 0o644); err != nil {
			s.log.Error().Err(err).Str("file", name).Msg("failed to write video thumbnail")
		} else {
			proof.Thumbnail = "/uploads/thumbnails/thumb_" + name + ".jpg"
		}
	}

	stored, err := s.storage.UploadVideo(ctx, bytes.NewReader(f.Data), "video", strings.TrimSuffix(name, ext))
	if err != nil {
		s.log.Error().Err(err).Str("file", name).Msg("cloudinary video upload failed")
		proof.UploadError = err.Error()
		return proof, nil
	}
	proof.CloudinaryURL = stored.SecureURL
	proof.CloudinaryPublicID = stored.PublicID
	proof.CloudinaryThumbnail = stored.ThumbnailURL
	return proof, nil
}

func (s *UploadService) processAudio(ctx context.Context, f ports.IncomingFile) (domain.Proof, error) {
	ext := extensionFor(f.Name, ".mp3")
	name := s.uniqueName(ext)
	path := filepath.Join(s.uploadDir, "audio", name)
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return domain.Proof{}, fmt.Errorf("save audio: %w", err)
	}

	proof := domain.Proof{
		Type: domain.ProofAudio,
		URL:  "/uploads/audio/" + name,
		// Audio has no visual, the client shows a stock image.
		Thumbnail: "/uploads/thumbnails/audio_default.png",
		Size:      int64(len(f.Data)),
		CreatedAt: s.now().UTC(),
	}

	stored, err := s.storage.UploadAudio(ctx, bytes.NewReader(f.Data), "audio", strings.TrimSuffix(name, ext))
	if err != nil {
		s.log.Error().Err(err).Str("file", name).Msg("cloudinary audio upload failed")
		proof.UploadError = err.Error()
		return proof, nil
	}
	proof.CloudinaryURL = stored.SecureURL
	proof.CloudinaryPublicID = stored.PublicID
	return proof, nil
}

// DeleteProof removes the remote and local copies. Best effort on both
// sides: the first error is returned but every copy is attempted.
func (s *UploadService) DeleteProof(ctx context.Context, proof domain.Proof) error {
	var firstErr error

	if proof.CloudinaryPublicID != "" {
		if err := s.storage.Delete(ctx, proof.CloudinaryPublicID, proof.Type); err != nil {
			s.log.Error().Err(err).Str("public_id", proof.CloudinaryPublicID).Msg("cloudinary delete failed")
			firstErr = err
		}
	}

	for _, rel := range []string{proof.URL, proof.Thumbnail} {
		if rel == "" || strings.HasPrefix(rel, "http") || rel == "/uploads/thumbnails/audio_default.png" {
			continue
		}
		local := filepath.Join(s.uploadDir, strings.TrimPrefix(rel, "/uploads/"))
		if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
			s.log.Error().Err(err).Str("path", local).Msg("local delete failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *UploadService) uniqueName(ext string) string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d%s", s.now().UnixNano(), ext)
	}
	return fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), hex.EncodeToString(b), ext)
}

func extensionFor(name, fallback string) string {
	if ext := filepath.Ext(name); ext != "" {
		return strings.ToLower(ext)
	}
	return fallback
}

func fileSize(path string, fallback int64) int64 {
	if info, err := os.Stat(path); err == nil {
		return info.Size()
	}
	return fallback
}
