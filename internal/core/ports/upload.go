package ports

import (
	"context"
	"io"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
)

// IncomingFile is a single multipart upload, read fully into memory by the
// handler (sizes are capped upstream).
type IncomingFile struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// StoredMedia is the result of pushing one asset to the media store.
type StoredMedia struct {
	URL          string
	SecureURL    string
	PublicID     string
	ThumbnailURL string
	Width        int
	Height       int
	Bytes        int64
}

// MediaStorage abstracts the remote media store (Cloudinary in production).
type MediaStorage interface {
	UploadImage(ctx context.Context, r io.Reader, folder, publicID string) (*StoredMedia, error)
	UploadVideo(ctx context.Context, r io.Reader, folder, publicID string) (*StoredMedia, error)
	UploadAudio(ctx context.Context, r io.Reader, folder, publicID string) (*StoredMedia, error)
	Delete(ctx context.Context, publicID string, proofType domain.ProofType) error
}

// FrameExtractor grabs a poster frame from a video file. The production
// implementation shells out to ffmpeg; tests inject a stub.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, videoPath string) ([]byte, error)
}

// UploadService turns incoming files into alert proofs. Per-file failures
// degrade gracefully: the proof is kept with an error note instead of
// failing the batch.
type UploadService interface {
	ProcessFiles(ctx context.Context, files []IncomingFile) ([]domain.Proof, error)
	DeleteProof(ctx context.Context, proof domain.Proof) error
}
