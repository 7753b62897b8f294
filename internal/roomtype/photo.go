package roomtype

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/kystlys/stay-engine/internal/pkg/storage"
)

const maxPhotoBytes = 10 << 20

var (
	displayRendition = storage.Rendition{MaxWidth: 1600, MaxHeight: 1200}
	thumbRendition   = storage.Rendition{MaxWidth: 400, MaxHeight: 300, Crop: true}
)

// PhotoService stores the marketing photo of a room type as a display
// rendition and a cropped thumbnail.
type PhotoService struct {
	repo    Repository
	storage storage.Storage
	imgProc *storage.ImageProcessor
}

func NewPhotoService(repo Repository, store storage.Storage) *PhotoService {
	return &PhotoService{
		repo:    repo,
		storage: store,
		imgProc: storage.NewImageProcessor(),
	}
}

// Upload replaces the room type's photo. Old files are removed only after
// the new paths are persisted.
func (s *PhotoService) Upload(ctx context.Context, roomTypeID string, content io.Reader) (*RoomType, error) {
	rt, err := s.repo.GetByID(ctx, roomTypeID)
	if err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(content, maxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if len(raw) > maxPhotoBytes {
		return nil, ErrNotAnImage
	}

	img, err := s.imgProc.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrNotAnImage
	}

	id := uuid.New().String()
	photoPath := fmt.Sprintf("room-types/%s/%s.jpg", rt.ID, id)
	thumbPath := fmt.Sprintf("room-types/%s/%s_thumb.jpg", rt.ID, id)

	for path, r := range map[string]storage.Rendition{photoPath: displayRendition, thumbPath: thumbRendition} {
		out, err := s.imgProc.Render(img, r)
		if err != nil {
			return nil, err
		}
		if err := s.storage.Save(ctx, path, out); err != nil {
			return nil, fmt.Errorf("failed to save photo: %w", err)
		}
	}

	if err := s.repo.SetPhoto(ctx, rt.ID, photoPath, thumbPath); err != nil {
		_ = s.storage.Delete(ctx, photoPath)
		_ = s.storage.Delete(ctx, thumbPath)
		return nil, err
	}

	if rt.PhotoPath != nil {
		_ = s.storage.Delete(ctx, *rt.PhotoPath)
	}
	if rt.ThumbPath != nil {
		_ = s.storage.Delete(ctx, *rt.ThumbPath)
	}

	return s.repo.GetByID(ctx, rt.ID)
}

// Open streams the display photo, or the thumbnail when thumb is true.
func (s *PhotoService) Open(ctx context.Context, roomTypeID string, thumb bool) (io.ReadCloser, error) {
	rt, err := s.repo.GetByID(ctx, roomTypeID)
	if err != nil {
		return nil, err
	}
	path := rt.PhotoPath
	if thumb {
		path = rt.ThumbPath
	}
	if path == nil {
		return nil, ErrNotFound.WithDetails(map[string]any{"reason": "room type has no photo"})
	}
	return s.storage.Get(ctx, *path)
}
