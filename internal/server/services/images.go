package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/webcatalog/internal/common"
	"github.com/dmitrijs2005/webcatalog/internal/dbx"
	"github.com/dmitrijs2005/webcatalog/internal/logging"
	"github.com/dmitrijs2005/webcatalog/internal/server/models"
	"github.com/dmitrijs2005/webcatalog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/webcatalog/internal/server/storage"
)

// DefaultMaxUploadBytes caps a decoded upload at 5 MiB.
const DefaultMaxUploadBytes int64 = 5 << 20

var (
	dataURLPattern = regexp.MustCompile(`^data:image/(\w+);base64,`)
	allowedTypes   = map[string]string{
		"jpeg": "jpg",
		"jpg":  "jpg",
		"png":  "png",
		"gif":  "gif",
		"webp": "webp",
	}
)

type ImageService struct {
	db          dbx.Transactor
	repomanager repomanager.RepositoryManager
	blobs       storage.Blobs
	maxBytes    int64
	log         logging.Logger
	now         func() time.Time
	randSuffix  func() (string, error)
}

func NewImageService(db dbx.Transactor, m repomanager.RepositoryManager, blobs storage.Blobs, maxBytes int64, log logging.Logger) *ImageService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &ImageService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		maxBytes:    maxBytes,
		log:         log.With("module", "images"),
		now:         time.Now,
		randSuffix:  func() (string, error) { return common.MakeRandHexString(8) },
	}
}

// Upload decodes a data URL, stores the binary and records it as unattached.
func (s *ImageService) Upload(ctx context.Context, dataURL string) (*models.Image, error) {
	dataURL = strings.TrimSpace(dataURL)
	if dataURL == "" {
		return nil, common.Public(common.ErrValidation, "No image provided")
	}

	m := dataURLPattern.FindStringSubmatch(dataURL)
	if m == nil {
		return nil, common.Public(common.ErrValidation, "Invalid image format")
	}
	ext, ok := allowedTypes[strings.ToLower(m[1])]
	if !ok {
		return nil, common.Public(common.ErrValidation, "Invalid image type. Allowed: jpeg, png, gif, webp")
	}

	data, err := base64.StdEncoding.DecodeString(dataURL[len(m[0]):])
	if err != nil || len(data) == 0 {
		return nil, common.Public(common.ErrValidation, "Failed to decode image data")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, common.Publicf(common.ErrValidation, "Image size exceeds %dMB limit", s.maxBytes>>20)
	}

	suffix, err := s.randSuffix()
	if err != nil {
		return nil, fmt.Errorf("random suffix: %w", err)
	}
	now := s.now()
	filename := fmt.Sprintf("img_%d_%s.%s", now.Unix(), suffix, ext)
	filepath := common.ImagePrefix + filename

	exists, err := s.blobs.Exists(ctx, filepath)
	if err != nil {
		return nil, common.IO("check image", err)
	}
	if exists {
		return nil, common.Public(common.ErrConflict, "Filename already exists")
	}

	repo := s.repomanager.Images(s.db.Conn())
	exists, err = repo.ExistsByFilename(ctx, filename)
	if err != nil {
		return nil, common.Persistence("check image", err)
	}
	if exists {
		return nil, common.Public(common.ErrConflict, "Filename already exists")
	}

	if err := s.blobs.Put(ctx, filepath, data); err != nil {
		if errors.Is(err, storage.ErrExists) {
			return nil, common.Public(common.ErrConflict, "Filename already exists")
		}
		return nil, common.IO("save image", err)
	}

	img, err := repo.Create(ctx, &models.Image{
		FileName:   filename,
		FilePath:   filepath,
		State:      models.Unattached,
		UploadedAt: now,
	})
	if err != nil {
		_ = s.blobs.Delete(ctx, filepath)
		if errors.Is(err, common.ErrConflict) {
			return nil, common.Public(common.ErrConflict, "Filename already exists")
		}
		return nil, common.Persistence("create image", err)
	}
	return img, nil
}

// ListImages returns every image, placeholder included, newest first.
func (s *ImageService) ListImages(ctx context.Context) ([]models.Image, error) {
	list, err := s.repomanager.Images(s.db.Conn()).List(ctx)
	if err != nil {
		return nil, common.Persistence("list images", err)
	}
	return list, nil
}

// CheckDuplicateFilename reports whether IMG/<filename> is taken.
func (s *ImageService) CheckDuplicateFilename(ctx context.Context, filename string) (bool, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return false, common.Public(common.ErrValidation, "No filename provided")
	}
	if strings.ContainsAny(filename, `/\`) || filename == "." || filename == ".." {
		return false, common.Public(common.ErrValidation, "Invalid filename")
	}

	exists, err := s.blobs.Exists(ctx, common.ImagePrefix+filename)
	if err != nil {
		return false, common.IO("check filename", err)
	}
	return exists, nil
}

func tempPath(filepath string) string {
	return common.TempImagePrefix + path.Base(filepath)
}

func sweepable(img *models.Image) bool {
	return !common.IsPlaceholder(img.ID, img.FileName) && !common.IsPlaceholder(img.ID, img.FilePath)
}

// DeleteUnattached removes every unattached image except the placeholder.
// Each image is handled in its own transaction: the row is locked and its
// state re-read, so an image attached meanwhile is left alone.
func (s *ImageService) DeleteUnattached(ctx context.Context) (*models.SweepReport, error) {
	list, err := s.repomanager.Images(s.db.Conn()).ListUnattached(ctx)
	if err != nil {
		return nil, common.Persistence("list unattached images", err)
	}

	report := &models.SweepReport{Errors: []string{}}
	for i := range list {
		img := &list[i]
		if !sweepable(img) {
			continue
		}
		if !strings.HasPrefix(img.FilePath, common.ImagePrefix) {
			report.Errors = append(report.Errors, "Failed to delete: "+img.FilePath)
			continue
		}

		deleted, err := s.deleteOne(ctx, img)
		if err != nil {
			s.log.Warn(ctx, "delete image failed", "filepath", img.FilePath, "error", err)
			report.Errors = append(report.Errors, "Failed to delete: "+img.FilePath)
			continue
		}
		if deleted {
			report.Total++
		}
	}
	return report, nil
}

func (s *ImageService) deleteOne(ctx context.Context, img *models.Image) (bool, error) {
	deleted := false
	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Images(tx)
		if err := repo.Lock(ctx, img.ID); err != nil {
			return err
		}
		cur, err := repo.FindByFilename(ctx, img.FileName)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil
			}
			return err
		}
		if cur.IsAttached() {
			return nil
		}

		if err := s.blobs.Delete(ctx, img.FilePath); err != nil {
			return err
		}
		if err := s.blobs.Delete(ctx, tempPath(img.FilePath)); err != nil {
			return err
		}
		if err := repo.Delete(ctx, img.ID); err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// MoveUnattachedToTemp parks the binaries of unattached images under
// IMG/temp-img/. Rows keep their filepath and state.
func (s *ImageService) MoveUnattachedToTemp(ctx context.Context) (*models.SweepReport, error) {
	list, err := s.repomanager.Images(s.db.Conn()).ListUnattached(ctx)
	if err != nil {
		return nil, common.Persistence("list unattached images", err)
	}

	report := &models.SweepReport{Errors: []string{}}
	for i := range list {
		img := &list[i]
		if !sweepable(img) || strings.Contains(img.FilePath, "temp-img/") {
			continue
		}
		if !strings.HasPrefix(img.FilePath, common.ImagePrefix) {
			report.Errors = append(report.Errors, "Failed to move: "+img.FilePath)
			continue
		}

		err := s.blobs.Move(ctx, img.FilePath, tempPath(img.FilePath))
		switch {
		case err == nil:
			report.Total++
		case errors.Is(err, storage.ErrNotFound):
		default:
			s.log.Warn(ctx, "move image failed", "filepath", img.FilePath, "error", err)
			report.Errors = append(report.Errors, "Failed to move: "+img.FilePath)
		}
	}
	return report, nil
}

// CleanTempImages deletes every parked binary together with its row. A
// parked binary whose image got attached again is moved back instead.
func (s *ImageService) CleanTempImages(ctx context.Context) (*models.SweepReport, error) {
	paths, err := s.blobs.List(ctx, common.TempImagePrefix)
	if err != nil {
		return nil, common.IO("list temp images", err)
	}

	report := &models.SweepReport{Errors: []string{}}
	for _, p := range paths {
		if common.IsPlaceholder(0, p) {
			continue
		}
		deleted, err := s.cleanOne(ctx, p)
		if err != nil {
			s.log.Warn(ctx, "delete temp image failed", "path", p, "error", err)
			report.Errors = append(report.Errors, "Failed to delete: "+p)
			continue
		}
		if deleted {
			report.Total++
		}
	}
	return report, nil
}

func (s *ImageService) cleanOne(ctx context.Context, blobPath string) (bool, error) {
	deleted := false
	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Images(tx)

		img, err := repo.FindByFilename(ctx, path.Base(blobPath))
		switch {
		case errors.Is(err, common.ErrNotFound):
			img = nil
		case err != nil:
			return err
		}

		if img != nil {
			if img.ID == common.PlaceholderImageID {
				return nil
			}
			if err := repo.Lock(ctx, img.ID); err != nil {
				return err
			}
			if img, err = repo.FindByFilename(ctx, img.FileName); err != nil {
				return err
			}
			if img.IsAttached() {
				return s.blobs.Move(ctx, blobPath, img.FilePath)
			}
		}

		if err := s.blobs.Delete(ctx, blobPath); err != nil {
			return err
		}
		if img != nil {
			if err := repo.Delete(ctx, img.ID); err != nil && !errors.Is(err, common.ErrNotFound) {
				return err
			}
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// Stats reports image counts and the number of parked binaries.
func (s *ImageService) Stats(ctx context.Context) (*models.ImageStats, error) {
	c, err := s.repomanager.Images(s.db.Conn()).Counts(ctx)
	if err != nil {
		return nil, common.Persistence("count images", err)
	}
	temp, err := s.blobs.List(ctx, common.TempImagePrefix)
	if err != nil {
		return nil, common.IO("list temp images", err)
	}
	return &models.ImageStats{
		Total:      c.Total,
		Attached:   c.Attached,
		Unattached: c.Unattached,
		TempFiles:  len(temp),
	}, nil
}

// Open returns the binary behind a relative image path. Parked binaries
// are found under their temp path.
func (s *ImageService) Open(ctx context.Context, filepath string) ([]byte, error) {
	filepath = path.Clean(filepath)
	if !strings.HasPrefix(filepath, common.ImagePrefix) {
		return nil, common.Public(common.ErrNotFound, "Image not found")
	}
	data, err := s.blobs.Get(ctx, filepath)
	if errors.Is(err, storage.ErrNotFound) && !strings.HasPrefix(filepath, common.TempImagePrefix) {
		data, err = s.blobs.Get(ctx, tempPath(filepath))
	}
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidPath):
		return nil, common.Public(common.ErrNotFound, "Image not found")
	default:
		return nil, common.IO("read image", err)
	}
}
