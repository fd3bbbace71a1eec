package media

import (
	"context"
	"strings"

	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/db"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Object struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Service uploads through the configured backend and, when a database is
// present, records who uploaded what in storage_objects.
type Service struct {
	uploader Uploader
	db       db.Querier
	maxBytes int64
	log      *zap.Logger
}

func NewService(uploader Uploader, q db.Querier, maxBytes int64, log *zap.Logger) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{uploader: uploader, db: q, maxBytes: maxBytes, log: log}
}

func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Upload assumes data has already been checked against MaxBytes.
func (s *Service) Upload(ctx context.Context, userID string, data []byte, filename string) (Object, error) {
	url, err := s.uploader.Upload(ctx, data, filename)
	if err != nil {
		return Object{}, err
	}
	obj := Object{ID: uuid.NewString(), URL: url}
	if s.db == nil {
		return obj, nil
	}
	// inline data URIs are not worth a row
	if strings.HasPrefix(url, "data:") {
		return obj, nil
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, url, kind)
		VALUES ($1,$2,$3,$4)
	`, obj.ID, userID, obj.URL, "post_image")
	if err != nil {
		return Object{}, apperr.Storage(err, "record upload")
	}
	s.log.Info("upload stored", zap.String("id", obj.ID), zap.Int("bytes", len(data)))
	return obj, nil
}
