package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/bracket-sync/models"
)

// DocumentArchiver keeps an immutable copy of every saved document version.
type DocumentArchiver struct {
	uploader ObjectUploader
}

func NewDocumentArchiver(uploader ObjectUploader) *DocumentArchiver {
	return &DocumentArchiver{uploader: uploader}
}

func ArchiveKey(grade models.Grade, token models.VersionToken, at time.Time) string {
	tok := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, string(token))
	if tok == "" {
		tok = "unknown"
	}
	return fmt.Sprintf("archive/grade-%s/%d-%s.json", grade, at.UnixNano(), tok)
}

func (a *DocumentArchiver) Archive(ctx context.Context, grade models.Grade, token models.VersionToken, content []byte, at time.Time) (*UploadResult, error) {
	key := ArchiveKey(grade, token, at)
	res, err := a.uploader.Upload(ctx, key, "application/json", bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("archive grade %s: %w", grade, err)
	}
	return res, nil
}
