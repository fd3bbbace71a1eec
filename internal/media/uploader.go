// Package media stores post images and returns a URL the feed can embed.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"
)

// DefaultMaxBytes is the upload ceiling callers enforce before Upload.
const DefaultMaxBytes = 5 << 20

// Uploader stores already size-checked bytes and returns a fetchable URL.
// Transport failures are apperr.ErrStorage.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename string) (string, error)
}

// ObjectPath is the key an upload is stored under.
func ObjectPath(now time.Time, filename string) string {
	return fmt.Sprintf("posts/%d_%s", now.UnixMilli(), cleanName(filename))
}

func cleanName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func contentType(data []byte) string {
	return http.DetectContentType(data)
}

// Inline encodes the bytes as a data URI; used when no bucket is configured.
type Inline struct{}

func (Inline) Upload(_ context.Context, data []byte, _ string) (string, error) {
	return "data:" + contentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
