package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Archiver stores JSON documents under prefix with a unique key per call.
type Archiver struct {
	uploader FileUploader
	prefix   string
	newID    func() uuid.UUID
}

func NewArchiver(uploader FileUploader, prefix string) *Archiver {
	return &Archiver{uploader: uploader, prefix: prefix, newID: uuid.New}
}

// Archive uploads doc as JSON. The key is prefix + slug(name) + "-" + uuid.
func (a *Archiver) Archive(ctx context.Context, name string, doc any) (*UploadResult, error) {
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode archive document: %w", err)
	}
	key := a.Key(name)
	res, err := a.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to archive %q: %w", name, err)
	}
	return res, nil
}

func (a *Archiver) Key(name string) string {
	slug := slugify(name)
	if slug == "" {
		slug = "tournament"
	}
	return a.prefix + slug + "-" + a.newID().String() + ".json"
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
