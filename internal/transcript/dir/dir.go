// Package dir serves transcripts from a local directory of <videoID>.txt or <videoID>.srt files.
package dir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"ytchat/internal/domain"
)

type Fetcher struct {
	root string
}

func NewFetcher(root string) *Fetcher {
	return &Fetcher{root: root}
}

// Fetch looks up <root>/<lang>/<id>.{txt,srt} first, then <root>/<id>.{txt,srt}.
func (f *Fetcher) Fetch(ctx context.Context, videoID, lang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// video ids never contain path separators, but refuse them anyway
	if videoID == "" || strings.ContainsAny(videoID, `/\.`) {
		return "", domain.ErrInvalidVideoReference
	}
	var candidates []string
	if lang != "" {
		candidates = append(candidates,
			filepath.Join(f.root, lang, videoID+".txt"),
			filepath.Join(f.root, lang, videoID+".srt"))
	}
	candidates = append(candidates,
		filepath.Join(f.root, videoID+".txt"),
		filepath.Join(f.root, videoID+".srt"))

	for _, path := range candidates {
		b, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrTranscriptUnavailable, err)
		}
		if strings.HasSuffix(path, ".srt") {
			return JoinSRT(string(b)), nil
		}
		return strings.Join(strings.Fields(string(b)), " "), nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrVideoNotFound, videoID)
}
