package imagewatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/schuecal/avdroll/pkg/log"
	"github.com/schuecal/avdroll/pkg/types"
)

// ErrNoNewImage indicates no image build was published today. It is a
// terminal, non-error outcome for the pipeline: the run ends successfully
// having done nothing.
var ErrNoNewImage = errors.New("no new image published today")

// Watcher inspects the shared image repository and decides whether a fresh
// image build was published.
type Watcher struct {
	root string
	now  func() time.Time
}

// NewWatcher creates a watcher over the given repository root.
func NewWatcher(root string) *Watcher {
	return &Watcher{root: root, now: time.Now}
}

// Detect returns the newest build folder in the repository if its last-write
// date equals today's UTC date. An empty or missing repository yields
// ErrNoNewImage rather than a failure: a momentarily unavailable share must
// not crash the pipeline.
func (w *Watcher) Detect(ctx context.Context) (*types.ImageVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := log.WithComponent("imagewatch")

	entries, err := os.ReadDir(w.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Str("path", w.root).Msg("image repository not found, treating as no change")
			return nil, ErrNoNewImage
		}
		return nil, fmt.Errorf("failed to read image repository %s: %w", w.root, err)
	}

	versions := make([]*types.ImageVersion, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		versions = append(versions, &types.ImageVersion{
			FolderName: entry.Name(),
			LastWrite:  info.ModTime(),
		})
	}

	if len(versions) == 0 {
		logger.Info().Str("path", w.root).Msg("image repository is empty")
		return nil, ErrNoNewImage
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].LastWrite.After(versions[j].LastWrite)
	})
	newest := versions[0]

	if !newest.PublishedToday(w.now()) {
		logger.Info().
			Str("folder", newest.FolderName).
			Time("last_write", newest.LastWrite).
			Msg("newest image is stale, no rollout today")
		return nil, ErrNoNewImage
	}

	logger.Info().
		Str("folder", newest.FolderName).
		Time("last_write", newest.LastWrite).
		Msg("detected freshly published image")
	return newest, nil
}
