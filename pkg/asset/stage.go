package asset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alitto/pond"
	kio "github.com/klothoplatform/inference-stack/pkg/io"
	"github.com/klothoplatform/inference-stack/pkg/logging"
	"go.uber.org/zap"
)

// Stage writes the archive of every distinct asset into `outDir`. An archive already present under the
// same name has the same content and is left alone.
func Stage(ctx context.Context, assets []*Asset, outDir string) ([]string, error) {
	log := logging.GetLogger(ctx).Named("asset")

	if err := os.MkdirAll(outDir, 0777); err != nil {
		return nil, fmt.Errorf("could not create asset output directory: %w", err)
	}

	seen := make(map[string]struct{}, len(assets))
	var staged []string

	var mu sync.Mutex
	var errs error

	pool := pond.New(5, 1000, pond.Strategy(pond.Lazy()))
	for _, a := range assets {
		a := a
		if _, ok := seen[a.Hash]; ok {
			continue
		}
		seen[a.Hash] = struct{}{}

		archive := &Archive{Asset: a}
		path := filepath.Join(outDir, archive.Path())
		staged = append(staged, path)
		pool.Submit(func() {
			if _, err := os.Stat(path); err == nil {
				log.Debug("asset already staged", zap.String("path", path))
				return
			}
			err := kio.OutputTo([]kio.File{archive}, outDir)
			if err == nil {
				log.Debug("staged asset", logging.FileField(archive), zap.Int("files", len(a.Files)))
				return
			}
			mu.Lock()
			errs = errors.Join(errs, fmt.Errorf("could not stage asset %s: %w", a.SourceDir, err))
			mu.Unlock()
		})
	}
	pool.StopAndWait()
	return staged, errs
}
