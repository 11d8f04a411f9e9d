package builder

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/qobs-build/mkgen/internal/builder/gen"
	"go.uber.org/zap"
)

// RegenerateFunc is called after every regeneration in Watch. changed tells
// whether the Makefile on disk was rewritten.
type RegenerateFunc func(res *Result, changed bool, err error)

// Watch writes the Makefile, then keeps regenerating it whenever a source or
// header appears or disappears, or a directory is added or removed, below the
// configured roots. It returns when ctx is done.
func (b *Builder) Watch(ctx context.Context, onRegenerate RegenerateFunc) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	watched := make(map[string]struct{})
	exts := slices.Concat(b.cfg.SourceExtensions, b.cfg.HeaderExtensions)

	// arm watches every traversed directory and drops the ones that are gone
	arm := func() {
		walker := NewWalker(b.basedir, b.cfg, b.logger)
		current := make(map[string]struct{})
		for _, dir := range walker.AllDirectories(b.cfg.SourceRoots) {
			p := filepath.Clean(walker.fsPath(dir))
			current[p] = struct{}{}
			if _, ok := watched[p]; ok {
				continue
			}
			if err := fsw.Add(p); err != nil {
				b.logger.Debug("cannot watch directory", zap.String("dir", p), zap.Error(err))
				continue
			}
			watched[p] = struct{}{}
		}
		for p := range watched {
			if _, ok := current[p]; !ok {
				_ = fsw.Remove(p)
				delete(watched, p)
			}
		}
	}

	regenerate := func() {
		res, err := b.Generate()
		changed := false
		if err == nil {
			changed, err = b.Write(res)
		}
		arm()
		if onRegenerate != nil {
			onRegenerate(res, changed, err)
		}
	}

	relevant := func(ev fsnotify.Event) bool {
		if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
			return false
		}
		if slices.Contains(exts, gen.FileExtension(ev.Name)) {
			return true
		}
		if _, ok := watched[filepath.Clean(ev.Name)]; ok {
			return true
		}
		info, err := os.Stat(ev.Name)
		return err == nil && info.IsDir()
	}

	regenerate()

	timer := time.NewTimer(b.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if relevant(ev) {
				b.logger.Debug("tree changed", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
				timer.Reset(b.debounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			b.logger.Warn("watcher error", zap.Error(err))
		case <-timer.C:
			regenerate()
		}
	}
}
