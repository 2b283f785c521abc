// Package registry keeps the set of known compositions, keyed by id, and
// resolves a composition's props for one render invocation.
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/ivlev/composer/internal/composition"
	"github.com/ivlev/composer/internal/manifest"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotFound    = errors.New("composition not found")
	ErrDuplicateID = errors.New("composition id already registered")
	ErrConflict    = errors.New("conflicting definitions for composition")
)

// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]composition.Descriptor
	logger zerolog.Logger
}

// New creates an empty registry. The logger is used as given; callers tag
// it with their component.
func New(logger zerolog.Logger) *Registry {
	return &Registry{
		byID:   make(map[string]composition.Descriptor),
		logger: logger,
	}
}

// Register adds d. Ids are unique within the registry.
func (r *Registry) Register(d composition.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[d.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, d.ID())
	}
	r.byID[d.ID()] = d
	r.logger.Debug().Str("id", d.ID()).Msg("composition registered")
	return nil
}

// Replace registers d, overwriting any composition with the same id.
func (r *Registry) Replace(d composition.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.byID[d.ID()] = d
	r.mu.Unlock()
	return nil
}

func (r *Registry) Get(id string) (composition.Descriptor, error) {
	r.mu.RLock()
	d, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return composition.Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, nil
}

// List returns every registered composition ordered by id.
func (r *Registry) List() []composition.Descriptor {
	r.mu.RLock()
	out := make([]composition.Descriptor, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}

func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.byID, id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Resolve looks up id and returns a copy whose props are the registered
// defaults overlaid with overrides.
func (r *Registry) Resolve(id string, overrides composition.Props) (composition.Descriptor, error) {
	d, err := r.Get(id)
	if err != nil {
		return composition.Descriptor{}, err
	}
	return d.Resolve(overrides), nil
}

// LoadDir registers every composition file in dir, reading up to workers
// files at a time. A directory of render jobs usually holds several files
// for one id; the most recently modified one wins as long as all of them
// agree on geometry and timing. Files that disagree fail with ErrConflict.
// Nothing is registered when a file fails to read or files conflict.
func (r *Registry) LoadDir(ctx context.Context, dir string, workers int) (int, error) {
	paths, err := manifest.List(dir)
	if err != nil {
		return 0, err
	}
	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	found := make([]loadedFile, len(paths))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			d, err := manifest.ReadComposition(path)
			if err != nil {
				return err
			}
			found[i] = loadedFile{path: path, modTime: info.ModTime(), d: d}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	chosen, err := pickNewest(found)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for _, f := range chosen {
		if err := r.Register(f.d); err != nil {
			return loaded, fmt.Errorf("%s: %w", f.path, err)
		}
		loaded++
	}

	r.logger.Info().Str("dir", dir).Int("loaded", loaded).Int("files", len(paths)).Msg("compositions loaded")
	return loaded, nil
}

type loadedFile struct {
	path    string
	modTime time.Time
	d       composition.Descriptor
}

// pickNewest keeps one file per composition id, ordered by id.
func pickNewest(files []loadedFile) ([]loadedFile, error) {
	byID := make(map[string]loadedFile, len(files))
	for _, f := range files {
		prev, seen := byID[f.d.ID()]
		if !seen {
			byID[f.d.ID()] = f
			continue
		}
		if !sameShape(prev.d, f.d) {
			return nil, fmt.Errorf("%w: %s in %s and %s", ErrConflict, f.d.ID(), prev.path, f.path)
		}
		// ties go to the later path so the choice does not depend on scheduling
		if f.modTime.After(prev.modTime) || (f.modTime.Equal(prev.modTime) && f.path > prev.path) {
			byID[f.d.ID()] = f
		}
	}

	out := make([]loadedFile, 0, len(byID))
	for _, f := range byID {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].d.ID() < out[j].d.ID()
	})
	return out, nil
}

// sameShape compares everything but the props.
func sameShape(a, b composition.Descriptor) bool {
	return a.Width() == b.Width() &&
		a.Height() == b.Height() &&
		a.FPS() == b.FPS() &&
		a.DurationInFrames() == b.DurationInFrames()
}
