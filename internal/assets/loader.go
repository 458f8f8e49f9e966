package assets

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
)

// FSLoader loads models from an afero filesystem through a Resolver.
type FSLoader struct {
	fs       afero.Fs
	resolver *Resolver
}

func NewFSLoader(fs afero.Fs, cfg Config) *FSLoader {
	return &FSLoader{fs: fs, resolver: NewResolver(fs, cfg)}
}

// Resolver exposes the loader's resolver for listing models.
func (l *FSLoader) Resolver() *Resolver {
	return l.resolver
}

// Load resolves and reads modelID. A cancelled ctx aborts before and after the read.
func (l *FSLoader) Load(ctx context.Context, modelID string) (Model, error) {
	if err := ctx.Err(); err != nil {
		return Model{}, err
	}
	p, err := l.resolver.Resolve(modelID)
	if err != nil {
		return Model{}, err
	}
	data, err := afero.ReadFile(l.fs, p)
	if err != nil {
		return Model{}, fmt.Errorf("read model %s: %w", p, err)
	}
	if err := ctx.Err(); err != nil {
		return Model{}, err
	}
	return Model{ID: modelID, Path: p, Data: data}, nil
}
