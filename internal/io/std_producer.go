package io

import (
	"context"

	"github.com/ecopia-map/cesium_tile_optimizer/internal/tiler"
)

type StandardProducer struct {
	files   []string
	options *tiler.TilerOptions
}

func NewStandardProducer(files []string, options *tiler.TilerOptions) *StandardProducer {
	return &StandardProducer{
		files:   files,
		options: options,
	}
}

// Submits one WorkUnit per file to the provided channel, in discovery order. Stops early when
// the context is cancelled. Closes the channel when done.
func (p *StandardProducer) Produce(ctx context.Context, work chan<- *WorkUnit) {
	defer close(work)

	for i, file := range p.files {
		select {
		case work <- NewWorkUnit(i, file, p.options):
		case <-ctx.Done():
			return
		}
	}
}
