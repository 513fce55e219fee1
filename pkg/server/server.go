package server

import (
	"context"

	"github.com/nvgt/nvgtbuild/internal/docgen"
	"github.com/nvgt/nvgtbuild/internal/server"
)

type Server interface {
	Start(ctx context.Context, withBuilder bool) error
}

// NewServer previews the documentation generated by gen on port.
func NewServer(gen *docgen.Generator, port int) (Server, error) {
	if err := gen.Init(); err != nil {
		return nil, err
	}
	return server.NewServer(gen, gen.SourceDir(), gen.HTMLDir(), port), nil
}
