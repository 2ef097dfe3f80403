package source

import (
	"context"

	"github.com/scanboard/scanboard/pkg/types"
)

// fileSource reads a JSON or YAML results file from disk on every load.
type fileSource struct {
	path string
}

func (s *fileSource) Load(ctx context.Context) (*types.AuditSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return types.LoadFile(s.path)
}
