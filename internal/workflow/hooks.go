package workflow

import (
	"context"

	"github.com/legalpro/caseflow/model"
)

// Hook observes a committed status change. Hooks must not block and
// cannot veto the change.
type Hook func(ctx context.Context, change model.StatusChange)
