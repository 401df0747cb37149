package widgets

import (
	"encoding/json"

	"github.com/mosaicboard/mosaic/internal/app/domain/widget"
)

// RegeneratePolicy decides whether a submission triggers synthesis or the
// cached artifact is kept. The controller's control flow does not change when
// the policy does.
type RegeneratePolicy interface {
	ShouldRegenerate(prev widget.Record, data json.RawMessage, prompt string) bool
}

// AlwaysRegenerate treats every submission as cache-invalidating. The tenant
// is the sole authority on when its data changed, so the call itself is the
// staleness signal; redundant synthesis is accepted in exchange for having no
// diffing logic.
type AlwaysRegenerate struct{}

func (AlwaysRegenerate) ShouldRegenerate(widget.Record, json.RawMessage, string) bool { return true }
