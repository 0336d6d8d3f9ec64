package asset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klothoplatform/inference-stack/pkg/code/python"
)

var ErrMissingHandler = errors.New("missing handler")

// CheckHandler verifies that the handler `<module>.<function>` is a top level function of the asset taking
// the `(event, context)` pair.
func CheckHandler(ctx context.Context, a *Asset, module, function string) error {
	rel := module + ".py"
	if !a.Contains(rel) {
		return fmt.Errorf("%w: %s has no %s", ErrMissingHandler, a.SourceDir, rel)
	}
	content, err := os.ReadFile(filepath.Join(a.SourceDir, rel))
	if err != nil {
		return err
	}
	f, err := python.ParseFile(ctx, rel, content)
	if err != nil {
		return err
	}
	fn, ok := f.FindFunction(function)
	if !ok {
		return fmt.Errorf("%w: %s does not define %s", ErrMissingHandler, rel, function)
	}
	if len(fn.Params) != 2 {
		return fmt.Errorf("%w: %s.%s on line %d takes %d parameters, expected (event, context)",
			ErrMissingHandler, module, function, fn.Line, len(fn.Params))
	}
	return nil
}
