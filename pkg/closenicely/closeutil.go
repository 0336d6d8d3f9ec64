package closenicely

import (
	"errors"
	"io"

	"go.uber.org/zap"
)

// OrDebug closes `closer`, logging any failure at debug level. Use it for deferred closes of read-only
// handles where a close error does not affect the result.
func OrDebug(closer io.Closer) {
	FuncOrDebug(closer.Close)
}

func FuncOrDebug(closer func() error) {
	if err := closer(); err != nil {
		zap.L().Debug("Failed to close resource", zap.Error(err))
	}
}

// OrJoin closes `closer` and joins its error into `err`. Use it with a named return for writers whose
// close flushes data.
func OrJoin(closer io.Closer, err *error) {
	if cerr := closer.Close(); cerr != nil {
		if *err == nil {
			*err = cerr
			return
		}
		*err = errors.Join(*err, cerr)
	}
}
