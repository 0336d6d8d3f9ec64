package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// EntryLeveller is a zapcore.Core that filters entries by logger name. A level set for `stack` also
// applies to `stack.network` unless that name has its own level.
type EntryLeveller struct {
	zapcore.Core

	levels *sync.Map // map[string]zapcore.Level
}

func NewEntryLeveller(core zapcore.Core, levels map[string]zapcore.Level) *EntryLeveller {
	el := &EntryLeveller{Core: core, levels: new(sync.Map)}
	for k, v := range levels {
		el.levels.Store(k, v)
	}
	return el
}

func (el *EntryLeveller) With(f []zapcore.Field) zapcore.Core {
	return &EntryLeveller{
		Core:   el.Core.With(f),
		levels: el.levels,
	}
}

// levelFor finds the level of the closest configured ancestor of `name`, caching the result.
func (el *EntryLeveller) levelFor(name string) (zapcore.Level, bool) {
	if lvl, ok := el.levels.Load(name); ok {
		return lvl.(zapcore.Level), true
	}
	parts := strings.Split(name, ".")
	for i := len(parts) - 1; i > 0; i-- {
		if lvl, ok := el.levels.Load(strings.Join(parts[:i], ".")); ok {
			el.levels.Store(name, lvl)
			return lvl.(zapcore.Level), true
		}
	}
	if name != "" {
		if lvl, ok := el.levels.Load(""); ok {
			el.levels.Store(name, lvl)
			return lvl.(zapcore.Level), true
		}
	}
	return 0, false
}

func (el *EntryLeveller) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	level, ok := el.levelFor(e.LoggerName)
	if !ok {
		return el.Core.Check(e, ce)
	}
	if e.Level < level {
		return ce
	}
	return ce.AddCore(e, el)
}
