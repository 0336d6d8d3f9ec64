package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// FunctionOverrides are the per model settings which may differ from the defaults in `overrides.<model>`.
type FunctionOverrides struct {
	Runtime        string            `mapstructure:"runtime"`
	MemorySize     int               `mapstructure:"memory_size"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds"`
	Environment    map[string]string `mapstructure:"environment"`
}

// FunctionOverrides decodes the overrides for `model`. Unknown keys are an error.
func (a Application) FunctionOverrides(model string) (FunctionOverrides, error) {
	var o FunctionOverrides
	params, ok := a.Overrides[model]
	if !ok {
		return o, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &o,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return o, err
	}
	if err := dec.Decode(map[string]interface{}(params)); err != nil {
		return o, errors.Wrapf(err, "invalid overrides for model %s", model)
	}
	return o, nil
}
