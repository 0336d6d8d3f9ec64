package python

import (
	"context"
	"testing"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopLevelFunctions(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []Function
	}{
		{
			name: "handler",
			source: `
				import json

				def handler(event, context):
				    return {"statusCode": 200, "body": json.dumps({})}
				`,
			want: []Function{{Name: "handler", Params: []string{"event", "context"}, Line: 4}},
		},
		{
			name: "nested and methods ignored",
			source: `
				class Model:
				    def handler(self, event, context):
				        pass

				def outer():
				    def handler(event, context):
				        pass
				    return handler
				`,
			want: []Function{{Name: "outer", Line: 6}},
		},
		{
			name: "typed and default params",
			source: `
				def handler(event: dict, context=None):
				    pass
				`,
			want: []Function{{Name: "handler", Params: []string{"event", "context"}, Line: 2}},
		},
		{
			name:   "no functions",
			source: `x = 1`,
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFile(context.Background(), "test.py", []byte(dedent.Dedent(tt.source)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.TopLevelFunctions())
		})
	}
}

func TestFindFunction(t *testing.T) {
	assert := assert.New(t)
	f, err := ParseFile(context.Background(), "yolo.py", []byte("def load():\n    pass\n\ndef handler(event, context):\n    pass\n"))
	require.NoError(t, err)

	fn, ok := f.FindFunction("handler")
	assert.True(ok)
	assert.Equal([]string{"event", "context"}, fn.Params)

	_, ok = f.FindFunction("main")
	assert.False(ok)
}
