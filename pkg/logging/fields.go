package logging

import (
	"github.com/klothoplatform/inference-stack/pkg/construct"
	kio "github.com/klothoplatform/inference-stack/pkg/io"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type resourceField struct {
	id construct.ResourceId
}

func (f resourceField) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("type", f.id.QualifiedTypeName())
	if f.id.Namespace != "" {
		enc.AddString("namespace", f.id.Namespace)
	}
	enc.AddString("name", f.id.Name)
	return nil
}

func ResourceField(id construct.ResourceId) zap.Field {
	return zap.Object("resource", resourceField{id: id})
}

type fileField struct {
	f kio.File
}

func (f fileField) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("path", f.f.Path())
	return nil
}

func FileField(f kio.File) zap.Field {
	return zap.Object("file", fileField{f: f})
}

func FileNames(files []kio.File) []string {
	s := make([]string, len(files))
	for i, f := range files {
		s[i] = f.Path()
	}
	return s
}
