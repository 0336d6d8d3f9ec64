package asset

import (
	"archive/zip"
	"io"
	"time"

	kio "github.com/klothoplatform/inference-stack/pkg/io"
)

// archiveTime is the modification time of every archive entry, so equal assets produce equal archives.
var archiveTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Archive is the zip of an asset, as a file for [kio.OutputTo].
type Archive struct {
	Asset *Asset
}

var _ kio.File = (*Archive)(nil)

func (z *Archive) Path() string {
	return z.Asset.ArchiveName()
}

func (z *Archive) WriteTo(w io.Writer) (int64, error) {
	counter := &kio.CountingWriter{Delegate: w}
	zw := zip.NewWriter(counter)
	for _, rel := range z.Asset.Files {
		hdr := &zip.FileHeader{
			Name:     rel,
			Method:   zip.Deflate,
			Modified: archiveTime,
		}
		hdr.SetMode(0644)
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return int64(counter.BytesWritten), err
		}
		if err := z.Asset.copyFile(rel, fw); err != nil {
			return int64(counter.BytesWritten), err
		}
	}
	err := zw.Close()
	return int64(counter.BytesWritten), err
}
