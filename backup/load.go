package backup

import (
	"bytes"
	"io"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/klauspost/compress/gzip"
)

// LoadData uncompresses stored backup contents and returns the raw stream
func LoadData(data []byte) ([]byte, error) {
	g, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(g)
	if err != nil {
		return nil, err
	}
	if err := g.Close(); err != nil {
		return nil, err
	}
	return raw, nil
}

// DumpData returns the compressed raw stream
func DumpData(raw []byte) ([]byte, DumpDataStats, error) {
	var stat DumpDataStats
	t0 := time.Now()

	out := bytes.NewBuffer(make([]byte, 0, len(raw)/2+512))
	gw, err := gzip.NewWriterLevel(out, gzip.BestSpeed)
	if err != nil {
		return nil, stat, err
	}
	if _, err := gw.Write(raw); err != nil {
		return nil, stat, err
	}
	stat.StreamSize = datasize.ByteSize(len(raw))

	if err = gw.Close(); err != nil {
		return nil, stat, err
	}
	stat.TCompressed = time.Since(t0)

	compressedData := out.Bytes()
	stat.CompressedSize = datasize.ByteSize(len(compressedData))
	return compressedData, stat, nil
}

type DumpDataStats struct {
	TCompressed    time.Duration     // time it took to compress
	StreamSize     datasize.ByteSize // uncompressed stream size
	CompressedSize datasize.ByteSize // compressed size
}
