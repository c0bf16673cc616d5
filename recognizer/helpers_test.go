package recognizer

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"
)

// fakeExtractor membalas deteksi yang sudah disiapkan, satu entry queue per
// panggilan Extract. Kalau err diisi, semua panggilan gagal dengan err itu.
type fakeExtractor struct {
	queue [][]Detection
	err   error
	calls int
}

func (f *fakeExtractor) Extract(ctx context.Context, img []byte) ([]Detection, error) {
	if f.err != nil {
		return nil, f.err
	}
	defer func() { f.calls++ }()
	if f.calls >= len(f.queue) {
		return nil, nil
	}
	return f.queue[f.calls], nil
}

// pngBytes menghasilkan gambar PNG kecil yang valid untuk lolos ValidateImage.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// unitVec membuat vektor berdimensi EmbeddingDim dengan satu komponen bernilai 1.
func unitVec(axis int) []float64 {
	v := make([]float64, EmbeddingDim)
	v[axis] = 1
	return v
}
