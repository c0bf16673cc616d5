package recognizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestEnrollRataRataSemuaFoto(t *testing.T) {
	st := NewStore(t.TempDir())
	// Foto pertama dua wajah, foto kedua satu wajah: mean di-pool lintas
	// foto (3 embedding), bukan per foto.
	ext := &fakeExtractor{queue: [][]Detection{
		{{Embedding: unitVec(0)}, {Embedding: unitVec(1)}},
		{{Embedding: unitVec(2)}},
	}}
	agg := NewAggregator(ext, st)

	img := pngBytes(t)
	res, err := agg.Enroll(context.Background(), "andi", [][]byte{img, img})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if res.Embeddings != 3 {
		t.Errorf("Embeddings = %d, want 3", res.Embeddings)
	}
	if st.Count() != 1 {
		t.Fatalf("harus tepat satu vektor referensi, dapat %d", st.Count())
	}

	vectors, labels := st.Snapshot()
	if labels[0] != "andi" {
		t.Errorf("label baris 0 = %q, want andi", labels[0])
	}
	for j := 0; j < 3; j++ {
		if math.Abs(vectors[0][j]-1.0/3.0) > 1e-12 {
			t.Fatalf("komponen %d = %v, want 1/3", j, vectors[0][j])
		}
	}
	for j := 3; j < EmbeddingDim; j++ {
		if vectors[0][j] != 0 {
			t.Fatalf("komponen %d = %v, want 0", j, vectors[0][j])
		}
	}
}

func TestEnrollSkipFotoTanpaWajah(t *testing.T) {
	st := NewStore(t.TempDir())
	ext := &fakeExtractor{queue: [][]Detection{
		nil, // tidak ada wajah, bukan error
		{{Embedding: unitVec(0)}},
	}}
	agg := NewAggregator(ext, st)

	img := pngBytes(t)
	res, err := agg.Enroll(context.Background(), "budi", [][]byte{img, img})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if res.Embeddings != 1 {
		t.Errorf("Embeddings = %d, want 1", res.Embeddings)
	}
}

func TestEnrollSemuaFotoTanpaWajah(t *testing.T) {
	st := NewStore(t.TempDir())
	agg := NewAggregator(&fakeExtractor{}, st)

	img := pngBytes(t)
	res, err := agg.Enroll(context.Background(), "citra", [][]byte{img, img})
	if err != nil {
		t.Fatalf("enrollment kosong harus sukses (no-op), dapat: %v", err)
	}
	if res.Embeddings != 0 {
		t.Errorf("Embeddings = %d, want 0", res.Embeddings)
	}
	if st.Count() != 0 {
		t.Errorf("store harus tetap kosong, dapat %d baris", st.Count())
	}
}

func TestEnrollSemuaFotoGagalDecode(t *testing.T) {
	st := NewStore(t.TempDir())
	agg := NewAggregator(&fakeExtractor{}, st)

	_, err := agg.Enroll(context.Background(), "dedi", [][]byte{[]byte("bukan gambar"), []byte("juga bukan")})
	if !errors.Is(err, ErrDecode) {
		t.Errorf("harus ErrDecode, dapat: %v", err)
	}
	if st.Count() != 0 {
		t.Errorf("store tidak boleh berubah, dapat %d baris", st.Count())
	}
}

func TestEnrollSebagianGagalDecodeTetapJalan(t *testing.T) {
	st := NewStore(t.TempDir())
	ext := &fakeExtractor{queue: [][]Detection{
		{{Embedding: unitVec(0)}},
	}}
	agg := NewAggregator(ext, st)

	res, err := agg.Enroll(context.Background(), "eka", [][]byte{[]byte("rusak"), pngBytes(t)})
	if err != nil {
		t.Fatalf("satu foto rusak harus di-skip, dapat: %v", err)
	}
	if res.Embeddings != 1 {
		t.Errorf("Embeddings = %d, want 1", res.Embeddings)
	}
}

func TestEnrollErrorEkstraksiBatal(t *testing.T) {
	st := NewStore(t.TempDir())
	ext := &fakeExtractor{err: fmt.Errorf("%w: model mati", ErrExtraction)}
	agg := NewAggregator(ext, st)

	_, err := agg.Enroll(context.Background(), "fani", [][]byte{pngBytes(t)})
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("harus ErrExtraction, dapat: %v", err)
	}
	if st.Count() != 0 {
		t.Errorf("store tidak boleh berubah, dapat %d baris", st.Count())
	}
}

func TestEnrollReenrollMerge(t *testing.T) {
	st := NewStore(t.TempDir())
	ext := &fakeExtractor{queue: [][]Detection{
		{{Embedding: unitVec(0)}},
		{{Embedding: unitVec(1)}},
	}}
	agg := NewAggregator(ext, st)

	img := pngBytes(t)
	if _, err := agg.Enroll(context.Background(), "gita", [][]byte{img}); err != nil {
		t.Fatal(err)
	}
	res, err := agg.Enroll(context.Background(), "gita", [][]byte{img})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Merged {
		t.Error("enroll kedua harus dilaporkan merge")
	}
	if st.Count() != 1 {
		t.Errorf("tetap satu baris per siswa, dapat %d", st.Count())
	}
}
