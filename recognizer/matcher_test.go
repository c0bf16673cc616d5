package recognizer

import (
	"context"
	"errors"
	"math"
	"testing"
)

func storeDenganSiswa(t *testing.T, ids ...string) *Store {
	t.Helper()
	st := NewStore(t.TempDir())
	for i, id := range ids {
		if _, err := st.Append(id, unitVec(i), 1); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}
	return st
}

func TestRecognizeCocok(t *testing.T) {
	st := storeDenganSiswa(t, "andi", "budi")
	ext := &fakeExtractor{queue: [][]Detection{
		{{Embedding: unitVec(1), Box: BBox{X: 10, Y: 20, W: 30, H: 40}}},
	}}
	m := NewMatcher(ext, st, 0.80)

	results, err := m.Recognize(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("harus 1 hasil, dapat %d", len(results))
	}

	r := results[0]
	if r.StudentID == nil || *r.StudentID != "budi" {
		t.Errorf("StudentID = %v, want budi", r.StudentID)
	}
	if r.Similarity == nil || math.Abs(*r.Similarity-1) > 1e-9 {
		t.Errorf("Similarity = %v, want 1", r.Similarity)
	}
	if r.Box != (BBox{X: 10, Y: 20, W: 30, H: 40}) {
		t.Errorf("bbox tidak diteruskan: %+v", r.Box)
	}
}

func TestRecognizeTolakDiBawahAmbang(t *testing.T) {
	st := storeDenganSiswa(t, "andi")
	// Probe miring 45 derajat dari referensi: sim = 1/sqrt(2) ~ 0.707 < 0.80
	probe := unitVec(0)
	probe[1] = 1
	ext := &fakeExtractor{queue: [][]Detection{{{Embedding: probe}}}}
	m := NewMatcher(ext, st, 0.80)

	results, err := m.Recognize(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatal(err)
	}

	r := results[0]
	if r.StudentID != nil {
		t.Errorf("harus ditolak, dapat %q", *r.StudentID)
	}
	// Skor kandidat terbaik tetap dilaporkan walau ditolak
	if r.Similarity == nil || math.Abs(*r.Similarity-1/math.Sqrt2) > 1e-9 {
		t.Errorf("Similarity = %v, want ~%v", r.Similarity, 1/math.Sqrt2)
	}
}

func TestRecognizeStoreKosong(t *testing.T) {
	st := NewStore(t.TempDir())
	ext := &fakeExtractor{queue: [][]Detection{
		{{Embedding: unitVec(0)}, {Embedding: unitVec(1)}},
	}}
	m := NewMatcher(ext, st, 0.80)

	results, err := m.Recognize(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatalf("store kosong bukan error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("harus 2 hasil, dapat %d", len(results))
	}
	for i, r := range results {
		if r.StudentID != nil || r.Similarity != nil {
			t.Errorf("hasil %d: id & similarity harus nil di store kosong, dapat %+v", i, r)
		}
	}
}

func TestRecognizeSeriMenangIndexTerkecil(t *testing.T) {
	st := NewStore(t.TempDir())
	// Dua siswa dengan referensi identik: skor seri, yang duluan enroll menang
	for _, id := range []string{"pertama", "kedua"} {
		if _, err := st.Append(id, unitVec(0), 1); err != nil {
			t.Fatal(err)
		}
	}
	ext := &fakeExtractor{queue: [][]Detection{{{Embedding: unitVec(0)}}}}
	m := NewMatcher(ext, st, 0.80)

	results, err := m.Recognize(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatal(err)
	}
	if results[0].StudentID == nil || *results[0].StudentID != "pertama" {
		t.Errorf("StudentID = %v, want pertama", results[0].StudentID)
	}
}

func TestRecognizeGambarRusak(t *testing.T) {
	st := storeDenganSiswa(t, "andi")
	m := NewMatcher(&fakeExtractor{}, st, 0.80)

	_, err := m.Recognize(context.Background(), []byte("bukan gambar"))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("harus ErrDecode, dapat: %v", err)
	}
}

func TestRecognizeUrutanSesuaiDetector(t *testing.T) {
	st := storeDenganSiswa(t, "andi", "budi")
	ext := &fakeExtractor{queue: [][]Detection{{
		{Embedding: unitVec(1), Box: BBox{X: 1}},
		{Embedding: unitVec(0), Box: BBox{X: 2}},
	}}}
	m := NewMatcher(ext, st, 0.80)

	results, err := m.Recognize(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Box.X != 1 || results[1].Box.X != 2 {
		t.Fatalf("urutan hasil harus mengikuti detector: %+v", results)
	}
	if *results[0].StudentID != "budi" || *results[1].StudentID != "andi" {
		t.Errorf("mapping hasil salah: %+v", results)
	}
}
