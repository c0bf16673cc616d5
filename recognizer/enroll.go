package recognizer

import (
	"context"
	"fmt"
	"log"

	"gonum.org/v1/gonum/floats"
)

// Aggregator mengubah N foto enrollment satu siswa jadi TEPAT satu vektor
// referensi: semua embedding dari semua foto di-pool lalu dirata-rata.
type Aggregator struct {
	extractor Extractor
	store     *Store
}

func NewAggregator(ext Extractor, st *Store) *Aggregator {
	return &Aggregator{extractor: ext, store: st}
}

// EnrollResult dikembalikan ke caller supaya bisa cek Embeddings == 0
// (enrollment "sukses" tapi tidak ada wajah kepakai sama sekali).
type EnrollResult struct {
	StudentID  string `json:"student_id"`
	Images     int    `json:"images"`     // jumlah foto yang dikirim
	Embeddings int    `json:"embeddings"` // jumlah embedding yang di-pool
	Merged     bool   `json:"merged"`     // true = re-enroll, digabung dengan referensi lama
}

// Enroll memproses foto satu per satu:
//   - foto yang gagal didecode di-skip (hanya fatal kalau SEMUA gagal decode)
//   - foto tanpa wajah terdeteksi di-skip diam-diam
//   - error dari service ekstraksi membatalkan seluruh enrollment
//
// Kalau tidak ada embedding sama sekali, store tidak disentuh dan hasilnya
// sukses dengan Embeddings 0.
func (a *Aggregator) Enroll(ctx context.Context, studentID string, images [][]byte) (EnrollResult, error) {
	res := EnrollResult{StudentID: studentID, Images: len(images)}

	if studentID == "" {
		return res, fmt.Errorf("student_id kosong")
	}
	if len(images) == 0 {
		return res, fmt.Errorf("minimal satu foto diperlukan")
	}

	sum := make([]float64, EmbeddingDim)
	pooled := 0
	decodeGagal := 0

	for i, img := range images {
		if err := ValidateImage(img); err != nil {
			log.Printf("enroll %s: foto ke-%d gagal decode, di-skip", studentID, i)
			decodeGagal++
			continue
		}

		detections, err := a.extractor.Extract(ctx, img)
		if err != nil {
			return res, fmt.Errorf("foto ke-%d: %w", i, err)
		}

		for _, d := range detections {
			floats.Add(sum, d.Embedding)
			pooled++
		}
	}

	if decodeGagal == len(images) {
		return res, fmt.Errorf("%w: semua foto gagal didecode", ErrDecode)
	}

	if pooled == 0 {
		// Tidak ada wajah di semua foto: no-op, bukan error. Caller wajib
		// cek Embeddings untuk tahu enrollment-nya kosong.
		return res, nil
	}

	mean := sum
	floats.Scale(1/float64(pooled), mean)

	merged, err := a.store.Append(studentID, mean, pooled)
	if err != nil {
		return res, fmt.Errorf("simpan referensi %s: %w", studentID, err)
	}

	res.Embeddings = pooled
	res.Merged = merged
	return res, nil
}
