package recognizer

import (
	"context"

	"SIPRESMA/helper"
)

// Matcher mengklasifikasi tiap wajah di foto probe jadi student_id terdaftar
// atau "tidak dikenal". Murni baca: tidak pernah memutasi store.
type Matcher struct {
	extractor     Extractor
	store         *Store
	minSimilarity float64
}

// NewMatcher. minSimilarity adalah ambang penerimaan: kecocokan diterima
// kalau cosine similarity terbaik >= minSimilarity (default 0.80 di config).
func NewMatcher(ext Extractor, st *Store, minSimilarity float64) *Matcher {
	return &Matcher{extractor: ext, store: st, minSimilarity: minSimilarity}
}

// Match adalah hasil per wajah terdeteksi. StudentID nil = tidak dikenal;
// Similarity tetap diisi skor kandidat terbaik (yang ditolak) untuk
// observability, kecuali store kosong (nil juga).
type Match struct {
	StudentID  *string  `json:"student_id"`
	Similarity *float64 `json:"similarity"`
	Box        BBox     `json:"bbox"`
}

// Recognize mengembalikan satu Match per wajah terdeteksi, urutan sesuai
// keluaran detector. Store kosong bukan error: semua wajah dilaporkan tidak
// dikenal.
func (m *Matcher) Recognize(ctx context.Context, img []byte) ([]Match, error) {
	if err := ValidateImage(img); err != nil {
		return nil, err
	}

	detections, err := m.extractor.Extract(ctx, img)
	if err != nil {
		return nil, err
	}

	vectors, labels := m.store.Snapshot()

	results := make([]Match, 0, len(detections))
	for _, det := range detections {
		if len(vectors) == 0 {
			results = append(results, Match{Box: det.Box})
			continue
		}

		bestIdx := 0
		bestSim := helper.CosineSimilarity(det.Embedding, vectors[0])
		for i := 1; i < len(vectors); i++ {
			// Strictly greater: skor seri dimenangkan index terkecil
			// (yang lebih dulu enroll)
			if sim := helper.CosineSimilarity(det.Embedding, vectors[i]); sim > bestSim {
				bestSim, bestIdx = sim, i
			}
		}

		match := Match{Similarity: &bestSim, Box: det.Box}
		if bestSim >= m.minSimilarity {
			id := labels[bestIdx]
			match.StudentID = &id
		}
		results = append(results, match)
	}

	return results, nil
}
