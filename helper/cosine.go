package helper

import "gonum.org/v1/gonum/floats"

// Epsilon kecil di penyebut supaya vektor nol tidak bikin pembagian nol.
const cosineEpsilon = 1e-10

// CosineSimilarity menghitung kemiripan arah dua vektor embedding.
// Hasil di rentang [-1, 1]; 1 artinya identik. Kalau panjang vektor beda,
// langsung balikin -1 (pasti bukan wajah yang sama, datanya rusak).
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}

	sim := floats.Dot(a, b) / (floats.Norm(a, 2)*floats.Norm(b, 2) + cosineEpsilon)

	// Jaga-jaga error floating point di luar rentang teoretis
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return sim
}
