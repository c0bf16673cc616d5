package recognizer

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

const (
	matrixFile = "embeddings.bin"
	labelsFile = "labels.json"

	storeVersion = 1
)

var storeMagic = [4]byte{'F', 'E', 'M', 'B'}

// Store menyimpan SATU vektor referensi per siswa: matrix float32 di
// embeddings.bin + label map index->student_id di labels.json. Index baris
// naik monoton dan tidak pernah dipakai ulang.
//
// Disiplin akses: satu penulis (Append) dalam satu waktu, pembaca (Snapshot)
// boleh paralel dan melihat snapshot tersimpan terakhir.
type Store struct {
	mu      sync.RWMutex
	dir     string
	vectors [][]float64 // tiap baris panjang EmbeddingDim, jangan dimutasi in-place
	samples []uint32    // jumlah sampel enrollment yang sudah dirata-rata per baris
	labels  map[int]string
	index   map[string]int // kebalikan labels, untuk cek re-enroll
}

func NewStore(dir string) *Store {
	return &Store{
		dir:    dir,
		labels: make(map[int]string),
		index:  make(map[string]int),
	}
}

// Load membaca kedua artifact dari disk. Kalau salah satu belum ada, ini
// cold start: store mulai kosong, BUKAN error. Kalau isinya tidak konsisten
// (baris matrix != label), balikin ErrStoreKorup dan jangan lanjut.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	matBytes, errMat := os.ReadFile(filepath.Join(s.dir, matrixFile))
	labBytes, errLab := os.ReadFile(filepath.Join(s.dir, labelsFile))
	if os.IsNotExist(errMat) || os.IsNotExist(errLab) {
		s.vectors, s.samples = nil, nil
		s.labels = make(map[int]string)
		s.index = make(map[string]int)
		return nil
	}
	if errMat != nil {
		return fmt.Errorf("baca %s: %w", matrixFile, errMat)
	}
	if errLab != nil {
		return fmt.Errorf("baca %s: %w", labelsFile, errLab)
	}

	vectors, samples, err := decodeMatrix(matBytes)
	if err != nil {
		return err
	}

	var raw map[string]string
	if err := json.Unmarshal(labBytes, &raw); err != nil {
		return fmt.Errorf("%w: label map bukan JSON valid: %v", ErrStoreKorup, err)
	}
	if len(raw) != len(vectors) {
		return fmt.Errorf("%w: %d baris matrix vs %d label", ErrStoreKorup, len(vectors), len(raw))
	}

	labels := make(map[int]string, len(raw))
	index := make(map[string]int, len(raw))
	for k, id := range raw {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(vectors) {
			return fmt.Errorf("%w: index label %q tidak valid", ErrStoreKorup, k)
		}
		labels[i] = id
		index[id] = i
	}
	if len(index) != len(labels) {
		return fmt.Errorf("%w: ada student_id duplikat di label map", ErrStoreKorup)
	}

	s.vectors, s.samples = vectors, samples
	s.labels, s.index = labels, index
	return nil
}

// Append menambahkan vektor referensi untuk studentID, lalu langsung
// mempersist kedua artifact sebelum return. Kalau siswa sudah pernah enroll,
// vektor lama TIDAK ditimpa baris baru (itu bikin baris duplikat yang merusak
// matching) melainkan di-merge running average berbobot jumlah sampel.
// sampleCount = berapa embedding yang dirata-rata jadi vec.
func (s *Store) Append(studentID string, vec []float64, sampleCount int) (merged bool, err error) {
	if studentID == "" {
		return false, fmt.Errorf("student_id kosong")
	}
	if len(vec) != EmbeddingDim {
		return false, fmt.Errorf("dimensi embedding %d, harus %d", len(vec), EmbeddingDim)
	}
	if sampleCount < 1 {
		return false, fmt.Errorf("jumlah sampel minimal 1")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Susun state baru dulu (copy-on-write), persist, baru tukar ke memory.
	// Kalau save gagal, state lama tetap utuh di memory maupun disk.
	newVectors := make([][]float64, len(s.vectors), len(s.vectors)+1)
	copy(newVectors, s.vectors)
	newSamples := append([]uint32(nil), s.samples...)
	newLabels := make(map[int]string, len(s.labels)+1)
	for i, id := range s.labels {
		newLabels[i] = id
	}
	newIndex := make(map[string]int, len(s.index)+1)
	for id, i := range s.index {
		newIndex[id] = i
	}

	if idx, ok := s.index[studentID]; ok {
		old := s.vectors[idx]
		wOld := float64(s.samples[idx])
		wNew := float64(sampleCount)
		mergedVec := make([]float64, EmbeddingDim)
		for i := range mergedVec {
			mergedVec[i] = (old[i]*wOld + vec[i]*wNew) / (wOld + wNew)
		}
		newVectors[idx] = mergedVec
		newSamples[idx] += uint32(sampleCount)
		merged = true
	} else {
		idx := len(newVectors)
		newVectors = append(newVectors, append([]float64(nil), vec...))
		newSamples = append(newSamples, uint32(sampleCount))
		newLabels[idx] = studentID
		newIndex[studentID] = idx
	}

	if err := saveArtifacts(s.dir, newVectors, newSamples, newLabels); err != nil {
		return false, err
	}

	s.vectors, s.samples = newVectors, newSamples
	s.labels, s.index = newLabels, newIndex
	return merged, nil
}

// Snapshot mengembalikan view read-only state saat ini untuk matcher.
// Baris-barisnya dishare, jadi JANGAN dimutasi oleh pemanggil.
func (s *Store) Snapshot() ([][]float64, map[int]string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vectors := make([][]float64, len(s.vectors))
	copy(vectors, s.vectors)
	labels := make(map[int]string, len(s.labels))
	for i, id := range s.labels {
		labels[i] = id
	}
	return vectors, labels
}

// StudentIDs mengembalikan semua siswa terdaftar urut index enrollment.
func (s *Store) StudentIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.labels))
	for i := range ids {
		ids[i] = s.labels[i]
	}
	return ids
}

// Count mengembalikan jumlah siswa terdaftar.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Format embeddings.bin (little endian):
//
//	magic "FEMB" | uint32 version | uint32 dim | uint32 rows
//	lalu per baris: uint32 samples | dim x float32
type matrixHeader struct {
	Magic   [4]byte
	Version uint32
	Dim     uint32
	Rows    uint32
}

func encodeMatrix(vectors [][]float64, samples []uint32) ([]byte, error) {
	var buf bytes.Buffer
	hdr := matrixHeader{
		Magic:   storeMagic,
		Version: storeVersion,
		Dim:     EmbeddingDim,
		Rows:    uint32(len(vectors)),
	}
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		return nil, err
	}
	for i, vec := range vectors {
		if err := binary.Write(&buf, binary.LittleEndian, samples[i]); err != nil {
			return nil, err
		}
		row := make([]float32, len(vec))
		for j, v := range vec {
			row[j] = float32(v)
		}
		if err := binary.Write(&buf, binary.LittleEndian, row); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeMatrix(data []byte) ([][]float64, []uint32, error) {
	r := bytes.NewReader(data)

	var hdr matrixHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, nil, fmt.Errorf("%w: header matrix tidak terbaca: %v", ErrStoreKorup, err)
	}
	if hdr.Magic != storeMagic {
		return nil, nil, fmt.Errorf("%w: %s bukan file matrix embedding", ErrStoreKorup, matrixFile)
	}
	if hdr.Version != storeVersion {
		return nil, nil, fmt.Errorf("%w: versi format %d tidak didukung", ErrStoreKorup, hdr.Version)
	}
	if hdr.Dim != EmbeddingDim {
		return nil, nil, fmt.Errorf("%w: dimensi %d, harus %d", ErrStoreKorup, hdr.Dim, EmbeddingDim)
	}

	vectors := make([][]float64, 0, hdr.Rows)
	samples := make([]uint32, 0, hdr.Rows)
	for i := uint32(0); i < hdr.Rows; i++ {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, nil, fmt.Errorf("%w: baris %d terpotong: %v", ErrStoreKorup, i, err)
		}
		row := make([]float32, hdr.Dim)
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return nil, nil, fmt.Errorf("%w: baris %d terpotong: %v", ErrStoreKorup, i, err)
		}
		vec := make([]float64, hdr.Dim)
		for j, v := range row {
			vec[j] = float64(v)
		}
		vectors = append(vectors, vec)
		samples = append(samples, n)
	}
	if _, err := r.ReadByte(); err != io.EOF {
		return nil, nil, fmt.Errorf("%w: ada data sisa setelah %d baris", ErrStoreKorup, hdr.Rows)
	}

	return vectors, samples, nil
}

// saveArtifacts menulis kedua artifact lewat file temporary lalu rename,
// supaya save setengah jalan tidak merusak artifact lama. Crash tepat di
// antara dua rename masih mungkin bikin tidak konsisten; itu ketahuan saat
// Load sebagai ErrStoreKorup.
func saveArtifacts(dir string, vectors [][]float64, samples []uint32, labels map[int]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("buat folder data: %w", err)
	}

	matBytes, err := encodeMatrix(vectors, samples)
	if err != nil {
		return fmt.Errorf("encode matrix: %w", err)
	}

	raw := make(map[string]string, len(labels))
	for i, id := range labels {
		raw[strconv.Itoa(i)] = id
	}
	labBytes, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode label map: %w", err)
	}

	matPath := filepath.Join(dir, matrixFile)
	labPath := filepath.Join(dir, labelsFile)
	matTmp := matPath + ".tmp"
	labTmp := labPath + ".tmp"

	if err := os.WriteFile(matTmp, matBytes, 0o644); err != nil {
		return fmt.Errorf("tulis %s: %w", matrixFile, err)
	}
	if err := os.WriteFile(labTmp, labBytes, 0o644); err != nil {
		os.Remove(matTmp)
		return fmt.Errorf("tulis %s: %w", labelsFile, err)
	}
	if err := os.Rename(matTmp, matPath); err != nil {
		os.Remove(matTmp)
		os.Remove(labTmp)
		return fmt.Errorf("rename %s: %w", matrixFile, err)
	}
	if err := os.Rename(labTmp, labPath); err != nil {
		os.Remove(labTmp)
		return fmt.Errorf("rename %s: %w", labelsFile, err)
	}
	return nil
}
