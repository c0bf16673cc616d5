package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	// Decoder gambar yang didukung untuk validasi upload
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// EmbeddingDim adalah dimensi vektor wajah dari model FaceNet.
const EmbeddingDim = 512

// BBox adalah kotak lokasi wajah di gambar (pixel).
type BBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Detection adalah satu wajah yang terdeteksi: vektor embedding + lokasinya.
type Detection struct {
	Embedding []float64 `json:"embedding"`
	Box       BBox      `json:"bbox"`
}

// Extractor adalah kolaborator eksternal yang mengubah gambar jadi daftar
// deteksi wajah. Boleh balikin list kosong (tidak ada wajah di gambar).
// Implementasi production memanggil sidecar model lewat HTTP; di test cukup
// pakai fake.
type Extractor interface {
	Extract(ctx context.Context, img []byte) ([]Detection, error)
}

// ValidateImage memastikan bytes yang di-upload benar-benar gambar yang bisa
// didecode (jpeg/png/gif/bmp/webp) SEBELUM dikirim ke service ekstraksi.
func ValidateImage(data []byte) error {
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// HTTPExtractor memanggil sidecar model (MTCNN + FaceNet) lewat HTTP.
// Model inference itu berat; timeout wajib dibatasi supaya request tidak
// menggantung waktu model warm-up.
type HTTPExtractor struct {
	baseURL string
	client  *http.Client
}

func NewHTTPExtractor(baseURL string, timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Format respons sidecar: {"faces":[{"embedding":[512 float],"bbox":{...}}]}
type extractResponse struct {
	Faces []Detection `json:"faces"`
	Error string      `json:"error"`
}

func (e *HTTPExtractor) Extract(ctx context.Context, img []byte) ([]Detection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: sidecar balas status %d", ErrExtraction, resp.StatusCode)
	}

	var parsed extractResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: respons sidecar bukan JSON valid: %v", ErrExtraction, err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrExtraction, parsed.Error)
	}

	for i, d := range parsed.Faces {
		if len(d.Embedding) != EmbeddingDim {
			return nil, fmt.Errorf("%w: wajah ke-%d punya dimensi %d (harus %d)",
				ErrExtraction, i, len(d.Embedding), EmbeddingDim)
		}
	}

	return parsed.Faces, nil
}
