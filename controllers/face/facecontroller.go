package face

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"SIPRESMA/recognizer"
)

type Controller struct {
	Aggregator *recognizer.Aggregator
	Matcher    *recognizer.Matcher
	Store      *recognizer.Store
}

func NewController(agg *recognizer.Aggregator, m *recognizer.Matcher, st *recognizer.Store) *Controller {
	return &Controller{Aggregator: agg, Matcher: m, Store: st}
}

// EnrollHandler menerima multipart: field "student_id" + satu atau lebih file
// di field "files". Semua embedding dari semua foto dirata-rata jadi satu
// vektor referensi.
func (ctl *Controller) EnrollHandler(c *gin.Context) {
	studentID := c.PostForm("student_id")
	if studentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Field student_id wajib diisi"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Form upload tidak valid: " + err.Error()})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Minimal satu foto wajib diunggah di field 'files'"})
		return
	}

	images, err := readUploads(files)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gagal membaca file upload"})
		return
	}

	res, err := ctl.Aggregator.Enroll(c.Request.Context(), studentID, images)
	if err != nil {
		c.JSON(statusUntukError(err), gin.H{"error": err.Error()})
		return
	}

	pesan := "Enrollment berhasil"
	if res.Embeddings == 0 {
		// Sukses tapi kosong: tidak ada wajah kepakai. Client wajib cek
		// field embeddings.
		pesan = "Tidak ada wajah terdeteksi di foto manapun. Data tidak disimpan."
	} else if res.Merged {
		pesan = "Enrollment berhasil, digabung dengan referensi lama"
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  pesan,
		"enrolled": res,
	})
}

// RecognizeHandler menerima satu foto di field "file" dan mengembalikan satu
// hasil per wajah terdeteksi. TIDAK menyentuh absensi — murni pencocokan.
func (ctl *Controller) RecognizeHandler(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Foto wajib diunggah di field 'file'"})
		return
	}

	images, err := readUploads([]*multipart.FileHeader{fh})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gagal membaca file upload"})
		return
	}

	results, err := ctl.Matcher.Recognize(c.Request.Context(), images[0])
	if err != nil {
		c.JSON(statusUntukError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// ListStudentsHandler mengembalikan roster siswa terdaftar urut enrollment.
func (ctl *Controller) ListStudentsHandler(c *gin.Context) {
	ids := ctl.Store.StudentIDs()
	c.JSON(http.StatusOK, gin.H{"students": ids, "total": len(ids)})
}

func readUploads(files []*multipart.FileHeader) ([][]byte, error) {
	images := make([][]byte, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		images = append(images, data)
	}
	return images, nil
}

func statusUntukError(err error) int {
	switch {
	case errors.Is(err, recognizer.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, recognizer.ErrExtraction):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
