package absen

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"SIPRESMA/attendance"
	"SIPRESMA/models"
	"SIPRESMA/recognizer"
)

type Controller struct {
	Sesi    *attendance.Service
	Matcher *recognizer.Matcher
}

func NewController(sesi *attendance.Service, m *recognizer.Matcher) *Controller {
	return &Controller{Sesi: sesi, Matcher: m}
}

type StartSessionPayload struct {
	Date string `json:"date"` // opsional, default hari ini
}

// StartSessionHandler membuka (atau me-RESET) sesi absensi satu tanggal:
// semua record tanggal itu dihapus, semua siswa di-seed Absent. Destruktif,
// makanya cuma ada di route admin.
func (ctl *Controller) StartSessionHandler(c *gin.Context) {
	var payload StartSessionPayload
	_ = c.ShouldBindJSON(&payload) // body boleh kosong

	date := payload.Date
	if date == "" {
		date = time.Now().Format(attendance.DateLayout)
	}

	seeded, err := ctl.Sesi.StartSession(date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Sesi %s dibuka. %d siswa ditandai Absent.", date, seeded),
		"date":    date,
		"seeded":  seeded,
	})
}

// MarkAttendanceHandler menerima satu foto, mengenali semua wajah di
// dalamnya, lalu menandai hadir semua siswa yang diterima matcher dalam satu
// pass. Response memuat hasil pencocokan lengkap plus daftar id yang
// benar-benar ter-update (id tanpa record di-drop diam-diam).
func (ctl *Controller) MarkAttendanceHandler(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Foto wajib diunggah di field 'file'"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gagal membaca file upload"})
		return
	}
	img, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gagal membaca file upload"})
		return
	}

	results, err := ctl.Matcher.Recognize(c.Request.Context(), img)
	if err != nil {
		switch {
		case errors.Is(err, recognizer.ErrDecode):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, recognizer.ErrExtraction):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		if r.StudentID != nil {
			ids = append(ids, *r.StudentID)
		}
	}

	date := time.Now().Format(attendance.DateLayout)
	marked, err := ctl.Sesi.MarkPresent(date, ids, "face-api")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gagal menyimpan kehadiran: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":    date,
		"results": results,
		"present": marked,
	})
}

// ReportHandler mempartisi record satu tanggal jadi present/absent.
// Tanggal tanpa sesi bukan error: dua list kosong.
func (ctl *Controller) ReportHandler(c *gin.Context) {
	date := c.DefaultQuery("date", time.Now().Format(attendance.DateLayout))

	rep, err := ctl.Sesi.ReportByDate(date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rep)
}

// GetRecentHandler mengembalikan record absensi terbaru lintas tanggal.
func (ctl *Controller) GetRecentHandler(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 || limit > 1000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Parameter limit tidak valid"})
		return
	}

	var records []models.Absensi
	if err := models.DB.Order("waktu desc").Limit(limit).Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gagal mengambil riwayat absensi"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"absensi": records})
}
