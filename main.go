package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"golang.org/x/crypto/bcrypt"

	"SIPRESMA/attendance"
	"SIPRESMA/config"
	"SIPRESMA/controllers/absen"
	"SIPRESMA/controllers/auth"
	"SIPRESMA/controllers/face"
	"SIPRESMA/middlewares"
	"SIPRESMA/models"
	"SIPRESMA/recognizer"
)

func main() {
	cfg := config.Load()

	models.ConnectDatabase()
	seedAdmin()

	// Store embedding di-load sekali saat start. Store korup = fatal,
	// jangan jalan dengan data matching yang tidak konsisten.
	store := recognizer.NewStore(cfg.DataDir)
	if err := store.Load(); err != nil {
		log.Fatalf("Gagal load store embedding: %v", err)
	}
	log.Printf("Store embedding siap: %d siswa terdaftar.", store.Count())

	// Client ekstraksi dibuat sekali dan dishare semua request (koneksi ke
	// sidecar model itu mahal, dan client-nya memang stateless).
	extractor := recognizer.NewHTTPExtractor(cfg.ExtractorURL, cfg.ExtractorTimeout)

	aggregator := recognizer.NewAggregator(extractor, store)
	matcher := recognizer.NewMatcher(extractor, store, cfg.MinSimilarity)
	sesi := attendance.NewService(attendance.NewGormStore(models.DB), store)

	if cfg.SessionAutoStart != "" {
		mulaiSchedulerSesi(sesi, cfg.SessionAutoStart)
	}

	faceCtl := face.NewController(aggregator, matcher, store)
	absenCtl := absen.NewController(sesi, matcher)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
	}))

	api := r.Group("/api")
	api.POST("/login", auth.LoginHandler)
	api.POST("/recognize", faceCtl.RecognizeHandler)
	api.POST("/attendance/mark", absenCtl.MarkAttendanceHandler)
	api.GET("/attendance/report", absenCtl.ReportHandler)
	api.GET("/attendance/recent", absenCtl.GetRecentHandler)

	admin := api.Group("")
	admin.Use(middlewares.AuthMiddleware())
	admin.POST("/enroll", faceCtl.EnrollHandler)
	admin.POST("/session/start", absenCtl.StartSessionHandler)
	admin.GET("/students", faceCtl.ListStudentsHandler)

	log.Printf("Server jalan di port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server berhenti: %v", err)
	}
}

// mulaiSchedulerSesi memasang job harian yang me-reset sesi absensi ke
// baseline Absent di jam yang dikonfigurasi (SESSION_AUTOSTART, "HH:MM").
func mulaiSchedulerSesi(sesi *attendance.Service, jam string) {
	s := gocron.NewScheduler(time.Local)
	_, err := s.Every(1).Day().At(jam).Do(func() {
		date := time.Now().Format(attendance.DateLayout)
		seeded, err := sesi.StartSession(date)
		if err != nil {
			log.Printf("Auto-start sesi %s gagal: %v", date, err)
			return
		}
		log.Printf("Auto-start sesi %s: %d siswa ditandai Absent.", date, seeded)
	})
	if err != nil {
		log.Fatalf("Gagal pasang scheduler sesi (SESSION_AUTOSTART=%q): %v", jam, err)
	}
	s.StartAsync()
	log.Printf("Scheduler sesi aktif, buka sesi otomatis tiap hari jam %s.", jam)
}

// seedAdmin membuat akun admin pertama dari ADMIN_USERNAME/ADMIN_PASSWORD
// kalau belum ada. Tanpa akun admin, route enroll & buka sesi tidak terpakai.
func seedAdmin() {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		log.Println("Info: ADMIN_USERNAME/ADMIN_PASSWORD tidak diset, skip seed akun admin.")
		return
	}

	var count int64
	models.DB.Model(&models.Admin{}).Where("username = ?", username).Count(&count)
	if count > 0 {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Gagal hash password admin: %v", err)
	}
	if err := models.DB.Create(&models.Admin{Username: username, Password: string(hash)}).Error; err != nil {
		log.Fatalf("Gagal membuat akun admin: %v", err)
	}
	log.Printf("Akun admin %q dibuat.", username)
}
