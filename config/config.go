package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/joho/godotenv"
)

// Variable global untuk menyimpan key agar bisa diakses di controller/middleware
var JWT_KEY []byte

// Struct untuk data yang disimpan di dalam Token
type JWTClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Fungsi init berjalan otomatis saat aplikasi start
func init() {
	// 1. Coba load file .env (khusus untuk local development).
	// Di server production file ini biasanya tidak ada, jadi error-nya kita abaikan.
	err := godotenv.Load()
	if err != nil {
		log.Println("Info: File .env tidak ditemukan. Menggunakan System Environment Variable (Mode Produksi).")
	}

	// 2. Ambil key dari Environment
	key := os.Getenv("JWT_KEY")

	// 3. Jika key kosong (kelupaan setting), matikan aplikasi demi keamanan.
	if key == "" {
		log.Fatal("FATAL ERROR: JWT_KEY tidak ditemukan di environment variable! Pastikan sudah diset di .env atau server variables.")
	}

	JWT_KEY = []byte(key)
}

// Settings menampung konfigurasi service recognizer & absensi.
type Settings struct {
	Port             string        // Port HTTP (default 8000)
	DataDir          string        // Folder penyimpanan matrix embedding & label map
	ExtractorURL     string        // URL service ekstraksi wajah (sidecar model)
	ExtractorTimeout time.Duration // Batas waktu panggilan ekstraksi
	MinSimilarity    float64       // Ambang cosine similarity untuk menerima kecocokan
	SessionAutoStart string        // Jam "HH:MM" untuk buka sesi otomatis; kosong = nonaktif
}

// Load membaca settings dari environment. Semua punya default yang masuk akal
// KECUALI EXTRACTOR_URL yang wajib diisi.
func Load() Settings {
	s := Settings{
		Port:             getEnv("PORT", "8000"),
		DataDir:          getEnv("DATA_DIR", "data"),
		ExtractorURL:     os.Getenv("EXTRACTOR_URL"),
		ExtractorTimeout: 30 * time.Second,
		MinSimilarity:    0.80,
		SessionAutoStart: os.Getenv("SESSION_AUTOSTART"),
	}

	if s.ExtractorURL == "" {
		log.Fatal("FATAL ERROR: EXTRACTOR_URL tidak ditemukan di environment variable!")
	}

	if v := os.Getenv("EXTRACTOR_TIMEOUT_SECONDS"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			log.Fatalf("EXTRACTOR_TIMEOUT_SECONDS tidak valid: %q", v)
		}
		s.ExtractorTimeout = time.Duration(sec) * time.Second
	}

	if v := os.Getenv("FACE_MIN_SIMILARITY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < -1 || f > 1 {
			log.Fatalf("FACE_MIN_SIMILARITY tidak valid: %q (harus angka -1..1)", v)
		}
		s.MinSimilarity = f
	}

	return s
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
