// Package attendance mengelola state machine kehadiran harian:
// satu record per (siswa, tanggal), state Absent -> Present sekali jalan.
package attendance

import (
	"fmt"
	"log"
	"sync"
	"time"

	"SIPRESMA/models"
)

// DateLayout adalah format tanggal sesi, sama dengan kolom tgl_absen.
const DateLayout = "2006-01-02"

// RecordStore adalah lapisan persistensi record absensi. Implementasi
// production pakai gorm (GormStore); test pakai fake in-memory.
type RecordStore interface {
	// ResetDate menghapus semua record tanggal itu lalu insert ulang
	// baseline, dalam satu transaksi.
	ResetDate(date string, records []models.Absensi) error
	// MarkPresent flip status jadi Present + refresh waktu. Balikin false
	// kalau record (siswa, tanggal) tidak ada; JANGAN bikin record baru.
	MarkPresent(studentID, date string, waktu time.Time, sumber string) (bool, error)
	ListByDate(date string) ([]models.Absensi, error)
}

// Roster adalah sumber daftar siswa terdaftar; dipenuhi *recognizer.Store.
type Roster interface {
	StudentIDs() []string
}

// Service menjalankan operasi sesi. Mutasi diserialisasi satu mutex — skala
// kelas, bukan high-throughput, jadi ini cukup.
type Service struct {
	mu      sync.Mutex
	records RecordStore
	roster  Roster
}

func NewService(records RecordStore, roster Roster) *Service {
	return &Service{records: records, roster: roster}
}

// Report adalah partisi kehadiran satu tanggal.
type Report struct {
	Date    string   `json:"date"`
	Present []string `json:"present"`
	Absent  []string `json:"absent"`
}

// StartSession membuka sesi untuk satu tanggal: record lama tanggal itu
// DIHAPUS lalu semua siswa terdaftar di-seed Absent. Destruktif dan idempoten
// (panggil dua kali = reset ke baseline lagi), makanya selalu dicatat di log
// dan hanya boleh dari route admin / scheduler.
func (s *Service) StartSession(date string) (int, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return 0, fmt.Errorf("tanggal %q tidak valid (format %s)", date, DateLayout)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.roster.StudentIDs()
	now := time.Now()
	records := make([]models.Absensi, 0, len(ids))
	for _, id := range ids {
		records = append(records, models.Absensi{
			StudentId: id,
			TglAbsen:  date,
			Status:    models.StatusAbsent,
			Waktu:     now,
			Sumber:    "session",
		})
	}

	if err := s.records.ResetDate(date, records); err != nil {
		return 0, fmt.Errorf("reset sesi %s: %w", date, err)
	}

	log.Printf("sesi absensi %s dibuka: %d siswa di-reset ke Absent", date, len(records))
	return len(records), nil
}

// MarkPresent menandai hadir semua id yang dikenali dalam satu pass.
// Id ganda (dua wajah orang yang sama di satu foto) idempoten. Id tanpa
// record untuk tanggal itu (belum enroll / sesi belum dibuka) di-drop
// diam-diam dan tidak masuk hasil; record baru TIDAK pernah dibuat implisit.
// Hasilnya: daftar id yang benar-benar punya record dan ter-update.
func (s *Service) MarkPresent(date string, studentIDs []string, sumber string) ([]string, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("tanggal %q tidak valid (format %s)", date, DateLayout)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	marked := make([]string, 0, len(studentIDs))
	seen := make(map[string]bool, len(studentIDs))
	now := time.Now()

	for _, id := range studentIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		ok, err := s.records.MarkPresent(id, date, now, sumber)
		if err != nil {
			return marked, fmt.Errorf("tandai hadir %s: %w", id, err)
		}
		if ok {
			marked = append(marked, id)
		} else {
			log.Printf("absensi %s: %s dikenali tapi tidak punya record (sesi belum dibuka?), di-drop", date, id)
		}
	}

	return marked, nil
}

// ReportByDate mempartisi record satu tanggal jadi present/absent.
// Tanggal tanpa sesi bukan error: dua-duanya kosong.
func (s *Service) ReportByDate(date string) (Report, error) {
	rep := Report{Date: date, Present: []string{}, Absent: []string{}}

	if _, err := time.Parse(DateLayout, date); err != nil {
		return rep, fmt.Errorf("tanggal %q tidak valid (format %s)", date, DateLayout)
	}

	records, err := s.records.ListByDate(date)
	if err != nil {
		return rep, fmt.Errorf("ambil record %s: %w", date, err)
	}

	for _, r := range records {
		if r.Status == models.StatusPresent {
			rep.Present = append(rep.Present, r.StudentId)
		} else {
			rep.Absent = append(rep.Absent, r.StudentId)
		}
	}
	return rep, nil
}
