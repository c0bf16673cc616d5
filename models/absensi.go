package models

import "time"

// Status absensi per siswa per tanggal. Hanya dua state: Absent -> Present.
const (
	StatusAbsent  = "Absent"
	StatusPresent = "Present"
)

// Absensi adalah satu record kehadiran: satu baris per (student_id, tgl_absen).
// Baseline "Absent" dibuat massal saat sesi dibuka, lalu di-flip ke "Present"
// waktu wajahnya dikenali.
type Absensi struct {
	Id        int64     `gorm:"primaryKey" json:"id"`
	StudentId string    `gorm:"index:idx_absensi_siswa_tgl,unique;size:64" json:"student_id"`
	TglAbsen  string    `gorm:"index:idx_absensi_siswa_tgl,unique;size:10" json:"tgl_absen"` // format 2006-01-02
	Status    string    `gorm:"size:10" json:"status"`
	Waktu     time.Time `json:"timestamp"` // waktu perubahan status terakhir
	Sumber    string    `gorm:"size:20" json:"source"`
}

func (Absensi) TableName() string {
	return "absensi"
}
