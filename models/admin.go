package models

import "time"

// Admin adalah akun operator yang boleh enroll siswa & buka sesi absensi.
type Admin struct {
	Id        int64     `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:64" json:"username"`
	Password  string    `json:"-"` // hash bcrypt, jangan pernah keluar di JSON
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Admin) TableName() string {
	return "admins"
}
