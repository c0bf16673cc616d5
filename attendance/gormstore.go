package attendance

import (
	"time"

	"gorm.io/gorm"

	"SIPRESMA/models"
)

// GormStore adalah RecordStore di atas MySQL lewat gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (g *GormStore) ResetDate(date string, records []models.Absensi) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tgl_absen = ?", date).Delete(&models.Absensi{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.Create(&records).Error
	})
}

func (g *GormStore) MarkPresent(studentID, date string, waktu time.Time, sumber string) (bool, error) {
	res := g.db.Model(&models.Absensi{}).
		Where("student_id = ? AND tgl_absen = ?", studentID, date).
		Updates(map[string]interface{}{
			"status": models.StatusPresent,
			"waktu":  waktu,
			"sumber": sumber,
		})
	return res.RowsAffected > 0, res.Error
}

func (g *GormStore) ListByDate(date string) ([]models.Absensi, error) {
	var records []models.Absensi
	err := g.db.Where("tgl_absen = ?", date).Order("student_id asc").Find(&records).Error
	return records, err
}
