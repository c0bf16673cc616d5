package recognizer

import "errors"

var (
	// ErrDecode: data gambar dari client tidak bisa dibaca sebagai gambar.
	ErrDecode = errors.New("data gambar tidak bisa dibaca")

	// ErrExtraction: service ekstraksi wajah gagal (model error, timeout, dsb).
	ErrExtraction = errors.New("ekstraksi wajah gagal")

	// ErrStoreKorup: jumlah baris matrix embedding dan isi label map tidak
	// sama. Biasanya akibat crash di tengah save. Fatal saat load; satu-satunya
	// pemulihan adalah enroll ulang semua siswa.
	ErrStoreKorup = errors.New("penyimpanan embedding korup")
)
