// Package imagestore persists a flash image read from the PCM to
// disk, optionally as a password-protected zip archive.
package imagestore

import (
	"fmt"
	"os"
	"time"

	"github.com/yeka/zip"
)

// SaveRaw writes image directly to path.
func SaveRaw(path string, image []byte) error {
	return os.WriteFile(path, image, 0o644)
}

// SaveEncryptedZip writes image into a single-entry AES-encrypted zip
// archive at path, protected by password. entryName is the name the
// image is stored under inside the archive (typically the same base
// name with a ".bin" extension).
func SaveEncryptedZip(path string, entryName string, image []byte, password string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	w, err := zw.Encrypt(entryName, password, zip.AES256Encryption)
	if err != nil {
		return fmt.Errorf("encrypting %s: %w", entryName, err)
	}
	if _, err := w.Write(image); err != nil {
		return fmt.Errorf("writing %s: %w", entryName, err)
	}
	return nil
}

// TimestampedName returns a filename of the form
// "<prefix>-<YYYYMMDD-HHMMSS>.<ext>", used so repeated reads of the
// same PCM never clobber an earlier dump.
func TimestampedName(prefix, ext string, at time.Time) string {
	return fmt.Sprintf("%s-%s.%s", prefix, at.Format("20060102-150405"), ext)
}
