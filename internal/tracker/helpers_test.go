package tracker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"jobtracker/internal/database"
	"jobtracker/internal/errcode"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func newOwner(t *testing.T, db *gorm.DB, email string) uint {
	t.Helper()
	user := User{PublicID: uuid.New(), Email: email, IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	return user.ID
}

var errTagStoreDown = errors.New("tag store unavailable")

// failTagInserts makes every later INSERT into tags fail, after the parent row is already written.
func failTagInserts(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_tag_inserts", func(tx *gorm.DB) {
		if tx.Statement.Table == "tags" {
			_ = tx.AddError(errTagStoreDown)
		}
	})
	require.NoError(t, err)
}

type fakeBlobs struct {
	uploaded map[string][]byte
	deleted  []string
	prefixes []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{uploaded: map[string][]byte{}}
}

func (f *fakeBlobs) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	b, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	f.uploaded[objectName] = b
	return &minio.UploadInfo{Key: objectName, Size: int64(len(b))}, nil
}

func (f *fakeBlobs) GeneratePresignedURL(_ context.Context, objectKey, downloadName string, _ time.Duration) (string, error) {
	return "https://example.invalid/" + objectKey + "?filename=" + url.QueryEscape(downloadName), nil
}

func (f *fakeBlobs) DeleteObject(_ context.Context, objectKey string) error {
	f.deleted = append(f.deleted, objectKey)
	delete(f.uploaded, objectKey)
	return nil
}

func (f *fakeBlobs) DeletePrefix(_ context.Context, prefix string) error {
	f.prefixes = append(f.prefixes, prefix)
	for key := range f.uploaded {
		if strings.HasPrefix(key, prefix) {
			delete(f.uploaded, key)
		}
	}
	return nil
}

func pdfUpload(name string) *Upload {
	content := []byte("%PDF-1.4\n%test\n")
	return &Upload{
		Name:        name,
		ContentType: "application/pdf",
		Size:        int64(len(content)),
		Reader:      bytes.NewReader(content),
	}
}

func tagNames(names ...string) Optional[TagNames] {
	return Some(TagNames(names))
}

func requireFieldError(t *testing.T, err error, field string) []string {
	t.Helper()
	verr, ok := errcodeValidation(err)
	require.Truef(t, ok, "expected validation error, got %v", err)
	require.Containsf(t, verr, field, "fields: %v", verr)
	return verr[field]
}

func viewNames(tags []TagView) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}

func errcodeValidation(err error) (map[string][]string, bool) {
	verr, ok := errcode.AsValidation(err)
	if !ok {
		return nil, false
	}
	return verr.Fields, true
}
