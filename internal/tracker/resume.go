package tracker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobtracker/internal/errcode"
	"jobtracker/internal/storage"
)

const (
	pdfContentType   = "application/pdf"
	downloadLinkTTL  = 5 * time.Minute
	msgPDFType       = "File must have content type application/pdf."
	msgPDFExtension  = "File name must end with .pdf."
	msgPDFSignature  = "File is not a valid PDF."
	msgFileTooLarge  = "File is too large."
	msgMaliciousFile = "Malicious file detected."
)

var pdfSignature = []byte("%PDF")

// BlobStore is the object storage the resume files live in.
type BlobStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey, downloadName string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Scanner reports whether content is free of malware.
type Scanner interface {
	Scan(ctx context.Context, r io.Reader) (bool, error)
}

// Upload is one file received in a multipart request.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.ReadSeeker
}

// ResumeInput is the write shape of a Resume.
type ResumeInput struct {
	File *Upload             `json:"-"`
	Tags Optional[TagNames] `json:"tags"`
}

// DownloadLink is a short lived URL to the stored file.
type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ResumeService struct {
	db       *gorm.DB
	blobs    BlobStore
	scanner  Scanner
	maxBytes int64
	logger   *slog.Logger
}

// NewResumeService wires the resume service. scanner may be nil to skip malware scanning;
// maxBytes <= 0 disables the size limit.
func NewResumeService(db *gorm.DB, blobs BlobStore, scanner Scanner, maxBytes int64, logger *slog.Logger) *ResumeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResumeService{db: db, blobs: blobs, scanner: scanner, maxBytes: maxBytes, logger: logger}
}

// checkFile runs every PDF check and reports each failure. The reader is rewound afterwards.
func (s *ResumeService) checkFile(ctx context.Context, errs *errcode.ValidationError, up *Upload) error {
	if s.maxBytes > 0 && up.Size > s.maxBytes {
		errs.Add("file", msgFileTooLarge)
	}

	mediaType, _, err := mime.ParseMediaType(up.ContentType)
	if err != nil || mediaType != pdfContentType {
		errs.Add("file", msgPDFType)
	}
	if !strings.HasSuffix(strings.ToLower(up.Name), ".pdf") {
		errs.Add("file", msgPDFExtension)
	}

	head := make([]byte, len(pdfSignature))
	n, err := io.ReadFull(up.Reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read upload header: %w", err)
	}
	if !bytes.Equal(head[:n], pdfSignature) {
		errs.Add("file", msgPDFSignature)
	}
	if _, err := up.Reader.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind upload: %w", err)
	}

	if s.scanner == nil || errs.Has("file") {
		return nil
	}
	clean, err := s.scanner.Scan(ctx, up.Reader)
	if err != nil {
		return fmt.Errorf("scan upload: %w", err)
	}
	if !clean {
		errs.Add("file", msgMaliciousFile)
	}
	if _, err := up.Reader.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind upload: %w", err)
	}
	return nil
}

// store uploads the file under a fresh key for ownerID.
func (s *ResumeService) store(ctx context.Context, ownerID uint, up *Upload) (string, error) {
	key := storage.NewResumeObjectKey(ownerID)
	if _, err := s.blobs.UploadFile(ctx, key, up.Reader, up.Size, pdfContentType); err != nil {
		return "", fmt.Errorf("upload resume: %w", err)
	}
	return key, nil
}

// discard removes a blob that is no longer referenced. Failures are logged, not returned:
// the database state is already final at this point.
func (s *ResumeService) discard(ctx context.Context, key string) {
	if err := s.blobs.DeleteObject(ctx, key); err != nil {
		s.logger.Error("delete resume object", slog.String("objectKey", key), slog.String("error", err.Error()))
	}
}

func (s *ResumeService) Create(ctx context.Context, ownerID uint, in ResumeInput) (*ResumeView, error) {
	errs := &errcode.ValidationError{}
	tagNames := checkTagNames(errs, "tags", in.Tags)
	if in.File == nil {
		errs.Add("file", "No file was submitted.")
	} else if err := s.checkFile(ctx, errs, in.File); err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	key, err := s.store(ctx, ownerID, in.File)
	if err != nil {
		return nil, err
	}

	resume := Resume{OwnerID: ownerID, ObjectKey: key, FileName: in.File.Name, Size: in.File.Size}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&resume).Error; err != nil {
			return fmt.Errorf("create resume: %w", err)
		}
		tags, err := resolveTags(tx, ownerID, tagNames)
		if err != nil {
			return err
		}
		return replaceTags(tx, &resume, tags)
	})
	if err != nil {
		s.discard(context.WithoutCancel(ctx), key)
		return nil, err
	}
	return s.Get(ctx, ownerID, resume.ID)
}

func (s *ResumeService) List(ctx context.Context, ownerID uint) ([]ResumeView, error) {
	var resumes []Resume
	err := preloadResume(s.db.WithContext(ctx), "").
		Scopes(ownedBy(ownerID)).
		Order("id").
		Find(&resumes).Error
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	views := make([]ResumeView, 0, len(resumes))
	for i := range resumes {
		views = append(views, *newResumeView(&resumes[i]))
	}
	return views, nil
}

func (s *ResumeService) Get(ctx context.Context, ownerID, id uint) (*ResumeView, error) {
	resume, err := findOwned[Resume](preloadResume(s.db.WithContext(ctx), ""), ownerID, id)
	if err != nil {
		return nil, err
	}
	return newResumeView(resume), nil
}

// Update replaces the tags and/or the stored file. The old file is removed after commit.
func (s *ResumeService) Update(ctx context.Context, ownerID, id uint, in ResumeInput) (*ResumeView, error) {
	if _, err := findOwned[Resume](s.db.WithContext(ctx), ownerID, id); err != nil {
		return nil, err
	}

	errs := &errcode.ValidationError{}
	tagNames := checkTagNames(errs, "tags", in.Tags)
	if in.File != nil {
		if err := s.checkFile(ctx, errs, in.File); err != nil {
			return nil, err
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	var newKey string
	if in.File != nil {
		key, err := s.store(ctx, ownerID, in.File)
		if err != nil {
			return nil, err
		}
		newKey = key
	}

	var oldKey string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resume, err := findOwned[Resume](tx, ownerID, id)
		if err != nil {
			return err
		}
		if newKey != "" {
			oldKey = resume.ObjectKey
			resume.ObjectKey = newKey
			resume.FileName = in.File.Name
			resume.Size = in.File.Size
		}
		if err := tx.Omit(clause.Associations).Save(resume).Error; err != nil {
			return fmt.Errorf("update resume: %w", err)
		}
		if !in.Tags.Present() {
			return nil
		}
		tags, err := resolveTags(tx, ownerID, tagNames)
		if err != nil {
			return err
		}
		return replaceTags(tx, resume, tags)
	})
	if err != nil {
		if newKey != "" {
			s.discard(context.WithoutCancel(ctx), newKey)
		}
		return nil, err
	}
	if oldKey != "" {
		s.discard(ctx, oldKey)
	}
	return s.Get(ctx, ownerID, id)
}

func (s *ResumeService) Delete(ctx context.Context, ownerID, id uint) error {
	var key string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resume, err := findOwned[Resume](tx, ownerID, id)
		if err != nil {
			return err
		}
		key = resume.ObjectKey
		return deleteResume(tx, resume)
	})
	if err != nil {
		return err
	}
	s.discard(ctx, key)
	return nil
}

// DownloadLink returns a presigned URL for the owner's resume file, served under its original name.
func (s *ResumeService) DownloadLink(ctx context.Context, ownerID, id uint) (*DownloadLink, error) {
	resume, err := findOwned[Resume](s.db.WithContext(ctx), ownerID, id)
	if err != nil {
		return nil, err
	}
	url, err := s.blobs.GeneratePresignedURL(ctx, resume.ObjectKey, resume.FileName, downloadLinkTTL)
	if err != nil {
		return nil, fmt.Errorf("presign resume %d: %w", id, err)
	}
	return &DownloadLink{URL: url, ExpiresAt: time.Now().Add(downloadLinkTTL).UTC()}, nil
}
