package storage

import (
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

const presignDownloadFor = 15 * time.Minute

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // empty for AWS
	Prefix    string
	AccessKey string // the default credential chain is used when empty
	SecretKey string
	TmpDir    string
}

// S3Storage keeps files in a S3 bucket. Local copies are temporary files in TmpDir.
type S3Storage struct {
	Storage
	cfg      S3Config
	s3Client *s3.S3
}

func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("S3 bucket name is empty")
	}
	awsConfig := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsConfig = awsConfig.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	if cfg.AccessKey != "" {
		awsConfig = awsConfig.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""))
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(cfg.TmpDir, 0777); err != nil {
		return nil, err
	}
	result := &S3Storage{
		Storage: Storage{
			name:     "s3://" + cfg.Bucket + "/" + cfg.Prefix,
			localDir: cfg.TmpDir,
		},
		cfg:      cfg,
		s3Client: s3.New(sess),
	}
	result.specifics = result
	return result, nil
}

func (s *S3Storage) remotePath(path string) string {
	prefix := strings.Trim(s.cfg.Prefix, "/")
	if prefix == "" {
		return path
	}
	return prefix + "/" + path
}

// GetFullPath returns local temp path in case of S3
func (s *S3Storage) GetFullPath(path string) string {
	return filepath.Join(s.cfg.TmpDir, strings.ReplaceAll(path, "/", "_"))
}

func (s *S3Storage) EnsureDirExists(dir string) error {
	return nil
}

// EnsureLocalFile downloads a S3 object locally
func (s *S3Storage) EnsureLocalFile(path string) error {
	resp, err := s.s3Client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.remotePath(path)),
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, err := os.Create(s.GetFullPath(path))
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, resp.Body); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (s *S3Storage) ReleaseLocalFile(path string) {
	if err := s.Delete(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Cannot remove local copy of %s: %v", path, err)
	}
}

// UpdateRemoteFile uploads the local copy
func (s *S3Storage) UpdateRemoteFile(path, mimeType string) error {
	data, err := os.Open(s.GetFullPath(path))
	if err != nil {
		return err
	}
	defer data.Close()

	uploader := s3manager.NewUploaderWithClient(s.s3Client)
	_, err = uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(s.remotePath(path)),
		ContentType: aws.String(mimeType),
		Body:        data,
	})
	return err
}

func (s *S3Storage) DeleteRemoteFile(path string) error {
	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.remotePath(path)),
	})
	return err
}

// Serve redirects to a presigned download URL
func (s *S3Storage) Serve(path, downloadName string, request *http.Request, writer http.ResponseWriter) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.remotePath(path)),
	}
	if downloadName != "" {
		input.ResponseContentDisposition = aws.String(mime.FormatMediaType("attachment", map[string]string{"filename": downloadName}))
	}
	req, _ := s.s3Client.GetObjectRequest(input)
	url, err := req.Presign(presignDownloadFor)
	if err != nil {
		log.Printf("Cannot presign %s: %v", path, err)
		http.Error(writer, "cannot create download link", http.StatusInternalServerError)
		return
	}
	http.Redirect(writer, request, url, http.StatusFound)
}
