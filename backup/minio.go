package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Access   string `yaml:"access"`
	Secret   string `yaml:"secret"`
	Bucket   string `yaml:"bucket"`
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
	// remote "directory" for snapshots, e.g. "backups/flatkv"
	Prefix string `yaml:"prefix"`
	// plain http, for local minio servers
	Insecure     bool      `yaml:"insecure"`
	RequestTrace io.Writer `yaml:"-"`
}

// MinioUploader uploads snapshots to S3-compatible storage
type MinioUploader struct {
	Client *minio.Client
	config *MinioConfig
}

func ctx() context.Context {
	return context.Background()
}

func NewMinioUploader(config *MinioConfig) (*MinioUploader, error) {
	if config == nil {
		return nil, errors.New("must provide config")
	}
	c := config
	if c.Access == "" || c.Secret == "" || c.Bucket == "" || c.Endpoint == "" {
		return nil, errors.New("must provide access, secret, bucket and endpoint in config")
	}
	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: c.Region,
		Secure: !c.Insecure,
	})
	if err != nil {
		return nil, err
	}
	if c.RequestTrace != nil {
		mc.TraceOn(c.RequestTrace)
	}
	found, err := mc.BucketExists(ctx(), c.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", c.Bucket)
	}
	return &MinioUploader{
		Client: mc,
		config: c,
	}, nil
}

func (u *MinioUploader) RemotePath(name string) string {
	return path.Join(strings.Trim(u.config.Prefix, "/"), name)
}

func (u *MinioUploader) Upload(name string, data []byte) error {
	opts := minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	}
	r := bytes.NewReader(data)
	_, err := u.Client.PutObject(ctx(), u.config.Bucket, u.RemotePath(name), r, int64(len(data)), opts)
	return err
}
