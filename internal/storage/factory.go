package storage

import (
	"context"
	"fmt"

	"animrender/internal/adapters/storage/gdrive"
	"animrender/internal/adapters/storage/localfs"
	"animrender/internal/adapters/storage/s3"
	"animrender/internal/config"
)

// NewProvider builds the provider selected by cfg.StorageProvider().
func NewProvider(ctx context.Context, cfg config.StorageConfig, provider string) (Provider, error) {
	switch provider {
	case config.ProviderLocalFS:
		return localfs.New(cfg.OutputDir, cfg.PublicPath), nil

	case config.ProviderS3:
		return s3.New(ctx, s3.Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Endpoint:        cfg.S3.Endpoint,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})

	case config.ProviderGDrive:
		return gdrive.New(ctx, gdrive.Credentials{
			ClientID:     cfg.GDrive.ClientID,
			ClientSecret: cfg.GDrive.ClientSecret,
			RefreshToken: cfg.GDrive.RefreshToken,
		}, cfg.GDrive.FolderID)

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", provider)
	}
}
