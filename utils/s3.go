package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3ArtifactStore stores raw capture artifacts (meal photos, voice audio) in
// a single bucket and hands back the key plus a public URL.
type S3ArtifactStore struct {
	client     *s3.Client
	bucket     string
	publicBase string // CloudFront distribution or bucket URL
}

func NewS3ArtifactStore(cfg aws.Config, bucket, publicBase string) *S3ArtifactStore {
	return &S3ArtifactStore{
		client:     s3.NewFromConfig(cfg),
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}
}

func (a *S3ArtifactStore) Bucket() string { return a.bucket }

// UploadBase64 accepts a data URI ("data:<mime>;base64,<data>"), uploads the
// decoded bytes under keyPrefix and returns the object key and public URL.
func (a *S3ArtifactStore) UploadBase64(ctx context.Context, dataURI, keyPrefix string) (string, string, error) {
	parts := strings.Split(dataURI, ",")
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "data:") {
		return "", "", fmt.Errorf("invalid data URI")
	}
	meta := parts[0]
	data := parts[1]

	mediaType := strings.SplitN(meta, ":", 2)[1]         // "image/jpeg;base64"
	contentType := strings.SplitN(mediaType, ";", 2)[0]  // "image/jpeg"

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode artifact: %w", err)
	}

	key := fmt.Sprintf("%s/%s%s", keyPrefix, uuid.NewString(), extensionFor(contentType))

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return key, fmt.Sprintf("%s/%s", a.publicBase, key), nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "audio/webm":
		return ".webm"
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	if parts := strings.SplitN(contentType, "/", 2); len(parts) == 2 {
		return "." + parts[1]
	}
	return ""
}
