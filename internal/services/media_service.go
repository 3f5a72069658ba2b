package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
)

// DefaultMediaPrefix is the key prefix under which transfer attachments are uploaded
const DefaultMediaPrefix = "telegram/"

// ObjectPresigner is satisfied by *s3.PresignClient
type ObjectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// MediaService turns stored media references into short-lived download URLs.
// URLs are cached in redis for a little less than their validity.
type MediaService struct {
	presigner ObjectPresigner
	redis     *redis.Client
	bucket    string
	prefix    string
	expiry    time.Duration
}

// NewMediaService creates the resolver. redisClient may be nil to disable caching.
func NewMediaService(presigner ObjectPresigner, redisClient *redis.Client, bucket, prefix string, expiry time.Duration) *MediaService {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &MediaService{
		presigner: presigner,
		redis:     redisClient,
		bucket:    bucket,
		prefix:    prefix,
		expiry:    expiry,
	}
}

func mediaCacheKey(ref string) string {
	return "media:url:" + ref
}

// ObjectKey returns the bucket key for a media reference
func (s *MediaService) ObjectKey(ref string) string {
	if strings.HasPrefix(ref, s.prefix) {
		return ref
	}
	return s.prefix + ref
}

// cacheTTL leaves a margin so a cached URL is never handed out already expired
func (s *MediaService) cacheTTL() time.Duration {
	ttl := s.expiry - time.Minute
	if ttl <= 0 {
		ttl = s.expiry / 2
	}
	return ttl
}

// ResolveURL returns a presigned GET URL for ref
func (s *MediaService) ResolveURL(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", errors.New("empty media reference")
	}

	key := mediaCacheKey(ref)
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, key).Result()
		if err == nil {
			return cached, nil
		}
		if err != redis.Nil {
			log.Printf("[MEDIA] Cache read failed for %s: %v", ref, err)
		}
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    stringPtr(s.ObjectKey(ref)),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", ref, err)
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, req.URL, s.cacheTTL()).Err(); err != nil {
			log.Printf("[MEDIA] Cache write failed for %s: %v", ref, err)
		}
	}
	return req.URL, nil
}

func stringPtr(s string) *string { return &s }
