package images

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/aim840912/haode-api/supabase/client"
)

type fakeBucket struct {
	uploads map[string][]byte
	deleted []string
	status  int
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{uploads: make(map[string][]byte), status: http.StatusOK}
}

func (f *fakeBucket) Upload(ctx context.Context, path string, data []byte, contentType string) (*client.Response, error) {
	f.uploads[path] = data
	return &client.Response{StatusCode: f.status}, nil
}

func (f *fakeBucket) Delete(ctx context.Context, paths []string) (*client.Response, error) {
	f.deleted = append(f.deleted, paths...)
	return &client.Response{StatusCode: f.status}, nil
}

func (f *fakeBucket) GetPublicURL(path string) string {
	return "https://cdn.example.com/storage/v1/object/public/images/" + path
}

func TestUpload(t *testing.T) {
	bucket := newFakeBucket()
	svc := New(bucket, nil)

	path, url, err := svc.Upload(context.Background(), "products", []byte("fakejpegdata"), "image/jpeg")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(path, "products/") || !strings.HasSuffix(path, ".jpg") {
		t.Fatalf("expected products/<uuid>.jpg path, got %q", path)
	}
	if !strings.HasSuffix(url, path) {
		t.Fatalf("expected url ending in path, got %q", url)
	}
	if _, ok := bucket.uploads[path]; !ok {
		t.Fatal("expected bytes handed to the bucket")
	}
}

func TestUploadValidation(t *testing.T) {
	svc := New(newFakeBucket(), nil)
	ctx := context.Background()

	cases := []struct {
		name        string
		entity      string
		data        []byte
		contentType string
	}{
		{"empty entity", "", []byte("x"), "image/png"},
		{"nested entity", "products/2024", []byte("x"), "image/png"},
		{"traversal", "..", []byte("x"), "image/png"},
		{"empty file", "products", nil, "image/png"},
		{"oversized", "products", make([]byte, MaxUploadBytes+1), "image/png"},
		{"bad content type", "products", []byte("x"), "application/pdf"},
	}
	for _, tc := range cases {
		if _, _, err := svc.Upload(ctx, tc.entity, tc.data, tc.contentType); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestUploadSurfacesBucketErrors(t *testing.T) {
	bucket := newFakeBucket()
	bucket.status = http.StatusForbidden
	svc := New(bucket, nil)

	if _, _, err := svc.Upload(context.Background(), "products", []byte("x"), "image/webp"); err == nil {
		t.Fatal("expected error from bucket failure")
	}
}

func TestDelete(t *testing.T) {
	bucket := newFakeBucket()
	svc := New(bucket, nil)

	if err := svc.Delete(context.Background(), "/products/abc.jpg"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(bucket.deleted) != 1 || bucket.deleted[0] != "products/abc.jpg" {
		t.Fatalf("expected trimmed path deleted, got %v", bucket.deleted)
	}

	if err := svc.Delete(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if err := svc.Delete(context.Background(), "../secrets"); err == nil {
		t.Fatal("expected error for traversal path")
	}
}
