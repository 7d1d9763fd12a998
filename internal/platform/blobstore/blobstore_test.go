package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestUploadAndDownload(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	meta, err := store.Upload(ctx, BlobMetadata{
		FileName:    "avatar.png",
		ContentType: "image/png",
		OwnerID:     7,
		Category:    "avatar",
	}, strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if meta.ID == "" || meta.Size != int64(len("png-bytes")) || meta.Hash == "" {
		t.Errorf("unexpected metadata: %+v", meta)
	}

	rc, got, err := store.Download(ctx, meta.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if !bytes.Equal(data, []byte("png-bytes")) {
		t.Errorf("content = %q", data)
	}
	if got.FileName != "avatar.png" {
		t.Errorf("file name = %q", got.FileName)
	}
}

func TestUpload_Validation(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.Upload(ctx, BlobMetadata{ContentType: "image/png"}, strings.NewReader("x"))
	if !errors.Is(err, ErrMissingFileName) {
		t.Errorf("expected ErrMissingFileName, got %v", err)
	}

	_, err = store.Upload(ctx, BlobMetadata{FileName: "doc.pdf", ContentType: "application/pdf"}, strings.NewReader("x"))
	if !errors.Is(err, ErrInvalidContentType) {
		t.Errorf("expected ErrInvalidContentType, got %v", err)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	store := NewInMemoryStore()

	big := bytes.NewReader(make([]byte, MaxFileSize+1))
	_, err := store.Upload(context.Background(), BlobMetadata{
		FileName:    "big.png",
		ContentType: "image/png",
	}, big)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	meta, err := store.Upload(ctx, BlobMetadata{
		FileName:    "a.jpg",
		ContentType: "image/jpeg",
	}, strings.NewReader("x"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := store.Delete(ctx, meta.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, meta.ID); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestListByOwner(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for _, m := range []BlobMetadata{
		{FileName: "a.png", ContentType: "image/png", OwnerID: 1, Category: "avatar"},
		{FileName: "b.png", ContentType: "image/png", OwnerID: 1, Category: "medication-image"},
		{FileName: "c.png", ContentType: "image/png", OwnerID: 2, Category: "avatar"},
	} {
		if _, err := store.Upload(ctx, m, strings.NewReader("x")); err != nil {
			t.Fatalf("upload %s: %v", m.FileName, err)
		}
	}

	items, total, err := store.ListByOwner(ctx, 1, "", 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("total = %d, items = %d, want 2/2", total, len(items))
	}

	items, total, err = store.ListByOwner(ctx, 1, "avatar", 20, 0)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if total != 1 || items[0].FileName != "a.png" {
		t.Errorf("filtered list = %+v, total %d", items, total)
	}
}
