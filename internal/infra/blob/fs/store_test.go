package fs

import (
	"context"
	"io"
	"strings"
	"testing"

	"prepcore/internal/blob"
)

func TestFilesystemStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Driver() != blob.DriverFilesystem {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	info, err := store.Put(ctx, "exports/p1/checklist.json", strings.NewReader(`{"version":1}`), blob.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ETag == "" || info.Size == 0 {
		t.Fatalf("expected etag and size, got %+v", info)
	}
	if _, err := store.Put(ctx, "exports/p1/checklist.json", strings.NewReader("x"), blob.PutOptions{}); err == nil {
		t.Fatalf("expected duplicate key rejection")
	}
	got, rc, err := store.Get(ctx, "exports/p1/checklist.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != `{"version":1}` || got.ContentType != "application/json" {
		t.Fatalf("unexpected content %q info %+v", data, got)
	}
	head, err := store.Head(ctx, "exports/p1/checklist.json")
	if err != nil || head.ETag != info.ETag {
		t.Fatalf("head mismatch: %v %+v", err, head)
	}
	infos, err := store.List(ctx, "exports/")
	if err != nil || len(infos) != 1 || infos[0].Key != "exports/p1/checklist.json" {
		t.Fatalf("list: %v %+v", err, infos)
	}
	u, err := store.PresignURL(ctx, "exports/p1/checklist.json", blob.SignedURLOptions{})
	if err != nil || !strings.HasPrefix(u, "http://local.blob/") {
		t.Fatalf("presign: %v %q", err, u)
	}
	ok, err := store.Delete(ctx, "exports/p1/checklist.json")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
}

func TestFilesystemStoreRejectsBadKeys(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "  ", "../escape", "/abs", "a/../../b"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), blob.PutOptions{}); err == nil {
			t.Errorf("expected rejection for key %q", key)
		}
	}
}
