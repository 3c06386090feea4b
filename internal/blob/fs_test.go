package blob

import (
	"context"
	"errors"
	"testing"
)

func TestFSStore_RoundTrip(t *testing.T) {
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS() error = %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "imports/a/file.csv", []byte("a,b\n1,2\n")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := store.Get(ctx, "imports/a/file.csv")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "a,b\n1,2\n" {
		t.Errorf("Get() = %q", got)
	}
}

func TestFSStore_MissingKey(t *testing.T) {
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS() error = %v", err)
	}

	if _, err := store.Get(context.Background(), "nope.csv"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestFSStore_RejectsTraversal(t *testing.T) {
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS() error = %v", err)
	}

	for _, key := range []string{"", "../escape.csv", "/abs.csv", "a/../../b"} {
		if err := store.Put(context.Background(), key, []byte("x")); err == nil {
			t.Errorf("Put(%q) accepted invalid key", key)
		}
	}
}
