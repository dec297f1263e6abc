package persist

import (
	"errors"
	"path/filepath"
	"testing"
)

// Both implementations must satisfy the same contract; run the shared suite
// against each.
func TestBlobs_Contract(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		runBlobsContract(t, NewMemory())
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "blobs.db")
		blobs, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		t.Cleanup(func() { blobs.Close() })
		runBlobsContract(t, blobs)
	})
}

func runBlobsContract(t *testing.T, blobs Blobs) {
	t.Helper()

	// Missing key
	if _, err := blobs.Read("absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read(absent) err = %v, want ErrNotFound", err)
	}

	// Write then read
	if err := blobs.Write(KeyItems, []byte(`[{"id":"sku1"}]`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := blobs.Read(KeyItems)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != `[{"id":"sku1"}]` {
		t.Errorf("Read = %s, want original payload", data)
	}

	// Overwrite replaces
	if err := blobs.Write(KeyItems, []byte(`[]`)); err != nil {
		t.Fatalf("Write overwrite: %v", err)
	}
	data, err = blobs.Read(KeyItems)
	if err != nil {
		t.Fatalf("Read after overwrite: %v", err)
	}
	if string(data) != `[]` {
		t.Errorf("Read after overwrite = %s, want []", data)
	}

	// Keys are independent
	if _, err := blobs.Read(KeyOrderForm); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read(%s) err = %v, want ErrNotFound", KeyOrderForm, err)
	}
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobs.db")

	blobs, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := blobs.Write(KeyOrderForm, []byte(`{"orderFormId":"of-1"}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := blobs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	data, err := reopened.Read(KeyOrderForm)
	if err != nil {
		t.Fatalf("Read after reopen: %v", err)
	}
	if string(data) != `{"orderFormId":"of-1"}` {
		t.Errorf("Read after reopen = %s", data)
	}
}
