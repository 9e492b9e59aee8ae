package ldb

import (
	"bytes"
	"testing"
)

func prepareDatabaseForTest(t *testing.T, testName string) (ldb *LevelDB, teardownFunc func()) {
	path := t.TempDir()
	ldb, err := NewLevelDB(path, 8)
	if err != nil {
		t.Fatalf("%s: NewLevelDB unexpectedly failed: %s", testName, err)
	}
	teardownFunc = func() {
		err := ldb.Close()
		if err != nil {
			t.Fatalf("%s: Close unexpectedly failed: %s", testName, err)
		}
	}
	return ldb, teardownFunc
}

func TestLevelDBSanity(t *testing.T) {
	ldb, teardownFunc := prepareDatabaseForTest(t, "TestLevelDBSanity")
	defer teardownFunc()

	key := []byte("key")
	putData := []byte("Hello world!")
	err := ldb.Put(key, putData)
	if err != nil {
		t.Fatalf("TestLevelDBSanity: Put returned unexpected error: %s", err)
	}

	getData, err := ldb.Get(key)
	if err != nil {
		t.Fatalf("TestLevelDBSanity: Get returned unexpected error: %s", err)
	}
	if !bytes.Equal(getData, putData) {
		t.Fatalf("TestLevelDBSanity: get data and put data are not equal. Put: %s, got: %s",
			string(putData), string(getData))
	}

	exists, err := ldb.Has(key)
	if err != nil || !exists {
		t.Fatalf("TestLevelDBSanity: Has unexpectedly returned %t, %v", exists, err)
	}

	err = ldb.Delete(key)
	if err != nil {
		t.Fatalf("TestLevelDBSanity: Delete returned unexpected error: %s", err)
	}
	getData, err = ldb.Get(key)
	if err != nil {
		t.Fatalf("TestLevelDBSanity: Get returned unexpected error: %s", err)
	}
	if getData != nil {
		t.Fatalf("TestLevelDBSanity: expected a deleted key to return nil, got %s", string(getData))
	}
}

func TestLevelDBReopen(t *testing.T) {
	path := t.TempDir()
	ldb, err := NewLevelDB(path, 8)
	if err != nil {
		t.Fatalf("TestLevelDBReopen: NewLevelDB unexpectedly failed: %s", err)
	}
	err = ldb.Put([]byte("key"), []byte("value"))
	if err != nil {
		t.Fatalf("TestLevelDBReopen: Put returned unexpected error: %s", err)
	}
	err = ldb.Close()
	if err != nil {
		t.Fatalf("TestLevelDBReopen: Close unexpectedly failed: %s", err)
	}

	ldb, err = NewLevelDB(path, 8)
	if err != nil {
		t.Fatalf("TestLevelDBReopen: reopening unexpectedly failed: %s", err)
	}
	defer ldb.Close()
	value, err := ldb.Get([]byte("key"))
	if err != nil || string(value) != "value" {
		t.Fatalf("TestLevelDBReopen: expected the value to survive reopening, got %q, %v", value, err)
	}
}
