package database

import (
	"bytes"
	"testing"
)

func TestBucketKeys(t *testing.T) {
	tests := []struct {
		bucket   *Bucket
		suffix   []byte
		expected []byte
	}{
		{MakeBucket(nil), []byte("key"), []byte("key")},
		{MakeBucket([]byte("blocks")), []byte("key"), []byte("blocks/key")},
		{MakeBucket([]byte("a")).Bucket([]byte("b")), []byte("key"), []byte("a/b/key")},
	}
	for i, test := range tests {
		key := test.bucket.Key(test.suffix)
		if !bytes.Equal(key, test.expected) {
			t.Errorf("TestBucketKeys: test %d: expected %q, got %q", i, test.expected, key)
		}
	}
}
