package database

import "bytes"

var bucketSeparator = []byte("/")

// Bucket is a prefix for database keys. Buckets may be nested, in which
// case their paths are joined with bucketSeparator.
type Bucket struct {
	path []byte
}

// MakeBucket creates a new Bucket with the given path.
func MakeBucket(path []byte) *Bucket {
	return &Bucket{path: path}
}

// Bucket returns the sub-bucket of b with the given name.
func (b *Bucket) Bucket(bucketBytes []byte) *Bucket {
	return MakeBucket(b.join(bucketBytes))
}

// Key returns the database key of suffix inside b.
func (b *Bucket) Key(suffix []byte) []byte {
	return b.join(suffix)
}

// Path returns the full path of b.
func (b *Bucket) Path() []byte {
	return b.path
}

func (b *Bucket) join(suffix []byte) []byte {
	if len(b.path) == 0 {
		return append([]byte{}, suffix...)
	}
	return bytes.Join([][]byte{b.path, suffix}, bucketSeparator)
}
