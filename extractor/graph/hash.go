package graph

import (
	"github.com/minio/highwayhash"
)

var key = []byte("stubdoc0identity0stubdoc0identity"[:32])

// Hash derives the content identity of a source unit
func Hash(data []byte) (uint64, error) {
	hash, err := highwayhash.New64(key)
	if err != nil {
		return 0, err
	}
	_, err = hash.Write(data)
	return hash.Sum64(), err
}
