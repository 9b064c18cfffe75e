package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"gitlab.com/tozd/go/errors"
)

var ErrNotFound = errors.Base("file not found or expired")

// Store keeps generated workbooks for a limited time.
type Store interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
}

// ContentID is the hex sha256 of data. Storing the same bytes twice yields the same id.
func ContentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func validID(id string) bool {
	if len(id) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
