package coldstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/aptos-labs/indexer-grpc-data-service/internal/xerrors"
)

// DiskStore implements Store against a local directory, for single-node
// deployments and local development.
type DiskStore struct {
	root string
}

// NewDiskStore builds a DiskStore rooted at dir.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{root: dir}
}

func (d *DiskStore) GetMetadata(ctx context.Context) (*Metadata, error) {
	body, err := os.ReadFile(filepath.Join(d.root, metadataKey))
	if err != nil {
		return nil, xerrors.Wrapf(err, "read metadata file")
	}
	var md Metadata
	if err := json.Unmarshal(body, &md); err != nil {
		return nil, xerrors.Wrapf(err, "decode metadata")
	}
	return &md, nil
}

func (d *DiskStore) GetBlock(ctx context.Context, startVersion uint64) ([]byte, error) {
	body, err := os.ReadFile(filepath.Join(d.root, blockKey(startVersion)))
	if err != nil {
		return nil, xerrors.Wrapf(err, "read block file")
	}
	return body, nil
}
