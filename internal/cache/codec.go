package cache

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/phobologic/annotate/internal/errs"
	"github.com/phobologic/annotate/internal/model"
)

// formatVersion is bumped whenever the encoded layout of model.FileIndex
// changes; entries with another version are rejected.
const formatVersion = 1

type envelope struct {
	Version int              `msgpack:"v"`
	Index   *model.FileIndex `msgpack:"i"`
}

// Encode serializes a file index.
func Encode(idx *model.FileIndex) ([]byte, error) {
	data, err := msgpack.Marshal(envelope{Version: formatVersion, Index: idx})
	if err != nil {
		return nil, errs.Wrap(err, errs.Cache, "encoding index for %s", idx.Path)
	}
	return data, nil
}

// Decode restores a file index written by Encode.
func Decode(data []byte) (*model.FileIndex, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, errs.Wrap(err, errs.Cache, "decoding index")
	}
	if env.Version != formatVersion || env.Index == nil {
		return nil, errs.New(errs.Cache, "unsupported index format version %d", env.Version)
	}

	idx := env.Index
	if idx.Uses == nil {
		idx.Uses = make(map[string]string)
	}
	if idx.Tags == nil {
		idx.Tags = make(map[string][]model.TagSpec)
	}
	return idx, nil
}
