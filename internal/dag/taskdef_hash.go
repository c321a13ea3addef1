package dag

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"

	"loggerbuild/internal/core"
)

// fieldWriter length-prefixes every field so adjacent fields cannot be
// confused ("ab","c" vs "a","bc").
type fieldWriter struct {
	h hash.Hash
}

func (w fieldWriter) write(data []byte) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(data)))
	w.h.Write(length[:])
	w.h.Write(data)
}

func (w fieldWriter) writeString(s string) { w.write([]byte(s)) }

func (w fieldWriter) writeInt(n int) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	w.write(b[:])
}

func (w fieldWriter) sum() string { return hex.EncodeToString(w.h.Sum(nil)) }

// computeTaskDefHash hashes the declarative fields of a task: name, sorted
// deps, action, run and env sorted by key.
func computeTaskDefHash(t core.Task) TaskDefHash {
	w := fieldWriter{h: sha256.New()}

	w.writeString(t.Name)

	deps := append([]string(nil), t.Deps...)
	sort.Strings(deps)
	w.writeInt(len(deps))
	for _, d := range deps {
		w.writeString(d)
	}

	w.writeString(t.Action)
	w.writeString(t.Run)

	keys := make([]string, 0, len(t.Env))
	for k := range t.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	w.writeInt(len(keys))
	for _, k := range keys {
		w.writeString(k)
		w.writeString(t.Env[k])
	}

	return TaskDefHash(w.sum())
}
