package dataset

import (
	"bytes"
	"encoding/gob"
	stderrors "errors"
	"sync"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"

	"github.com/matzehuels/watershed/pkg/hydro"
)

const artifactMagic = "WSDA1\n"

var errStaleArtifact = stderrors.New("stale dataset artifact")

// artifact is the serialized form of any dataset kind. Only the slice
// matching Ref.Kind is populated.
type artifact struct {
	Ref        Ref
	Catchments []hydro.UnitCatchment
	Reaches    []hydro.Reach
	Boundaries []Boundary
}

// fingerprint identifies the source version an artifact was built from.
func fingerprint(ref Ref, info Info) [32]byte {
	return blake3.Sum256([]byte(ref.String() + "\x00" + info.Version))
}

var (
	encoderOnce sync.Once
	encoder     *zstd.Encoder
	decoderOnce sync.Once
	decoder     *zstd.Decoder
)

func zstdEncoder() *zstd.Encoder {
	encoderOnce.Do(func() {
		encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return encoder
}

func zstdDecoder() *zstd.Decoder {
	decoderOnce.Do(func() {
		decoder, _ = zstd.NewReader(nil)
	})
	return decoder
}

func encodeArtifact(fp [32]byte, a artifact) ([]byte, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(a); err != nil {
		return nil, err
	}
	header := make([]byte, 0, len(artifactMagic)+len(fp))
	header = append(header, artifactMagic...)
	header = append(header, fp[:]...)
	return zstdEncoder().EncodeAll(payload.Bytes(), header), nil
}

func decodeArtifact(data []byte, fp [32]byte) (artifact, error) {
	var a artifact
	n := len(artifactMagic) + len(fp)
	if len(data) < n || string(data[:len(artifactMagic)]) != artifactMagic {
		return a, stderrors.New("not a dataset artifact")
	}
	if !bytes.Equal(data[len(artifactMagic):n], fp[:]) {
		return a, errStaleArtifact
	}
	raw, err := zstdDecoder().DecodeAll(data[n:], nil)
	if err != nil {
		return a, err
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&a); err != nil {
		return a, err
	}
	return a, nil
}
