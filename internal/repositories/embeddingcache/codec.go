package embeddingcache

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// Cache value layout: 8-byte little-endian unix seconds (computed-at),
// followed by 4 bytes little-endian per float32 vector component.

const frameHeaderSize = 8

func cacheKey(subject int64) []byte {
	return []byte("emb:v1:" + strconv.FormatInt(subject, 10))
}

func encodeFrame(computedAt int64, vector []float32) []byte {
	buf := make([]byte, frameHeaderSize+4*len(vector))
	binary.LittleEndian.PutUint64(buf, uint64(computedAt))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[frameHeaderSize+4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeFrame(buf []byte) (int64, []float32, error) {
	if len(buf) < frameHeaderSize || (len(buf)-frameHeaderSize)%4 != 0 {
		return 0, nil, fmt.Errorf("malformed embedding frame of %d bytes", len(buf))
	}
	computedAt := int64(binary.LittleEndian.Uint64(buf))
	vector := make([]float32, (len(buf)-frameHeaderSize)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[frameHeaderSize+4*i:]))
	}
	return computedAt, vector, nil
}
