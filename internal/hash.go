package internal

import "github.com/zeebo/xxh3"

// Bucket maps key to one of buckets using xxh3 and Jump consistent hashing.
// Adding a bucket moves only about 1/buckets of the keys.
//
// Jump Hash: https://arxiv.org/abs/1406.2294
func Bucket(key string, buckets int) int {
	if buckets <= 1 {
		return 0
	}
	return jump(xxh3.HashString(key), buckets)
}

func jump(h uint64, buckets int) int {
	b, j := int64(-1), int64(0)
	for j < int64(buckets) {
		b = j
		h = h*2862933555777941757 + 1
		j = int64(float64(b+1) * (float64(int64(1)<<31) / float64((h>>33)+1)))
	}
	return int(b)
}
