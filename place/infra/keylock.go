package infra

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// keyLocks serializa operações por chave usando um conjunto fixo de mutexes.
// Chaves diferentes podem cair no mesmo mutex; isso só custa contenção.
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (k *keyLocks) lock(key string) (unlock func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	mu := &k.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}
