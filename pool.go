package sparse

import (
	"sync"
)

var (
	floatPoolLock sync.Mutex
	floatPool     = make(map[int]*sync.Pool)
)

func poolOf(n int) *sync.Pool {
	floatPoolLock.Lock()
	defer floatPoolLock.Unlock()
	p, ok := floatPool[n]
	if !ok {
		p = &sync.Pool{
			New: func() interface{} { return make([]float32, n) },
		}
		floatPool[n] = p
	}
	return p
}

// borrowFloats borrows a slice of n float32s. The contents are undefined.
func borrowFloats(n int) []float32 { return poolOf(n).Get().([]float32) }

// returnFloats returns a slice borrowed with borrowFloats.
func returnFloats(a []float32) { poolOf(len(a)).Put(a) }

// snapshot copies a grid into a borrowed slice.
func snapshot(data []float32) []float32 {
	retVal := borrowFloats(len(data))
	copy(retVal, data)
	return retVal
}
