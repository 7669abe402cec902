package tile

import "sync"

// Pixel buffers are recycled per length; tiles of one image all share a size,
// so a handful of pools serve everything.
var buffers sync.Map // int -> *sync.Pool

func bufferPool(n int) *sync.Pool {
	if p, ok := buffers.Load(n); ok {
		return p.(*sync.Pool)
	}
	p, _ := buffers.LoadOrStore(n, &sync.Pool{
		New: func() any {
			b := make([]byte, n)
			return &b
		},
	})
	return p.(*sync.Pool)
}

func getBuffer(n int) []byte {
	if n == 0 {
		return nil
	}
	return *bufferPool(n).Get().(*[]byte)
}

func putBuffer(b []byte) {
	if len(b) == 0 {
		return
	}
	clear(b)
	bufferPool(len(b)).Put(&b)
}
