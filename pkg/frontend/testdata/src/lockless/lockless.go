package lockless

import "sync"

var mu sync.Mutex

//locksight:lockless
func Fast() {
	mu.Lock() // want `annotated as lockless`
	mu.Unlock()
}

func Normal() {
	mu.Lock()
	mu.Unlock()
}
