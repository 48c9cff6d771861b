package lockorder

import "sync"

type Pair struct {
	a sync.Mutex
	b sync.Mutex
}

func (p *Pair) First() {
	p.a.Lock() // want `Potential deadlock`
	p.b.Lock()
	p.b.Unlock()
	p.a.Unlock()
}

func (p *Pair) Second() {
	p.b.Lock()
	p.a.Lock()
	p.a.Unlock()
	p.b.Unlock()
}
