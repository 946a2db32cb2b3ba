package cache

import "sync"

// lru is an in-memory LRU of snapshots, bounded by entry count.
type lru struct {
	mu      sync.Mutex
	items   map[string]*listItem
	head    *listItem // most recently used
	tail    *listItem // least recently used
	maxSize int
}

type listItem struct {
	key  string
	snap *Snapshot
	prev *listItem
	next *listItem
}

func newLRU(maxSize int) *lru {
	return &lru{items: make(map[string]*listItem), maxSize: maxSize}
}

func (l *lru) get(key string) (*Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.items[key]
	if !ok {
		return nil, false
	}
	l.unlink(item)
	l.pushFront(item)
	return item.snap, true
}

func (l *lru) set(key string, snap *Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if item, ok := l.items[key]; ok {
		item.snap = snap
		l.unlink(item)
		l.pushFront(item)
		return
	}

	item := &listItem{key: key, snap: snap}
	l.items[key] = item
	l.pushFront(item)

	for l.maxSize > 0 && len(l.items) > l.maxSize {
		back := l.tail
		l.unlink(back)
		delete(l.items, back.key)
	}
}

func (l *lru) remove(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if item, ok := l.items[key]; ok {
		l.unlink(item)
		delete(l.items, key)
	}
}

func (l *lru) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = make(map[string]*listItem)
	l.head, l.tail = nil, nil
}

func (l *lru) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *lru) unlink(item *listItem) {
	if item.prev != nil {
		item.prev.next = item.next
	} else {
		l.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		l.tail = item.prev
	}
	item.prev, item.next = nil, nil
}

func (l *lru) pushFront(item *listItem) {
	item.next = l.head
	if l.head != nil {
		l.head.prev = item
	}
	l.head = item
	if l.tail == nil {
		l.tail = item
	}
}
