package discovery

// dirItem is one queued directory.
type dirItem struct {
	local       string
	packagePath string
}

// dirQueue is a ring buffer deque of directories.
type dirQueue struct {
	buf  []dirItem
	head int
	n    int
}

func (q *dirQueue) Len() int { return q.n }

func (q *dirQueue) grow() {
	if q.n < len(q.buf) {
		return
	}
	next := make([]dirItem, max(16, len(q.buf)*2))
	for i := 0; i < q.n; i++ {
		next[i] = q.At(i)
	}
	q.buf = next
	q.head = 0
}

// At returns the i-th item from the front.
func (q *dirQueue) At(i int) dirItem {
	return q.buf[(q.head+i)%len(q.buf)]
}

func (q *dirQueue) set(i int, item dirItem) {
	q.buf[(q.head+i)%len(q.buf)] = item
}

func (q *dirQueue) PushBack(item dirItem) {
	q.grow()
	q.buf[(q.head+q.n)%len(q.buf)] = item
	q.n++
}

func (q *dirQueue) PushFront(item dirItem) {
	q.grow()
	q.head = (q.head - 1 + len(q.buf)) % len(q.buf)
	q.buf[q.head] = item
	q.n++
}

func (q *dirQueue) PopFront() (dirItem, bool) {
	if q.n == 0 {
		return dirItem{}, false
	}
	item := q.buf[q.head]
	q.buf[q.head] = dirItem{}
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return item, true
}

// PartitionFront stably moves items matching keep to the front, examining
// at most window items. It returns how many items matched.
func (q *dirQueue) PartitionFront(window int, keep func(dirItem) bool) int {
	limit := min(window, q.n)
	matched := make([]dirItem, 0)
	rest := make([]dirItem, 0, limit)
	for i := 0; i < limit; i++ {
		if item := q.At(i); keep(item) {
			matched = append(matched, item)
		} else {
			rest = append(rest, item)
		}
	}
	for i, item := range matched {
		q.set(i, item)
	}
	for i, item := range rest {
		q.set(len(matched)+i, item)
	}
	return len(matched)
}

// Clear drops every queued item.
func (q *dirQueue) Clear() {
	q.buf = nil
	q.head = 0
	q.n = 0
}
