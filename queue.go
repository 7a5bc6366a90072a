package fairlock

// waitQueue is an intrusive FIFO of waiter records. All methods require the
// owning lock's mutex.
type waitQueue struct {
	head *waiter
	tail *waiter
}

func (q *waitQueue) push(w *waiter) {
	w.next = nil
	if q.tail == nil {
		q.head = w
	} else {
		q.tail.next = w
	}
	q.tail = w
}

// pop unlinks the head and returns it. The popped record keeps its next
// pointer so the caller can inspect its successor.
func (q *waitQueue) pop() *waiter {
	w := q.head
	if w == nil {
		return nil
	}
	q.head = w.next
	if q.head == nil {
		q.tail = nil
	}
	return w
}

func (q *waitQueue) empty() bool {
	return q.head == nil
}

// count walks the queue and returns its length split by role.
func (q *waitQueue) count() (readers, writers int) {
	for w := q.head; w != nil; w = w.next {
		if w.role == roleWriter {
			writers++
		} else {
			readers++
		}
	}
	return readers, writers
}
