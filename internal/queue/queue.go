package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueFull 内存队列已满
var ErrQueueFull = errors.New("command queue full")

// Queue 命令队列：多生产者入队，单消费者非阻塞出队。
// 队列为空是常态，TryDequeue 返回 ok=false 而不是错误。
type Queue interface {
	Enqueue(ctx context.Context, cmd Command) error
	TryDequeue(ctx context.Context) (cmd Command, ok bool, err error)
	// Notify 有新命令时可读；不支持主动通知的实现返回 nil，由消费方轮询
	Notify() <-chan struct{}
}

// Memory 进程内 FIFO 队列
type Memory struct {
	mu       sync.Mutex
	items    []Command
	capacity int
	notify   chan struct{}
}

// NewMemory capacity<=0 表示不限长度
func NewMemory(capacity int) *Memory {
	return &Memory{capacity: capacity, notify: make(chan struct{}, 1)}
}

func (q *Memory) Enqueue(_ context.Context, cmd Command) error {
	q.mu.Lock()
	if q.capacity > 0 && len(q.items) >= q.capacity {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.items = append(q.items, cmd)
	q.mu.Unlock()
	q.signal()
	return nil
}

func (q *Memory) TryDequeue(_ context.Context) (Command, bool, error) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return Command{}, false, nil
	}
	cmd := q.items[0]
	q.items[0] = Command{}
	q.items = q.items[1:]
	remaining := len(q.items)
	q.mu.Unlock()
	// 仍有积压时补发通知，保证消费方被再次唤醒
	if remaining > 0 {
		q.signal()
	}
	return cmd, true, nil
}

func (q *Memory) Notify() <-chan struct{} { return q.notify }

// Len 当前积压数量
func (q *Memory) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Memory) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Cap 容量，0 表示不限
func (q *Memory) Cap() int { return q.capacity }
