package approval

import (
	"fmt"
	"sync"
)

// Memo 记录本会话内被用户“永久放行”的命令。进程存活期间只增不减。
//
// Equality is structural over the whole argument vector: one differing
// argument makes a different entry. The memo is shared across concurrent
// proposals, so reads and inserts are guarded.
type Memo struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewMemo returns an empty memo.
func NewMemo() *Memo {
	return &Memo{keys: make(map[string]struct{})}
}

// IsApproved reports whether command was blanket-approved earlier.
func (m *Memo) IsApproved(command []string) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.keys[memoKey(command)]
	return ok
}

// Record adds command to the memo. Recording the same command twice is a
// no-op.
func (m *Memo) Record(command []string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.keys[memoKey(command)] = struct{}{}
	m.mu.Unlock()
}

// Len returns the number of distinct approved commands.
func (m *Memo) Len() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

// memoKey 用 %q 编码整个向量，保证参数边界无歧义。
func memoKey(command []string) string {
	return fmt.Sprintf("%q", command)
}
