package service

import "sync"

// studentLocks 按学生 ID 加锁，保证同一学生的路线变更串行执行
//
// 不同学生之间互不阻塞；无人持有的锁会被回收。
type studentLocks struct {
	mu    sync.Mutex
	locks map[string]*studentLock
}

type studentLock struct {
	mu   sync.Mutex
	refs int
}

func newStudentLocks() *studentLocks {
	return &studentLocks{locks: make(map[string]*studentLock)}
}

// Lock 获取学生锁，返回的函数用于释放
func (l *studentLocks) Lock(studentID string) (unlock func()) {
	l.mu.Lock()
	lk, ok := l.locks[studentID]
	if !ok {
		lk = &studentLock{}
		l.locks[studentID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, studentID)
		}
		l.mu.Unlock()
	}
}

func (l *studentLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
