package session

import "sync/atomic"

// Lock は待ち合わせを行わない単一許可のロックです。
// 取得済みのときの TryAcquire は状態を変えずに false を返します。
type Lock struct {
	busy atomic.Bool
}

// TryAcquire はロックの取得を試みます。
func (l *Lock) TryAcquire() bool {
	return l.busy.CompareAndSwap(false, true)
}

// Release はロックを解放します。何度呼んでも問題ありません。
func (l *Lock) Release() {
	l.busy.Store(false)
}

// Busy は取得中かどうかを返します。
func (l *Lock) Busy() bool {
	return l.busy.Load()
}
