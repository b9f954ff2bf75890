package application

import (
	"context"
	"sync"

	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, domain.Notice) {}

// NoticeLog collects notices, typically for the lifetime of one request.
type NoticeLog struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (l *NoticeLog) Notify(_ context.Context, n domain.Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

// Drain returns the collected notices and resets the log.
func (l *NoticeLog) Drain() []domain.Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.notices
	l.notices = nil
	return out
}

func (l *NoticeLog) Last() (domain.Notice, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.notices) == 0 {
		return domain.Notice{}, false
	}
	return l.notices[len(l.notices)-1], true
}

// NotifierFunc adapts a function to domain.Notifier.
type NotifierFunc func(ctx context.Context, n domain.Notice)

func (f NotifierFunc) Notify(ctx context.Context, n domain.Notice) { f(ctx, n) }
