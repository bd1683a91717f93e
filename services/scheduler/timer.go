package schedsvc

import (
	"sync"
	"time"

	"github.com/trezcool/maktaba/core"
)

// timerScheduler runs jobs on in-process timers. Jobs do not survive a
// restart; pending reminders are rebuilt from the ledger on boot.
type timerScheduler struct {
	mutex  sync.Mutex
	timers map[string]*time.Timer
}

var _ core.JobScheduler = (*timerScheduler)(nil)

func NewTimerScheduler() *timerScheduler {
	return &timerScheduler{timers: make(map[string]*time.Timer)}
}

func (s *timerScheduler) Schedule(tag string, at time.Time, job func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if t, ok := s.timers[tag]; ok {
		t.Stop()
	}

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	s.timers[tag] = time.AfterFunc(delay, func() {
		s.mutex.Lock()
		delete(s.timers, tag)
		s.mutex.Unlock()
		job()
	})
}

func (s *timerScheduler) Cancel(tag string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if t, ok := s.timers[tag]; ok {
		t.Stop()
		delete(s.timers, tag)
	}
}
