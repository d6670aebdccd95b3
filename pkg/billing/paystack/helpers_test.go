package paystack

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mihaimyh/gopremium/pkg/billing"
	"github.com/mihaimyh/gopremium/pkg/premium"
	"github.com/mihaimyh/gopremium/storage/memory"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type logEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) log(level, msg string, fields []premium.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: m})
}

func (l *recordingLogger) Debug(msg string, fields ...premium.Field) { l.log("debug", msg, fields) }
func (l *recordingLogger) Info(msg string, fields ...premium.Field)  { l.log("info", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields ...premium.Field)  { l.log("warn", msg, fields) }
func (l *recordingLogger) Error(msg string, fields ...premium.Field) { l.log("error", msg, fields) }

func (l *recordingLogger) find(level, msg string) (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

// countingStorage wraps a store and counts writes
type countingStorage struct {
	premium.Storage

	mu       sync.Mutex
	writes   int
	applyErr error
	block    bool
}

func (s *countingStorage) ApplyPayment(ctx context.Context, update *premium.PaymentUpdate) error {
	s.mu.Lock()
	s.writes++
	applyErr, block := s.applyErr, s.block
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if applyErr != nil {
		return applyErr
	}
	return s.Storage.ApplyPayment(ctx, update)
}

func (s *countingStorage) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

var errStoreDown = errors.New("store down")

func newTestStore(userIDs ...string) (*memory.Storage, *countingStorage) {
	store := memory.New()
	store.SetClock(func() time.Time { return fixedNow })
	for _, id := range userIDs {
		store.Seed(&premium.Entitlement{UserID: id})
	}
	return store, &countingStorage{Storage: store}
}

func newTestConfig(storage premium.Storage, logger premium.Logger) Config {
	return Config{Config: billing.Config{
		Storage: storage,
		Secret:  billing.StaticSecret(testSecret),
		Logger:  logger,
		Now:     func() time.Time { return fixedNow },
	}}
}
