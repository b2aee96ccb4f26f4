package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"portcontracts/utils"
)

// DraftStore хранит черновики договоров между HTTP-запросами.
// Черновик хранится снимком и восстанавливается в сессию на время правки.
// Черновик, который не трогали дольше ttl, удаляется.
type DraftStore struct {
	mu     sync.Mutex
	drafts map[uuid.UUID]*draftEntry
	ttl    time.Duration
	now    func() time.Time
}

type draftEntry struct {
	snapshot  DraftContract
	owner     string
	expiresAt time.Time
}

// NewDraftStore создает новый экземпляр DraftStore
func NewDraftStore(ttl time.Duration) *DraftStore {
	return &DraftStore{
		drafts: make(map[uuid.UUID]*draftEntry),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Put сохраняет черновик сессии и возвращает его идентификатор
func (s *DraftStore) Put(session *ContractSession, owner string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	s.drafts[id] = &draftEntry{
		snapshot:  session.Snapshot(),
		owner:     owner,
		expiresAt: s.now().Add(s.ttl),
	}
	return id
}

// Get возвращает снимок черновика
func (s *DraftStore) Get(id uuid.UUID, owner string) (DraftContract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.entry(id, owner)
	if err != nil {
		return DraftContract{}, err
	}
	return entry.snapshot.clone(), nil
}

// Update восстанавливает сессию, применяет fn и сохраняет результат.
// Если fn вернула ошибку, черновик не меняется.
func (s *DraftStore) Update(id uuid.UUID, owner string, catalog *StatusCatalog, fn func(*ContractSession) error) (DraftContract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.entry(id, owner)
	if err != nil {
		return DraftContract{}, err
	}
	session := RestoreSession(entry.snapshot, catalog)
	if err := fn(session); err != nil {
		return DraftContract{}, err
	}
	entry.snapshot = session.Snapshot()
	entry.expiresAt = s.now().Add(s.ttl)
	return entry.snapshot.clone(), nil
}

// Delete удаляет черновик; отсутствие черновика не является ошибкой
func (s *DraftStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
}

func (s *DraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

// Cleanup удаляет просроченные черновики и возвращает их число
func (s *DraftStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, entry := range s.drafts {
		if now.After(entry.expiresAt) {
			delete(s.drafts, id)
			removed++
		}
	}
	return removed
}

// StartCleanup периодически удаляет просроченные черновики до отмены ctx
func (s *DraftStore) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Cleanup(); n > 0 {
					utils.LogDebug("удалено просроченных черновиков: %d", n)
				}
			}
		}
	}()
}

// entry вызывается под блокировкой
func (s *DraftStore) entry(id uuid.UUID, owner string) (*draftEntry, error) {
	entry, ok := s.drafts[id]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.drafts, id)
		return nil, fmt.Errorf("%w: черновик %s", ErrNotFound, id)
	}
	// чужой черновик для клиента не существует
	if entry.owner != owner {
		return nil, fmt.Errorf("%w: черновик %s", ErrNotFound, id)
	}
	return entry, nil
}
