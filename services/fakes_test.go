package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"portcontracts/models"
)

// memContractRepo хранилище договоров в памяти для тестов сервисов
type memContractRepo struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]models.Contract
	codes     map[string]uuid.UUID
}

func newMemContractRepo(contracts ...models.Contract) *memContractRepo {
	r := &memContractRepo{contracts: map[uuid.UUID]models.Contract{}, codes: map[string]uuid.UUID{}}
	for _, c := range contracts {
		r.contracts[c.ID] = c
		r.codes[c.Code] = c.ID
	}
	return r
}

func (r *memContractRepo) SaveContract(_ context.Context, clean *CleanContract) (*models.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New()
	if clean.ID != nil {
		if _, ok := r.contracts[*clean.ID]; !ok {
			return nil, fmt.Errorf("%w: contract %s", ErrNotFound, *clean.ID)
		}
		id = *clean.ID
	}
	if owner, ok := r.codes[clean.Code]; ok && owner != id {
		return nil, fmt.Errorf("%w: code %s", ErrConflict, clean.Code)
	}
	contract := ContractFromClean(clean, id)
	contract.UpdatedAt = time.Now()
	r.contracts[id] = contract
	r.codes[contract.Code] = id
	return &contract, nil
}

func (r *memContractRepo) GetContract(_ context.Context, id uuid.UUID) (*models.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[id]
	if !ok {
		return nil, fmt.Errorf("%w: contract %s", ErrNotFound, id)
	}
	return &c, nil
}

func (r *memContractRepo) ListContracts(_ context.Context, filter ContractFilter) ([]models.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Contract
	for _, c := range r.contracts {
		if filter.StatusCode != "" && c.StatusCode != filter.StatusCode {
			continue
		}
		if filter.CustomerID != 0 && c.CustomerID != filter.CustomerID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *memContractRepo) DeleteContract(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[id]
	if !ok {
		return fmt.Errorf("%w: contract %s", ErrNotFound, id)
	}
	delete(r.codes, c.Code)
	delete(r.contracts, id)
	return nil
}

func (r *memContractRepo) UpdateStatus(_ context.Context, id uuid.UUID, statusCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[id]
	if !ok {
		return fmt.Errorf("%w: contract %s", ErrNotFound, id)
	}
	c.StatusCode = statusCode
	r.contracts[id] = c
	return nil
}

func (r *memContractRepo) UpdateInvoiceStatus(_ context.Context, contractID, termID uuid.UUID, status models.InvoiceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[contractID]
	if !ok {
		return fmt.Errorf("%w: contract %s", ErrNotFound, contractID)
	}
	for i := range c.PaymentTerms {
		if c.PaymentTerms[i].ID == termID {
			c.PaymentTerms[i].InvoiceStatus = status
			return nil
		}
	}
	return fmt.Errorf("%w: term %s", ErrNotFound, termID)
}

func (r *memContractRepo) ForEachContractBatch(_ context.Context, size int, fn func([]models.Contract) error) error {
	r.mu.Lock()
	all := make([]models.Contract, 0, len(r.contracts))
	for _, c := range r.contracts {
		all = append(all, c)
	}
	r.mu.Unlock()

	for start := 0; start < len(all); start += size {
		end := start + size
		if end > len(all) {
			end = len(all)
		}
		if err := fn(all[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// memTriageStore хранилище разбора предупреждений в памяти
type memTriageStore struct {
	mu      sync.Mutex
	triages map[models.TriageKey]models.WarningTriage
}

func newMemTriageStore() *memTriageStore {
	return &memTriageStore{triages: map[models.TriageKey]models.WarningTriage{}}
}

func (s *memTriageStore) LoadWarningTriage(_ context.Context, key models.TriageKey) (models.WarningTriage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triages[key]
	return t, ok, nil
}

func (s *memTriageStore) SaveWarningTriage(_ context.Context, triage *models.WarningTriage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triages[triage.Key()] = *triage
	return nil
}

func (s *memTriageStore) ListWarningTriage(_ context.Context, contractIDs []uuid.UUID) ([]models.WarningTriage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := map[uuid.UUID]bool{}
	for _, id := range contractIDs {
		wanted[id] = true
	}
	var out []models.WarningTriage
	for _, t := range s.triages {
		if wanted[t.ContractID] {
			out = append(out, t)
		}
	}
	return out, nil
}

func testLookups() *StaticLookupProvider {
	p := NewStaticLookupProvider()
	p.Customers = []models.Customer{{ID: 1, Name: "Cảng Hải Phòng"}, {ID: 2, Name: "Cảng Đà Nẵng"}}
	p.Suppliers = []models.Supplier{{ID: 1, Name: "FPT"}}
	return p
}
