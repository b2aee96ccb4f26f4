package controllers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"portcontracts/models"
	"portcontracts/services"
)

type memContractRepo struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]models.Contract
	getErr    error
}

func newMemContractRepo() *memContractRepo {
	return &memContractRepo{contracts: map[uuid.UUID]models.Contract{}}
}

func (r *memContractRepo) SaveContract(_ context.Context, clean *services.CleanContract) (*models.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New()
	if clean.ID != nil {
		if _, ok := r.contracts[*clean.ID]; !ok {
			return nil, fmt.Errorf("%w: contract %s", services.ErrNotFound, *clean.ID)
		}
		id = *clean.ID
	}
	for otherID, c := range r.contracts {
		if c.Code == clean.Code && otherID != id {
			return nil, fmt.Errorf("%w: code %s", services.ErrConflict, clean.Code)
		}
	}
	contract := services.ContractFromClean(clean, id)
	contract.UpdatedAt = time.Now()
	r.contracts[id] = contract
	return &contract, nil
}

func (r *memContractRepo) GetContract(_ context.Context, id uuid.UUID) (*models.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	c, ok := r.contracts[id]
	if !ok {
		return nil, fmt.Errorf("%w: contract %s", services.ErrNotFound, id)
	}
	return &c, nil
}

func (r *memContractRepo) ListContracts(_ context.Context, filter services.ContractFilter) ([]models.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Contract
	for _, c := range r.contracts {
		if filter.StatusCode != "" && c.StatusCode != filter.StatusCode {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *memContractRepo) DeleteContract(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contracts[id]; !ok {
		return fmt.Errorf("%w: contract %s", services.ErrNotFound, id)
	}
	delete(r.contracts, id)
	return nil
}

func (r *memContractRepo) UpdateStatus(_ context.Context, id uuid.UUID, statusCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return r.getErr
	}
	c, ok := r.contracts[id]
	if !ok {
		return fmt.Errorf("%w: contract %s", services.ErrNotFound, id)
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
		return fmt.Errorf("%w: contract %s", services.ErrNotFound, contractID)
	}
	for i := range c.PaymentTerms {
		if c.PaymentTerms[i].ID == termID {
			c.PaymentTerms[i].InvoiceStatus = status
			return nil
		}
	}
	return fmt.Errorf("%w: term %s", services.ErrNotFound, termID)
}

func (r *memContractRepo) ForEachContractBatch(_ context.Context, _ int, fn func([]models.Contract) error) error {
	r.mu.Lock()
	all := make([]models.Contract, 0, len(r.contracts))
	for _, c := range r.contracts {
		all = append(all, c)
	}
	r.mu.Unlock()
	if len(all) == 0 {
		return nil
	}
	return fn(all)
}

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
	var out []models.WarningTriage
	for _, t := range s.triages {
		for _, id := range contractIDs {
			if t.ContractID == id {
				out = append(out, t)
			}
		}
	}
	return out, nil
}
