package rules

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/centsible/centsible/internal/model"
)

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// mockGateways backs the applicator with in-memory entities for tests.
type mockGateways struct {
	tags       map[int64][]model.Tag
	categories map[int64]string
	accounts   map[int64]string
	setCalls   [][]int64
	failTags   bool
}

func newMockGateways() *mockGateways {
	return &mockGateways{
		categories: map[int64]string{1: "Groceries", 2: "Dining", 3: "Coffee"},
		accounts:   map[int64]string{1: "Checking", 2: "Savings"},
		tags:       map[int64][]model.Tag{},
	}
}

func (m *mockGateways) FindCategory(_ context.Context, id int64, _ int64) (*model.Category, error) {
	name, ok := m.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %d not found", id)
	}
	return &model.Category{ID: id, Name: name}, nil
}

func (m *mockGateways) FindAccount(_ context.Context, id int64, _ int64) (*model.Account, error) {
	name, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d not found", id)
	}
	return &model.Account{ID: id, Name: name}, nil
}

func (m *mockGateways) GetTransactionTags(_ context.Context, txnID int64, _ int64) ([]model.Tag, error) {
	if m.failTags {
		return nil, fmt.Errorf("tag lookup failed")
	}
	return m.tags[txnID], nil
}

func (m *mockGateways) SetTransactionTags(_ context.Context, txnID int64, _ int64, tagIDs []int64) error {
	if m.failTags {
		return fmt.Errorf("tag write failed")
	}
	m.setCalls = append(m.setCalls, tagIDs)
	updated := make([]model.Tag, 0, len(tagIDs))
	for _, id := range tagIDs {
		updated = append(updated, model.Tag{ID: id})
	}
	m.tags[txnID] = updated
	return nil
}

func newTestApplicator() (*Applicator, *mockGateways) {
	gw := newMockGateways()
	return NewApplicator(gw, gw, gw), gw
}
