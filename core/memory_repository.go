package core

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryAccountRepository implements AccountRepository in process memory.
// Used for development (DATABASE_URL=memory) and tests.
type MemoryAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]*AccountRecord
	nextID   int64
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{accounts: make(map[string]*AccountRecord)}
}

var _ AccountRepository = (*MemoryAccountRepository)(nil)

func (m *MemoryAccountRepository) FindByUsername(_ context.Context, username string) (*AccountRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[username]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	cp.CompletedTasks = append([]string(nil), a.CompletedTasks...)
	return &cp, nil
}

func (m *MemoryAccountRepository) Create(_ context.Context, username, name, passwordHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[username]; ok {
		return 0, ErrAccountExists
	}
	m.nextID++
	m.accounts[username] = &AccountRecord{
		Account: Account{
			ID:             m.nextID,
			Username:       username,
			Name:           name,
			CompletedTasks: []string{},
			CreatedAt:      time.Now(),
		},
		PasswordHash: passwordHash,
	}
	return m.nextID, nil
}

func (m *MemoryAccountRepository) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts), nil
}

func (m *MemoryAccountRepository) List(_ context.Context) ([]Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		acc := a.Account
		acc.CompletedTasks = append([]string(nil), a.CompletedTasks...)
		items = append(items, acc)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *MemoryAccountRepository) UpdatePassword(_ context.Context, username, passwordHash string) error {
	return m.update(username, func(a *AccountRecord) { a.PasswordHash = passwordHash })
}

func (m *MemoryAccountRepository) UpdateName(_ context.Context, username, name string) error {
	return m.update(username, func(a *AccountRecord) { a.Name = name })
}

func (m *MemoryAccountRepository) SetTasks(_ context.Context, username string, tasks []string) error {
	return m.update(username, func(a *AccountRecord) { a.CompletedTasks = append([]string{}, tasks...) })
}

func (m *MemoryAccountRepository) AppendTask(_ context.Context, username, task string) error {
	return m.update(username, func(a *AccountRecord) { a.CompletedTasks = append(a.CompletedTasks, task) })
}

func (m *MemoryAccountRepository) RemoveTask(_ context.Context, username, task string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[username]
	if !ok {
		return ErrAccountNotFound
	}
	tasks, removed := removeLast(a.CompletedTasks, task)
	if !removed {
		return ErrTaskNotFound
	}
	a.CompletedTasks = tasks
	return nil
}

func (m *MemoryAccountRepository) SetFootprint(_ context.Context, username string, footprint float64) error {
	return m.update(username, func(a *AccountRecord) { a.Footprint = &footprint })
}

func (m *MemoryAccountRepository) Delete(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[username]; !ok {
		return ErrAccountNotFound
	}
	delete(m.accounts, username)
	return nil
}

func (m *MemoryAccountRepository) update(username string, fn func(*AccountRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[username]
	if !ok {
		return ErrAccountNotFound
	}
	fn(a)
	return nil
}

// removeLast drops the most recent occurrence of task.
func removeLast(tasks []string, task string) ([]string, bool) {
	for i := len(tasks) - 1; i >= 0; i-- {
		if tasks[i] == task {
			out := make([]string, 0, len(tasks)-1)
			out = append(out, tasks[:i]...)
			return append(out, tasks[i+1:]...), true
		}
	}
	return tasks, false
}
