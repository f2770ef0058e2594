package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"eventbot/internal/config"
	"eventbot/internal/database"

	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mu sync.Mutex

	nextID     int64
	orders     map[int64]*database.Order
	performers map[string]*database.Performer
	tickets    map[int64]*database.SupportTicket

	// занятые тройки "имя|дата|время"
	busy map[string]bool

	saveOrderErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		orders:     make(map[int64]*database.Order),
		performers: make(map[string]*database.Performer),
		tickets:    make(map[int64]*database.SupportTicket),
		busy:       make(map[string]bool),
	}
}

func (m *mockStore) SaveOrder(_ context.Context, o *database.Order) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveOrderErr != nil {
		return 0, m.saveOrderErr
	}
	m.nextID++
	saved := *o
	saved.ID = m.nextID
	saved.CreatedAt = time.Now()
	m.orders[saved.ID] = &saved
	return saved.ID, nil
}

func (m *mockStore) GetOrder(_ context.Context, id int64) (*database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, database.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockStore) UpdateOrderStatus(_ context.Context, id int64, status database.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return database.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (m *mockStore) UpdateOrderTime(_ context.Context, id int64, newTime string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return database.ErrOrderNotFound
	}
	o.Time = newTime
	return nil
}

func (m *mockStore) GetPerformer(_ context.Context, name string) (*database.Performer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.performers[name]
	if !ok {
		return nil, database.ErrPerformerNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockStore) IsPerformerAvailable(_ context.Context, name, date, timeSlot string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.busy[name+"|"+date+"|"+timeSlot], nil
}

func (m *mockStore) CreateSupportTicket(_ context.Context, userID int64, message, userName, username string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.tickets[m.nextID] = &database.SupportTicket{
		ID:       m.nextID,
		UserID:   userID,
		UserName: userName,
		Username: username,
		Message:  message,
	}
	return m.nextID, nil
}

func (m *mockStore) GetSupportTicket(_ context.Context, id int64) (*database.SupportTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tk, ok := m.tickets[id]
	if !ok {
		return nil, database.ErrTicketNotFound
	}
	cp := *tk
	return &cp, nil
}

func (m *mockStore) SetTicketPhoto(_ context.Context, id int64, photoPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tk, ok := m.tickets[id]
	if !ok {
		return database.ErrTicketNotFound
	}
	tk.PhotoPath = photoPath
	return nil
}

type sentMessage struct {
	chatID    int64
	text      string
	keyboard  [][]Button
	photoPath string
}

type mockMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *mockMessenger) SendMessage(_ context.Context, chatID int64, message string, keyboard [][]Button) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: message, keyboard: keyboard})
	return m.err
}

func (m *mockMessenger) SendPhoto(_ context.Context, chatID int64, photoPath, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: caption, photoPath: photoPath})
	return m.err
}

func (m *mockMessenger) messagesTo(chatID int64) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMessage
	for _, s := range m.sent {
		if s.chatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

type mockCalendar struct {
	mu     sync.Mutex
	synced []int64
}

func (m *mockCalendar) SyncOrder(_ context.Context, orderID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synced = append(m.synced, orderID)
}

func (m *mockCalendar) syncedOrders() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.synced...)
}

type notifyCall struct {
	recipient int64
	message   string
	channels  []string
}

type mockNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	ok    bool
}

func (m *mockNotifier) Send(_ context.Context, recipient int64, message string, channels []string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, notifyCall{recipient: recipient, message: message, channels: channels})
	return m.ok
}

type mockSaver struct {
	path string
	err  error
}

func (m *mockSaver) SavePhoto(_ context.Context, fileID string, ticketID int64) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.path != "" {
		return m.path, nil
	}
	return fmt.Sprintf("support/%d_%s.jpg", ticketID, fileID), nil
}

const testCatalogYAML = `performers:
  - "Анна"
  - "Борис"
program_categories:
  - "Тесла шоу"
  - "Аниматоры"
program_subcategories:
  "Аниматоры":
    - "Пираты"
    - "Супергерои"
`

func testCatalog(t *testing.T) *config.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalogYAML), 0o644))

	c := &config.Catalog{}
	require.NoError(t, c.Update(path))
	return c
}

// фиксированное "сейчас" тестов: 10.06.2025 12:00
func testClock() time.Time {
	return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
}
