package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"eventbot/internal/logger"

	sq "github.com/Masterminds/squirrel"
	"github.com/allegro/bigcache/v3"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TTL кэшей чтения. Запись всегда синхронно выбивает соответствующий
// ключ, чтобы после подтверждения заказа никто не увидел старый статус.
const (
	orderCacheTTL        = 30 * time.Minute
	performerCacheTTL    = time.Hour
	availabilityCacheTTL = 5 * time.Minute
)

// Store - хранилище заказов, исполнителей и обращений в поддержку
// поверх PostgreSQL с кэшированием чтений.
type Store struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType

	orders       *bigcache.BigCache
	performers   *bigcache.BigCache
	availability *bigcache.BigCache
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{
		pool: pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}

	for _, c := range []struct {
		dst **bigcache.BigCache
		ttl time.Duration
	}{
		{&s.orders, orderCacheTTL},
		{&s.performers, performerCacheTTL},
		{&s.availability, availabilityCacheTTL},
	} {
		cache, err := bigcache.NewBigCache(bigcache.DefaultConfig(c.ttl))
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init cache: %w", err)
		}
		*c.dst = cache
	}

	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// SaveOrder сохраняет новый заказ и возвращает его идентификатор.
func (s *Store) SaveOrder(ctx context.Context, o *Order) (int64, error) {
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	query, args, err := s.sb.
		Insert("orders").
		Columns("user_id", "user_name", "username", "order_date", "order_time",
			"order_location", "order_performers", "order_program",
			"order_amount", "order_details", "status", "created_at").
		Values(o.UserID, o.UserName, o.Username, o.Date, o.Time,
			o.Location, o.Performers, o.Program,
			o.Amount, o.Details, o.Status, o.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert order: %w", err)
	}

	var id int64
	if err = s.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	// новый заказ меняет занятость исполнителя
	s.invalidate(s.availability, availabilityKey(o.Performers, o.Date, o.Time))

	return id, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*Order, error) {
	cacheKey := strconv.FormatInt(id, 10)
	if b, err := s.orders.Get(cacheKey); err == nil {
		var o Order
		if err = json.Unmarshal(b, &o); err == nil {
			return &o, nil
		}
	}

	query, args, err := s.sb.
		Select("id", "user_id", "COALESCE(user_name, '')", "COALESCE(username, '')",
			"order_date", "order_time", "COALESCE(order_location, '')",
			"COALESCE(order_performers, '')", "COALESCE(order_program, '')",
			"COALESCE(order_amount, '')", "COALESCE(order_details, '')",
			"status", "created_at", "COALESCE(calendar_event_id, '')").
		From("orders").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select order: %w", err)
	}

	var o Order
	err = s.pool.QueryRow(ctx, query, args...).Scan(
		&o.ID, &o.UserID, &o.UserName, &o.Username,
		&o.Date, &o.Time, &o.Location,
		&o.Performers, &o.Program,
		&o.Amount, &o.Details,
		&o.Status, &o.CreatedAt, &o.CalendarEventID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}

	s.cacheSet(s.orders, cacheKey, &o)
	return &o, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) error {
	return s.updateOrder(ctx, id, sq.Eq{"status": status})
}

// UpdateOrderTime меняет время заказа при переносе исполнителем.
func (s *Store) UpdateOrderTime(ctx context.Context, id int64, newTime string) error {
	return s.updateOrder(ctx, id, sq.Eq{"order_time": newTime})
}

func (s *Store) SetCalendarEventID(ctx context.Context, id int64, eventID string) error {
	return s.updateOrder(ctx, id, sq.Eq{"calendar_event_id": eventID})
}

func (s *Store) updateOrder(ctx context.Context, id int64, set map[string]interface{}) error {
	q := s.sb.Update("orders").Where(sq.Eq{"id": id})
	for column, value := range set {
		q = q.Set(column, value)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update order: %w", err)
	}

	if _, err = s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	// выбиваем кэш до возврата, иначе читатели увидят старый заказ
	s.invalidate(s.orders, strconv.FormatInt(id, 10))
	s.availability.Reset()

	return nil
}

func (s *Store) GetPerformer(ctx context.Context, name string) (*Performer, error) {
	if b, err := s.performers.Get(name); err == nil {
		var p Performer
		if err = json.Unmarshal(b, &p); err == nil {
			return &p, nil
		}
	}

	p, err := s.selectPerformer(ctx, sq.Eq{"performer_name": name})
	if err != nil {
		return nil, err
	}

	s.cacheSet(s.performers, name, p)
	return p, nil
}

func (s *Store) GetPerformerByTelegramID(ctx context.Context, userID int64) (*Performer, error) {
	return s.selectPerformer(ctx, sq.Eq{"telegram_user_id": userID})
}

func (s *Store) selectPerformer(ctx context.Context, where sq.Eq) (*Performer, error) {
	query, args, err := s.sb.
		Select("id", "performer_name", "telegram_user_id", "COALESCE(google_tokens, '')").
		From("performers_telegram").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select performer: %w", err)
	}

	var p Performer
	err = s.pool.QueryRow(ctx, query, args...).Scan(&p.ID, &p.Name, &p.TelegramUserID, &p.GoogleTokens)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPerformerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select performer: %w", err)
	}

	return &p, nil
}

// ClearPerformerTokens сбрасывает учетные данные календаря, чтобы
// последующие синхронизации пропускались, а не повторялись бесконечно.
func (s *Store) ClearPerformerTokens(ctx context.Context, performerName string) error {
	query, args, err := s.sb.
		Update("performers_telegram").
		Set("google_tokens", nil).
		Where(sq.Eq{"performer_name": performerName}).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear tokens: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPerformerNotFound
	}
	if err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}

	s.invalidate(s.performers, performerName)
	return nil
}

// IsPerformerAvailable отвечает, свободен ли исполнитель в дату и слот:
// занятым его делает только заказ в статусе pending или confirmed.
func (s *Store) IsPerformerAvailable(ctx context.Context, name, date, timeSlot string) (bool, error) {
	cacheKey := availabilityKey(name, date, timeSlot)
	if b, err := s.availability.Get(cacheKey); err == nil {
		return string(b) == "1", nil
	}

	query, args, err := s.sb.
		Select("COUNT(*)").
		From("orders").
		Where(sq.Eq{
			"order_performers": name,
			"order_date":       date,
			"order_time":       timeSlot,
			"status":           ActiveStatuses,
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build availability query: %w", err)
	}

	var count int
	if err = s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("availability query: %w", err)
	}

	available := count == 0

	value := "0"
	if available {
		value = "1"
	}
	if err = s.availability.Set(cacheKey, []byte(value)); err != nil {
		logger.Warning("Не удалось закэшировать занятость:", err)
	}

	return available, nil
}

// CreateSupportTicket сохраняет обращение. Если имя не передано, но
// пишет известный исполнитель, подставляем его имя из профиля.
func (s *Store) CreateSupportTicket(ctx context.Context, userID int64, message, userName, username string) (int64, error) {
	if userName == "" {
		if p, err := s.GetPerformerByTelegramID(ctx, userID); err == nil {
			userName = p.Name
		}
	}
	if userName == "" {
		userName = fmt.Sprintf("User_%d", userID)
	}
	if username == "" {
		username = fmt.Sprintf("user_%d", userID)
	}

	query, args, err := s.sb.
		Insert("support_tickets").
		Columns("user_id", "message", "user_name", "username", "created_at").
		Values(userID, message, userName, username, time.Now().UTC()).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert ticket: %w", err)
	}

	var id int64
	if err = s.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert ticket: %w", err)
	}

	return id, nil
}

func (s *Store) GetSupportTicket(ctx context.Context, id int64) (*SupportTicket, error) {
	query, args, err := s.sb.
		Select("id", "user_id", "COALESCE(user_name, '')", "COALESCE(username, '')",
			"message", "created_at", "resolved", "COALESCE(photo_path, '')").
		From("support_tickets").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select ticket: %w", err)
	}

	var t SupportTicket
	err = s.pool.QueryRow(ctx, query, args...).Scan(
		&t.ID, &t.UserID, &t.UserName, &t.Username,
		&t.Message, &t.CreatedAt, &t.Resolved, &t.PhotoPath,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select ticket: %w", err)
	}

	return &t, nil
}

func (s *Store) SetTicketPhoto(ctx context.Context, id int64, photoPath string) error {
	query, args, err := s.sb.
		Update("support_tickets").
		Set("photo_path", photoPath).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update ticket: %w", err)
	}

	if _, err = s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}

	return nil
}

func (s *Store) cacheSet(cache *bigcache.BigCache, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warning("Не удалось сериализовать запись для кэша:", err)
		return
	}
	if err = cache.Set(key, data); err != nil {
		logger.Warning("Не удалось записать в кэш:", err)
	}
}

func (s *Store) invalidate(cache *bigcache.BigCache, key string) {
	if err := cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		logger.Warning("Не удалось выбить ключ из кэша:", key, err)
	}
}

func availabilityKey(name, date, timeSlot string) string {
	return name + "|" + date + "|" + timeSlot
}
