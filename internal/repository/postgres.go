// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mmeshcher/exchange-coordinator/internal/model"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrWorkerExists возвращается при попытке создать уже существующего воркера.
var (
	ErrWorkerExists = errors.New("worker already exists")
	// ErrWorkerNotFound возвращается, если воркер не найден.
	ErrWorkerNotFound = errors.New("worker not found")
	// ErrWorkerUnbound возвращается при создании заказа воркером без привязанного админа.
	ErrWorkerUnbound = errors.New("worker has no bound admin")
	// ErrAlreadyBound возвращается при попытке привязать воркера к другому админу.
	ErrAlreadyBound = errors.New("worker already bound to another admin")
	// ErrCodeExists возвращается при попытке сохранить уже существующий код.
	ErrCodeExists = errors.New("attribution code already exists")
	// ErrCodeNotFound возвращается, если атрибуционный код не найден.
	ErrCodeNotFound = errors.New("attribution code not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyOpen возвращается, если у воркера уже есть открытый заказ.
	ErrOrderAlreadyOpen = errors.New("worker already has an open order")
	// ErrAlreadyClaimed возвращается, если заказ уже взят в работу.
	ErrAlreadyClaimed = errors.New("order already claimed")
	// ErrInvalidTransition возвращается при недопустимом переходе статуса заказа.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrNotBoundAdmin возвращается, если заказ закреплён за другим админом.
	ErrNotBoundAdmin = errors.New("order is bound to another admin")
	// ErrNotClaimingAdmin возвращается, если действие доступно только взявшему заказ админу.
	ErrNotClaimingAdmin = errors.New("actor is not the claiming admin")
	// ErrUnauthorizedActor возвращается, если действие недоступно данному участнику.
	ErrUnauthorizedActor = errors.New("actor is not allowed to manage this order")
)

const satoshiPerBTC = 1e8

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при serialization failure, deadlock и сетевых
// сбоях. Неудачная условная запись (проигравший гонку) ретраем не является и
// возвращается сразу.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				return retry.RetryableError(err)
			}
			return err
		}

		if isConnectionError(err) {
			return retry.RetryableError(err)
		}

		return err
	})
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateWorker создаёт нового воркера с указанным статусом.
func (r *PostgresRepository) CreateWorker(ctx context.Context, telegramID int64, username string, status model.WorkerStatus) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO workers (telegram_id, username, status) VALUES ($1, $2, $3)`,
		telegramID, username, string(status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %d", ErrWorkerExists, telegramID)
		}
		return fmt.Errorf("create worker: %w", err)
	}
	return nil
}

// GetWorker возвращает воркера по идентификатору.
func (r *PostgresRepository) GetWorker(ctx context.Context, telegramID int64) (*model.Worker, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT telegram_id, username, status, bound_admin, attribution_code,
		        profit_total, profit_week, rank, registered_at
		 FROM workers WHERE telegram_id = $1`,
		telegramID,
	)

	var (
		w           model.Worker
		status      string
		profitTotal int64
		profitWeek  int64
	)
	err := row.Scan(&w.TelegramID, &w.Username, &status, &w.BoundAdmin, &w.AttributionCode,
		&profitTotal, &profitWeek, &w.Rank, &w.RegistrationDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkerNotFound
		}
		return nil, fmt.Errorf("get worker: %w", err)
	}

	w.Status = model.WorkerStatus(status)
	w.ProfitTotal = float64(profitTotal) / 100
	w.ProfitWeek = float64(profitWeek) / 100

	return &w, nil
}

// UpdateWorkerStatus обновляет статус воркера.
func (r *PostgresRepository) UpdateWorkerStatus(ctx context.Context, telegramID int64, status model.WorkerStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE workers SET status = $2 WHERE telegram_id = $1`,
		telegramID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update worker status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrWorkerNotFound
	}
	return nil
}

// UpdateWorkerProfit обновляет профит воркера. Nil-параметры не изменяются.
func (r *PostgresRepository) UpdateWorkerProfit(ctx context.Context, telegramID int64, profitTotal, profitWeek *float64) error {
	var totalCents, weekCents *int64
	if profitTotal != nil {
		v := int64(*profitTotal * 100)
		totalCents = &v
	}
	if profitWeek != nil {
		v := int64(*profitWeek * 100)
		weekCents = &v
	}

	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE workers
		 SET profit_total = COALESCE($2, profit_total),
		     profit_week  = COALESCE($3, profit_week)
		 WHERE telegram_id = $1`,
		telegramID, totalCents, weekCents,
	)
	if err != nil {
		return fmt.Errorf("update worker profit: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrWorkerNotFound
	}
	return nil
}

// BindWorkerAdmin привязывает воркера к админу. Повторная привязка к тому же
// админу идемпотентна; привязка к другому отклоняется — одно условное
// обновление, без окна между чтением и записью.
func (r *PostgresRepository) BindWorkerAdmin(ctx context.Context, workerID, adminID int64, code *string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE workers
		 SET bound_admin = $2, attribution_code = COALESCE($3, attribution_code)
		 WHERE telegram_id = $1 AND (bound_admin IS NULL OR bound_admin = $2)`,
		workerID, adminID, code,
	)
	if err != nil {
		return fmt.Errorf("bind worker: %w", err)
	}
	if cmdTag.RowsAffected() == 1 {
		return nil
	}

	// Ноль строк: либо воркера нет, либо он привязан к другому админу.
	var bound *int64
	err = r.pool.QueryRow(ctx,
		`SELECT bound_admin FROM workers WHERE telegram_id = $1`, workerID,
	).Scan(&bound)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrWorkerNotFound
		}
		return fmt.Errorf("classify bind failure: %w", err)
	}

	return ErrAlreadyBound
}

// PutCode сохраняет атрибуционный код с эмитентом.
func (r *PostgresRepository) PutCode(ctx context.Context, code string, adminID, originWorker *int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attribution_codes (code, admin_id, origin_worker) VALUES ($1, $2, $3)`,
		code, adminID, originWorker,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrCodeExists, code)
		}
		return fmt.Errorf("put code: %w", err)
	}
	return nil
}

// GetCode возвращает запись атрибуционного кода.
func (r *PostgresRepository) GetCode(ctx context.Context, code string) (*model.CodeRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT code, admin_id, origin_worker, created_at FROM attribution_codes WHERE code = $1`,
		code,
	)

	var rec model.CodeRecord
	err := row.Scan(&rec.Code, &rec.AdminID, &rec.OriginWorker, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("get code: %w", err)
	}

	return &rec, nil
}

const orderColumns = `id, worker_id, amount_sat, status, bound_admin, claiming_admin, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o         model.Order
		amountSat int64
		status    string
	)
	err := row.Scan(&o.ID, &o.WorkerID, &amountSat, &status, &o.BoundAdmin, &o.ClaimingAdmin, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Amount = float64(amountSat) / satoshiPerBTC
	o.Status = model.OrderStatus(status)
	return &o, nil
}

func openStatusList() []string {
	open := model.OpenStatuses()
	res := make([]string, 0, len(open))
	for _, s := range open {
		res = append(res, string(s))
	}
	return res
}

// CreateOrder создаёт заказ в статусе pending, атомарно копируя привязанного
// админа из строки воркера. Проверка "один открытый заказ" обеспечивается
// частичным уникальным индексом orders_worker_open_uniq, а не чтением перед
// записью.
func (r *PostgresRepository) CreateOrder(ctx context.Context, workerID int64, amount float64) (*model.Order, error) {
	amountSat := int64(amount * satoshiPerBTC)

	var order *model.Order
	err := r.withRetry(ctx, func() error {
		row := r.pool.QueryRow(ctx,
			`INSERT INTO orders (worker_id, amount_sat, status, bound_admin)
			 SELECT w.telegram_id, $2, 'pending', w.bound_admin
			 FROM workers w
			 WHERE w.telegram_id = $1 AND w.bound_admin IS NOT NULL
			 RETURNING `+orderColumns,
			workerID, amountSat,
		)

		o, err := scanOrder(row)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err == nil {
		return order, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return nil, ErrOrderAlreadyOpen
	}

	if errors.Is(err, pgx.ErrNoRows) {
		// Вставка не прошла отбор: воркера нет либо он не привязан.
		if _, gErr := r.GetWorker(ctx, workerID); gErr != nil {
			return nil, gErr
		}
		return nil, ErrWorkerUnbound
	}

	return nil, fmt.Errorf("create order: %w", err)
}

// ClaimOrder атомарно переводит заказ pending → claimed и назначает
// claiming_admin. Условие на status гарантирует, что из конкурирующих
// вызовов выигрывает ровно один.
func (r *PostgresRepository) ClaimOrder(ctx context.Context, orderID, adminID int64) (*model.Order, error) {
	var order *model.Order
	err := r.withRetry(ctx, func() error {
		row := r.pool.QueryRow(ctx,
			`UPDATE orders
			 SET status = 'claimed', claiming_admin = $2, updated_at = now()
			 WHERE id = $1 AND status = 'pending'
			   AND (bound_admin IS NULL OR bound_admin = $2)
			 RETURNING `+orderColumns,
			orderID, adminID,
		)

		o, err := scanOrder(row)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err == nil {
		return order, nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.classifyClaimFailure(ctx, orderID, adminID)
	}

	return nil, fmt.Errorf("claim order: %w", err)
}

// classifyClaimFailure определяет причину проигрыша условного обновления.
// Статус движется только вперёд, поэтому чтение после неудачи не может
// ошибочно назвать причину.
func (r *PostgresRepository) classifyClaimFailure(ctx context.Context, orderID, adminID int64) error {
	var (
		status string
		bound  *int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT status, bound_admin FROM orders WHERE id = $1`, orderID,
	).Scan(&status, &bound)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("classify claim failure: %w", err)
	}

	if model.OrderStatus(status) != model.OrderStatusPending {
		return ErrAlreadyClaimed
	}
	if bound != nil && *bound != adminID {
		return ErrNotBoundAdmin
	}
	return ErrAlreadyClaimed
}

// BeginService переводит заказ claimed → in_progress. Доступно только взявшему заказ админу.
func (r *PostgresRepository) BeginService(ctx context.Context, orderID, adminID int64) (*model.Order, error) {
	return r.advanceByClaimant(ctx, orderID, adminID,
		model.OrderStatusClaimed, model.OrderStatusInProgress)
}

// MarkTransactionSent переводит заказ in_progress → transaction_sent.
func (r *PostgresRepository) MarkTransactionSent(ctx context.Context, orderID, adminID int64) (*model.Order, error) {
	return r.advanceByClaimant(ctx, orderID, adminID,
		model.OrderStatusInProgress, model.OrderStatusTransactionSent)
}

func (r *PostgresRepository) advanceByClaimant(ctx context.Context, orderID, adminID int64, from, to model.OrderStatus) (*model.Order, error) {
	var order *model.Order
	err := r.withRetry(ctx, func() error {
		row := r.pool.QueryRow(ctx,
			`UPDATE orders
			 SET status = $4, updated_at = now()
			 WHERE id = $1 AND status = $3 AND claiming_admin = $2
			 RETURNING `+orderColumns,
			orderID, adminID, string(from), string(to),
		)

		o, err := scanOrder(row)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err == nil {
		return order, nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.classifyClaimantFailure(ctx, orderID, adminID)
	}

	return nil, fmt.Errorf("advance order: %w", err)
}

func (r *PostgresRepository) classifyClaimantFailure(ctx context.Context, orderID, adminID int64) error {
	var (
		status   string
		claimant *int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT status, claiming_admin FROM orders WHERE id = $1`, orderID,
	).Scan(&status, &claimant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("classify transition failure: %w", err)
	}

	if claimant == nil || *claimant != adminID {
		return ErrNotClaimingAdmin
	}

	return fmt.Errorf("%w: order %d is %s", ErrInvalidTransition, orderID, status)
}

// CompleteOrder переводит заказ в completed из любого открытого статуса.
// Доступно только взявшему заказ админу. Завершение снимает блокировку
// "один открытый заказ" для воркера.
func (r *PostgresRepository) CompleteOrder(ctx context.Context, orderID, adminID int64) (*model.Order, error) {
	var order *model.Order
	err := r.withRetry(ctx, func() error {
		row := r.pool.QueryRow(ctx,
			`UPDATE orders
			 SET status = 'completed', updated_at = now()
			 WHERE id = $1 AND claiming_admin = $2 AND status = ANY($3)
			 RETURNING `+orderColumns,
			orderID, adminID, openStatusList(),
		)

		o, err := scanOrder(row)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err == nil {
		return order, nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.classifyCloseFailure(ctx, orderID, adminID, false)
	}

	return nil, fmt.Errorf("complete order: %w", err)
}

// CancelOrder переводит заказ в cancelled из любого открытого статуса.
// Доступно взявшему заказ админу либо закреплённому за заказом.
func (r *PostgresRepository) CancelOrder(ctx context.Context, orderID, actorID int64) (*model.Order, error) {
	var order *model.Order
	err := r.withRetry(ctx, func() error {
		row := r.pool.QueryRow(ctx,
			`UPDATE orders
			 SET status = 'cancelled', updated_at = now()
			 WHERE id = $1 AND (claiming_admin = $2 OR bound_admin = $2) AND status = ANY($3)
			 RETURNING `+orderColumns,
			orderID, actorID, openStatusList(),
		)

		o, err := scanOrder(row)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err == nil {
		return order, nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.classifyCloseFailure(ctx, orderID, actorID, true)
	}

	return nil, fmt.Errorf("cancel order: %w", err)
}

func (r *PostgresRepository) classifyCloseFailure(ctx context.Context, orderID, actorID int64, allowBound bool) error {
	var (
		status   string
		bound    *int64
		claimant *int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT status, bound_admin, claiming_admin FROM orders WHERE id = $1`, orderID,
	).Scan(&status, &bound, &claimant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("classify close failure: %w", err)
	}

	allowed := claimant != nil && *claimant == actorID
	if allowBound {
		allowed = allowed || (bound != nil && *bound == actorID)
	}
	if !allowed {
		if allowBound {
			return ErrUnauthorizedActor
		}
		return ErrNotClaimingAdmin
	}

	return ErrInvalidTransition
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID,
	)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return order, nil
}

// GetOpenOrderByWorker возвращает открытый заказ воркера, если он есть.
func (r *PostgresRepository) GetOpenOrderByWorker(ctx context.Context, workerID int64) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE worker_id = $1 AND status = ANY($2)`,
		workerID, openStatusList(),
	)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get open order: %w", err)
	}

	return order, nil
}

// ListOrdersByWorker возвращает заказы воркера, новые первыми.
func (r *PostgresRepository) ListOrdersByWorker(ctx context.Context, workerID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE worker_id = $1 ORDER BY created_at DESC`,
		workerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// GetTopWeek возвращает топ активных воркеров по недельному профиту.
func (r *PostgresRepository) GetTopWeek(ctx context.Context, limit int) ([]model.TopEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT username, profit_week
		 FROM workers
		 WHERE status = $1 AND profit_week > 0
		 ORDER BY profit_week DESC
		 LIMIT $2`,
		string(model.WorkerStatusActive), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select top week: %w", err)
	}
	defer rows.Close()

	var res []model.TopEntry
	for rows.Next() {
		var (
			username   string
			profitWeek int64
		)
		if err := rows.Scan(&username, &profitWeek); err != nil {
			return nil, fmt.Errorf("scan top entry: %w", err)
		}
		res = append(res, model.TopEntry{
			Username:   username,
			ProfitWeek: float64(profitWeek) / 100,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetAdminWorkerStats возвращает сводку по воркерам, привязанным к админу.
func (r *PostgresRepository) GetAdminWorkerStats(ctx context.Context, adminID int64) (*model.AdminWorkerStats, error) {
	var (
		stats      model.AdminWorkerStats
		totalCents int64
		weekCents  int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(profit_total), 0), COALESCE(SUM(profit_week), 0)
		 FROM workers
		 WHERE bound_admin = $1 AND status = $2`,
		adminID, string(model.WorkerStatusActive),
	).Scan(&stats.TotalWorkers, &totalCents, &weekCents)
	if err != nil {
		return nil, fmt.Errorf("sum admin workers: %w", err)
	}

	stats.TotalProfit = float64(totalCents) / 100
	stats.WeekProfit = float64(weekCents) / 100

	rows, err := r.pool.Query(ctx,
		`SELECT username, profit_week
		 FROM workers
		 WHERE bound_admin = $1 AND status = $2
		 ORDER BY profit_week DESC
		 LIMIT 10`,
		adminID, string(model.WorkerStatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("select admin workers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			username   string
			profitWeek int64
		)
		if err := rows.Scan(&username, &profitWeek); err != nil {
			return nil, fmt.Errorf("scan admin worker: %w", err)
		}
		stats.Workers = append(stats.Workers, model.TopEntry{
			Username:   username,
			ProfitWeek: float64(profitWeek) / 100,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &stats, nil
}
