/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

INTERFACES IMPLEMENTED:
  catalog.Store          Stations and commodity categories
  capacity.Store         Capacity slots with atomic reserve/release
  booking.Store          Booking records and status compare-and-set
  booking.TrackingStore  Append-only tracking events

CAPACITY ATOMICITY:
  ReserveCapacity performs the check-then-increment as one unit: the read
  and conditional write run inside a single SQL transaction under the
  store mutex, so concurrent reservations against the same slot serialize
  and the booked total can never exceed capacity. With PostgreSQL the
  same shape becomes a conditional UPDATE with a rows-affected check.

STATUS COMPARE-AND-SET:
  UpdateStatus and MarkCancelled guard on the expected current status in
  the WHERE clause and treat zero affected rows as an invalid transition.
  The status write and its tracking event land in the same transaction.

NUMERIC STORAGE:
  Weights and money are shopspring decimals persisted as TEXT; all
  arithmetic and comparison happens in Go with exact decimals, never in
  SQL over floats.

WAL MODE:
  SQLite is opened with WAL so readers do not block behind the writer.

SEE ALSO:
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/cargo-engine/booking"
	"github.com/warp/cargo-engine/capacity"
	"github.com/warp/cargo-engine/catalog"
)

const (
	timeFormat = time.RFC3339Nano
	dateFormat = "2006-01-02"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a SQLite store at dbPath. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The sqlite3 driver allows one writer at a time; keep the pool at a
	// single connection so :memory: databases are shared too.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS railway_stations (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		city TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS commodity_categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		base_rate_per_kg TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cargo_slots (
		id TEXT PRIMARY KEY,
		from_station_id TEXT NOT NULL,
		to_station_id TEXT NOT NULL,
		commodity_category_id TEXT NOT NULL,
		available_date TEXT NOT NULL,
		total_capacity_kg TEXT NOT NULL,
		booked_capacity_kg TEXT NOT NULL,
		price_per_kg TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_slots_route
		ON cargo_slots(from_station_id, to_station_id, commodity_category_id, available_date);

	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		booking_number TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		sender_name TEXT NOT NULL,
		sender_phone TEXT NOT NULL,
		sender_address TEXT NOT NULL,
		receiver_name TEXT NOT NULL,
		receiver_phone TEXT NOT NULL,
		receiver_address TEXT NOT NULL,
		from_station_id TEXT NOT NULL,
		to_station_id TEXT NOT NULL,
		commodity_category_id TEXT NOT NULL,
		slot_id TEXT NOT NULL,
		weight_kg TEXT NOT NULL,
		declared_value TEXT NOT NULL,
		description TEXT,
		base_charge TEXT NOT NULL,
		tax_amount TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		cancelled_at TEXT,
		cancellation_reason TEXT,
		refund_amount TEXT,
		refund_status TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id);
	CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status);

	-- Append-only: no UPDATE or DELETE is ever issued against this table.
	CREATE TABLE IF NOT EXISTS tracking_events (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL,
		status TEXT NOT NULL,
		location TEXT,
		description TEXT NOT NULL,
		actor TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tracking_booking
		ON tracking_events(booking_id, created_at);

	CREATE TABLE IF NOT EXISTS payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		booking_id TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		transaction_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_booking ON payments(booking_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CATALOG STORE
// =============================================================================

func (s *Store) ListStations(ctx context.Context) ([]catalog.Station, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, name, city, is_active, created_at FROM railway_stations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Station
	for rows.Next() {
		var st catalog.Station
		var active int
		var created string
		if err := rows.Scan(&st.ID, &st.Code, &st.Name, &st.City, &active, &created); err != nil {
			return nil, err
		}
		st.Active = active != 0
		st.CreatedAt, _ = time.Parse(timeFormat, created)
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) ListCategories(ctx context.Context) ([]catalog.CommodityCategory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, base_rate_per_kg, is_active, created_at, updated_at
		 FROM commodity_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.CommodityCategory
	for rows.Next() {
		var c catalog.CommodityCategory
		var active int
		var rate, created, updated string
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &rate, &active, &created, &updated); err != nil {
			return nil, err
		}
		c.BaseRatePerKg, err = decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("category %s: bad rate %q: %w", c.ID, rate, err)
		}
		c.Active = active != 0
		c.CreatedAt, _ = time.Parse(timeFormat, created)
		c.UpdatedAt, _ = time.Parse(timeFormat, updated)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) SaveStation(ctx context.Context, st catalog.Station) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO railway_stations (id, code, name, city, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET code=excluded.code, name=excluded.name,
			city=excluded.city, is_active=excluded.is_active`,
		st.ID, st.Code, st.Name, st.City, boolToInt(st.Active), st.CreatedAt.UTC().Format(timeFormat))
	return err
}

func (s *Store) SaveCategory(ctx context.Context, c catalog.CommodityCategory) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commodity_categories (id, name, description, base_rate_per_kg, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, description=excluded.description,
			base_rate_per_kg=excluded.base_rate_per_kg, is_active=excluded.is_active,
			updated_at=excluded.updated_at`,
		c.ID, c.Name, c.Description, c.BaseRatePerKg.String(), boolToInt(c.Active),
		c.CreatedAt.UTC().Format(timeFormat), c.UpdatedAt.UTC().Format(timeFormat))
	return err
}

// =============================================================================
// CAPACITY STORE
// =============================================================================

func (s *Store) InsertSlot(ctx context.Context, slot capacity.Slot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cargo_slots (id, from_station_id, to_station_id, commodity_category_id,
			available_date, total_capacity_kg, booked_capacity_kg, price_per_kg, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		slot.ID, slot.FromStation, slot.ToStation, slot.Category,
		slot.Date.UTC().Format(dateFormat),
		slot.TotalKg.String(), slot.BookedKg.String(), slot.PricePerKg.String(),
		slot.CreatedAt.UTC().Format(timeFormat), slot.UpdatedAt.UTC().Format(timeFormat))
	return err
}

func (s *Store) GetSlot(ctx context.Context, id capacity.SlotID) (capacity.Slot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, from_station_id, to_station_id, commodity_category_id, available_date,
			total_capacity_kg, booked_capacity_kg, price_per_kg, created_at, updated_at
		 FROM cargo_slots WHERE id = ?`, id)
	return scanSlot(row)
}

func (s *Store) FindSlots(ctx context.Context, from, to catalog.StationID, category catalog.CategoryID, onOrAfter time.Time) ([]capacity.Slot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, from_station_id, to_station_id, commodity_category_id, available_date,
			total_capacity_kg, booked_capacity_kg, price_per_kg, created_at, updated_at
		 FROM cargo_slots
		 WHERE from_station_id = ? AND to_station_id = ? AND commodity_category_id = ?
			AND available_date >= ?
		 ORDER BY available_date ASC, id ASC`,
		from, to, category, onOrAfter.UTC().Format(dateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []capacity.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

// ReserveCapacity reads the counters and applies the conditional
// increment inside one transaction under the store mutex. When two
// reservations race for the last headroom, exactly one commits.
func (s *Store) ReserveCapacity(ctx context.Context, id capacity.SlotID, weightKg decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		booked, total, err := slotCounters(ctx, tx, id)
		if err != nil {
			return err
		}
		next := booked.Add(weightKg)
		if next.GreaterThan(total) {
			return capacity.ErrInsufficientCapacity
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE cargo_slots SET booked_capacity_kg = ?, updated_at = ? WHERE id = ?`,
			next.String(), time.Now().UTC().Format(timeFormat), id)
		return err
	})
}

func (s *Store) ReleaseCapacity(ctx context.Context, id capacity.SlotID, weightKg decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		booked, _, err := slotCounters(ctx, tx, id)
		if err != nil {
			return err
		}
		next := booked.Sub(weightKg)
		if next.IsNegative() {
			next = decimal.Zero
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE cargo_slots SET booked_capacity_kg = ?, updated_at = ? WHERE id = ?`,
			next.String(), time.Now().UTC().Format(timeFormat), id)
		return err
	})
}

func (s *Store) UpdateSlotCapacity(ctx context.Context, id capacity.SlotID, totalKg, pricePerKg decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		booked, _, err := slotCounters(ctx, tx, id)
		if err != nil {
			return err
		}
		if totalKg.LessThan(booked) {
			return capacity.ErrCapacityBelowBooked
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE cargo_slots SET total_capacity_kg = ?, price_per_kg = ?, updated_at = ? WHERE id = ?`,
			totalKg.String(), pricePerKg.String(), time.Now().UTC().Format(timeFormat), id)
		return err
	})
}

// =============================================================================
// BOOKING STORE
// =============================================================================

func (s *Store) InsertBooking(ctx context.Context, b booking.Booking, initial booking.TrackingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO bookings (id, booking_number, user_id,
				sender_name, sender_phone, sender_address,
				receiver_name, receiver_phone, receiver_address,
				from_station_id, to_station_id, commodity_category_id, slot_id,
				weight_kg, declared_value, description,
				base_charge, tax_amount, total_amount,
				status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.Number, b.UserID,
			b.Sender.Name, b.Sender.Phone, b.Sender.Address,
			b.Receiver.Name, b.Receiver.Phone, b.Receiver.Address,
			b.FromStation, b.ToStation, b.Category, b.SlotID,
			b.WeightKg.String(), b.DeclaredValue.String(), b.Description,
			b.BaseCharge.String(), b.TaxAmount.String(), b.TotalAmount.String(),
			b.Status, b.CreatedAt.UTC().Format(timeFormat), b.UpdatedAt.UTC().Format(timeFormat))
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return booking.ErrDuplicateNumber
			}
			return err
		}
		return appendEventTx(ctx, tx, initial)
	})
}

func (s *Store) GetBooking(ctx context.Context, id booking.BookingID) (booking.Booking, error) {
	row := s.db.QueryRowContext(ctx, selectBooking+` WHERE id = ?`, id)
	return scanBooking(row)
}

func (s *Store) GetBookingByNumber(ctx context.Context, n booking.Number) (booking.Booking, error) {
	row := s.db.QueryRowContext(ctx, selectBooking+` WHERE booking_number = ?`, n)
	return scanBooking(row)
}

// LatestNumberForDay orders by length first: the prefix is fixed-width, so
// a longer number always carries a numerically larger suffix.
func (s *Store) LatestNumberForDay(ctx context.Context, day string) (booking.Number, error) {
	var n string
	err := s.db.QueryRowContext(ctx,
		`SELECT booking_number FROM bookings WHERE booking_number LIKE ?
		 ORDER BY length(booking_number) DESC, booking_number DESC LIMIT 1`,
		"RPB-"+day+"-%").Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return booking.Number(n), nil
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID string, includeCancelled bool) ([]booking.Booking, error) {
	q := selectBooking + ` WHERE user_id = ?`
	if !includeCancelled {
		q += ` AND status != 'cancelled'`
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, id booking.BookingID, from, to booking.Status, at time.Time, ev booking.TrackingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			to, at.UTC().Format(timeFormat), id, from)
		if err != nil {
			return err
		}
		if err := requireTransition(ctx, tx, res, id, to); err != nil {
			return err
		}
		return appendEventTx(ctx, tx, ev)
	})
}

func (s *Store) MarkCancelled(ctx context.Context, id booking.BookingID, from booking.Status, c booking.Cancellation, ev booking.TrackingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE bookings SET status = 'cancelled', updated_at = ?, cancelled_at = ?,
				cancellation_reason = ?, refund_amount = ?, refund_status = ?
			 WHERE id = ? AND status = ?`,
			c.At.UTC().Format(timeFormat), c.At.UTC().Format(timeFormat),
			c.Reason, c.RefundAmount.String(), c.RefundStatus, id, from)
		if err != nil {
			return err
		}
		if err := requireTransition(ctx, tx, res, id, booking.StatusCancelled); err != nil {
			return err
		}
		return appendEventTx(ctx, tx, ev)
	})
}

func (s *Store) SavePayment(ctx context.Context, id booking.BookingID, p booking.PaymentRef) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (booking_id, payment_method, transaction_id, amount, payment_date)
		 VALUES (?, ?, ?, ?, ?)`,
		id, p.Method, p.TransactionID, p.Amount.String(), p.PaidAt.UTC().Format(timeFormat))
	return err
}

// =============================================================================
// TRACKING STORE
// =============================================================================

func (s *Store) AppendEvent(ctx context.Context, ev booking.TrackingEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tracking_events (id, booking_id, status, location, description, actor, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.BookingID, ev.Status, ev.Location, ev.Description, ev.Actor,
		ev.CreatedAt.UTC().Format(timeFormat))
	return err
}

func (s *Store) ListEvents(ctx context.Context, id booking.BookingID, order booking.EventOrder) ([]booking.TrackingEvent, error) {
	dir := "ASC"
	if order == booking.NewestFirst {
		dir = "DESC"
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, booking_id, status, location, description, actor, created_at
		 FROM tracking_events WHERE booking_id = ? ORDER BY created_at `+dir, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.TrackingEvent
	for rows.Next() {
		var ev booking.TrackingEvent
		var created string
		if err := rows.Scan(&ev.ID, &ev.BookingID, &ev.Status, &ev.Location, &ev.Description, &ev.Actor, &created); err != nil {
			return nil, err
		}
		ev.CreatedAt, _ = time.Parse(timeFormat, created)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

const selectBooking = `SELECT id, booking_number, user_id,
	sender_name, sender_phone, sender_address,
	receiver_name, receiver_phone, receiver_address,
	from_station_id, to_station_id, commodity_category_id, slot_id,
	weight_kg, declared_value, description,
	base_charge, tax_amount, total_amount,
	status, created_at, updated_at,
	cancelled_at, cancellation_reason, refund_amount, refund_status
 FROM bookings`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (booking.Booking, error) {
	var b booking.Booking
	var weight, declared, base, tax, total, created, updated string
	var cancelledAt, reason, refundAmount, refundStatus sql.NullString

	err := row.Scan(&b.ID, &b.Number, &b.UserID,
		&b.Sender.Name, &b.Sender.Phone, &b.Sender.Address,
		&b.Receiver.Name, &b.Receiver.Phone, &b.Receiver.Address,
		&b.FromStation, &b.ToStation, &b.Category, &b.SlotID,
		&weight, &declared, &b.Description,
		&base, &tax, &total,
		&b.Status, &created, &updated,
		&cancelledAt, &reason, &refundAmount, &refundStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return booking.Booking{}, booking.ErrNotFound
	}
	if err != nil {
		return booking.Booking{}, err
	}

	if b.WeightKg, err = decimal.NewFromString(weight); err != nil {
		return booking.Booking{}, err
	}
	if b.DeclaredValue, err = decimal.NewFromString(declared); err != nil {
		return booking.Booking{}, err
	}
	if b.BaseCharge, err = decimal.NewFromString(base); err != nil {
		return booking.Booking{}, err
	}
	if b.TaxAmount, err = decimal.NewFromString(tax); err != nil {
		return booking.Booking{}, err
	}
	if b.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return booking.Booking{}, err
	}
	b.CreatedAt, _ = time.Parse(timeFormat, created)
	b.UpdatedAt, _ = time.Parse(timeFormat, updated)

	if cancelledAt.Valid {
		t, _ := time.Parse(timeFormat, cancelledAt.String)
		b.CancelledAt = &t
	}
	b.CancellationReason = reason.String
	if refundAmount.Valid {
		d, err := decimal.NewFromString(refundAmount.String)
		if err != nil {
			return booking.Booking{}, err
		}
		b.RefundAmount = &d
	}
	b.RefundStatus = booking.RefundStatus(refundStatus.String)
	return b, nil
}

func scanSlot(row rowScanner) (capacity.Slot, error) {
	var slot capacity.Slot
	var date, total, booked, price, created, updated string

	err := row.Scan(&slot.ID, &slot.FromStation, &slot.ToStation, &slot.Category,
		&date, &total, &booked, &price, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return capacity.Slot{}, capacity.ErrSlotNotFound
	}
	if err != nil {
		return capacity.Slot{}, err
	}

	slot.Date, _ = time.Parse(dateFormat, date)
	if slot.TotalKg, err = decimal.NewFromString(total); err != nil {
		return capacity.Slot{}, err
	}
	if slot.BookedKg, err = decimal.NewFromString(booked); err != nil {
		return capacity.Slot{}, err
	}
	if slot.PricePerKg, err = decimal.NewFromString(price); err != nil {
		return capacity.Slot{}, err
	}
	slot.CreatedAt, _ = time.Parse(timeFormat, created)
	slot.UpdatedAt, _ = time.Parse(timeFormat, updated)
	return slot, nil
}

func slotCounters(ctx context.Context, tx *sql.Tx, id capacity.SlotID) (booked, total decimal.Decimal, err error) {
	var bookedStr, totalStr string
	err = tx.QueryRowContext(ctx,
		`SELECT booked_capacity_kg, total_capacity_kg FROM cargo_slots WHERE id = ?`, id).
		Scan(&bookedStr, &totalStr)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, decimal.Zero, capacity.ErrSlotNotFound
	}
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if booked, err = decimal.NewFromString(bookedStr); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if total, err = decimal.NewFromString(totalStr); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return booked, total, nil
}

// requireTransition maps a zero-rows-affected conditional update to the
// right error: not found if the booking is missing, invalid transition if
// it exists in another state.
func requireTransition(ctx context.Context, tx *sql.Tx, res sql.Result, id booking.BookingID, to booking.Status) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var current booking.Status
	err = tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return booking.ErrNotFound
	}
	if err != nil {
		return err
	}
	return &booking.InvalidTransitionError{BookingID: id, From: current, To: to}
}

func appendEventTx(ctx context.Context, tx *sql.Tx, ev booking.TrackingEvent) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO tracking_events (id, booking_id, status, location, description, actor, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.BookingID, ev.Status, ev.Location, ev.Description, ev.Actor,
		ev.CreatedAt.UTC().Format(timeFormat))
	return err
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
