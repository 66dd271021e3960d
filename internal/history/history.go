package history

import (
	"context"
	"database/sql"
	"fmt"
	"myfuelportal-backend/internal/scrapers/fuelportal"
	"myfuelportal-backend/lib/sqliteutil"
	"time"

	_ "embed"
)

//go:embed schema.sql
var Schema string

// Store keeps every reading taken of the tank.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return Store{db: db}
}

// Open opens the database and makes sure the schema exists.
func Open(ctx context.Context, database sqliteutil.Database) (Store, *sql.DB, error) {
	db, err := database.Open(ctx, Schema)
	if err != nil {
		return Store{}, nil, fmt.Errorf("open history: %w", err)
	}
	return NewStore(db), db, nil
}

const isoDate = "2006-01-02"

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

func nullFloat(value *float64) sql.NullFloat64 {
	if value == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *value, Valid: true}
}

func nullDate(value *fuelportal.Date) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.String(), Valid: true}
}

func nullMode(value *fuelportal.DeliveryMode) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*value), Valid: true}
}

func (s Store) Push(ctx context.Context, reading fuelportal.Reading) error {
	tank := reading.Tank
	_, err := s.db.ExecContext(
		ctx,
		`insert into reading (
			time, level, tank_size, fuel_remaining, price, delivery_mode,
			last_delivery, next_delivery, data_last_read
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reading.Time.Unix(),
		nullInt(reading.Level),
		nullInt(tank.TankSize),
		nullInt(tank.FuelRemaining),
		nullFloat(tank.Price),
		nullMode(tank.DeliveryMode),
		nullDate(tank.LastDelivery),
		nullDate(tank.NextDelivery),
		nullDate(tank.DataLastRead),
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

type readingRow struct {
	time          int64
	level         sql.NullInt64
	tankSize      sql.NullInt64
	fuelRemaining sql.NullInt64
	price         sql.NullFloat64
	deliveryMode  sql.NullString
	lastDelivery  sql.NullString
	nextDelivery  sql.NullString
	dataLastRead  sql.NullString
}

func intOf(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	out := int(value.Int64)
	return &out
}

func dateOf(value sql.NullString) (*fuelportal.Date, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := time.Parse(isoDate, value.String)
	if err != nil {
		return nil, err
	}
	date := fuelportal.DateOf(t)
	return &date, nil
}

func (r readingRow) reading() (fuelportal.Reading, error) {
	reading := fuelportal.Reading{
		Time:  time.Unix(r.time, 0),
		Level: intOf(r.level),
		Tank: fuelportal.Tank{
			TankSize:      intOf(r.tankSize),
			FuelRemaining: intOf(r.fuelRemaining),
		},
	}
	if r.price.Valid {
		price := r.price.Float64
		reading.Tank.Price = &price
	}
	if r.deliveryMode.Valid {
		mode := fuelportal.DeliveryMode(r.deliveryMode.String)
		reading.Tank.DeliveryMode = &mode
	}

	var err error
	reading.Tank.LastDelivery, err = dateOf(r.lastDelivery)
	if err != nil {
		return fuelportal.Reading{}, fmt.Errorf("last_delivery: %w", err)
	}
	reading.Tank.NextDelivery, err = dateOf(r.nextDelivery)
	if err != nil {
		return fuelportal.Reading{}, fmt.Errorf("next_delivery: %w", err)
	}
	reading.Tank.DataLastRead, err = dateOf(r.dataLastRead)
	if err != nil {
		return fuelportal.Reading{}, fmt.Errorf("data_last_read: %w", err)
	}
	return reading, nil
}

// Pull returns up to limit readings, newest first. A limit <= 0 returns every reading.
func (s Store) Pull(ctx context.Context, limit int) ([]fuelportal.Reading, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(
		ctx,
		`select
			time, level, tank_size, fuel_remaining, price, delivery_mode,
			last_delivery, next_delivery, data_last_read
		from reading
		order by time desc, id desc
		limit ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var readings []fuelportal.Reading
	for rows.Next() {
		var row readingRow
		err := rows.Scan(
			&row.time,
			&row.level,
			&row.tankSize,
			&row.fuelRemaining,
			&row.price,
			&row.deliveryMode,
			&row.lastDelivery,
			&row.nextDelivery,
			&row.dataLastRead,
		)
		if err != nil {
			return nil, err
		}
		reading, err := row.reading()
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}

// Latest returns the newest reading, false if there is none.
func (s Store) Latest(ctx context.Context) (fuelportal.Reading, bool, error) {
	readings, err := s.Pull(ctx, 1)
	if err != nil || len(readings) == 0 {
		return fuelportal.Reading{}, false, err
	}
	return readings[0], true, nil
}

// Prune deletes the readings taken before the given time.
func (s Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "delete from reading where time < ?", before.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune readings: %w", err)
	}
	return res.RowsAffected()
}
