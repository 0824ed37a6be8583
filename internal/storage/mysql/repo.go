package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"staybook/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func day(t time.Time) string { return t.UTC().Format(domain.DateLayout) }

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Create(ctx context.Context, b domain.Booking) error {
	_, err := r.db.ExecContext(ctx, insertBookingSQL,
		b.ID,
		b.UserID,
		valStr(b.UserEmail),
		b.HotelID,
		b.HotelName,
		valStr(b.HotelLocation),
		valStr(b.HotelImage),
		b.RoomType,
		b.NightlyPrice,
		b.Currency,
		day(b.CheckIn),
		day(b.CheckOut),
		b.Guests,
		b.TotalPrice,
		b.Status,
		b.CreatedAt.UTC(),
		b.UpdatedAt.UTC(),
	)
	return err
}

func (r *Repo) Get(ctx context.Context, userID, id string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, err
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, listBookingsSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) Update(ctx context.Context, b domain.Booking) error {
	res, err := r.db.ExecContext(ctx, updateBookingSQL,
		b.RoomType,
		day(b.CheckIn),
		day(b.CheckOut),
		b.Guests,
		b.TotalPrice,
		b.Status,
		b.UpdatedAt.UTC(),
		b.ID,
		b.UserID,
	)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (r *Repo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, deleteBookingSQL, id, userID)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// mustAffect maps "no row matched" to ErrNotFound. MySQL reports 0 affected
// rows for an UPDATE that changes nothing, but updated_at always moves.
func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(s scanner) (domain.Booking, error) {
	var (
		b                    domain.Booking
		email, loc, img      sql.NullString
		checkIn, checkOut    time.Time
		createdAt, updatedAt time.Time
	)
	err := s.Scan(
		&b.ID, &b.UserID, &email, &b.HotelID, &b.HotelName, &loc, &img,
		&b.RoomType, &b.NightlyPrice, &b.Currency, &checkIn, &checkOut, &b.Guests, &b.TotalPrice, &b.Status,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Booking{}, err
	}
	b.UserEmail, b.HotelLocation, b.HotelImage = email.String, loc.String, img.String
	b.CheckIn, b.CheckOut = checkIn.UTC(), checkOut.UTC()
	b.CreatedAt, b.UpdatedAt = createdAt.UTC(), updatedAt.UTC()
	return b, nil
}
