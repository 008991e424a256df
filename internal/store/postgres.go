package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"recruitment-portal/internal/booking"
)

const uniqueViolation = "23505"

const columns = `id, track, applicant_id, email, name,
	interviewer, interview_day, time_start, time_end, status, created_at, updated_at`

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) CreateApplication(ctx context.Context, b *booking.Booking) (*booking.Booking, error) {
	q := `INSERT INTO applications (id, track, applicant_id, email, name)
	      VALUES ($1,$2,$3,$4,$5)
	      ON CONFLICT (track, applicant_id) DO NOTHING`
	if _, err := p.pool.Exec(ctx, q, uuid.New(), string(b.Track), b.ApplicantID, b.Email, b.Name); err != nil {
		return nil, err
	}
	return p.Application(ctx, b.Track, b.ApplicantID)
}

func (p *Postgres) Application(ctx context.Context, track booking.Track, applicantID string) (*booking.Booking, error) {
	q := `SELECT ` + columns + ` FROM applications WHERE track=$1 AND applicant_id=$2`
	return one(p.pool.QueryRow(ctx, q, string(track), applicantID))
}

func (p *Postgres) ListApplications(ctx context.Context, track booking.Track) ([]booking.Booking, error) {
	q := `SELECT ` + columns + ` FROM applications WHERE track=$1 ORDER BY created_at`
	return p.query(ctx, q, string(track))
}

func (p *Postgres) ListBooked(ctx context.Context, track booking.Track) ([]booking.Booking, error) {
	q := `SELECT ` + columns + ` FROM applications
	      WHERE track=$1 AND interviewer IS NOT NULL
	      ORDER BY interview_day, time_start, interviewer`
	return p.query(ctx, q, string(track))
}

func (p *Postgres) SetStatus(ctx context.Context, track booking.Track, applicantID string, status booking.Status) (*booking.Booking, error) {
	q := `UPDATE applications SET status=$3, updated_at=now()
	      WHERE track=$1 AND applicant_id=$2
	      RETURNING ` + columns
	var st pgtype.Text
	if status != booking.StatusNone {
		st = pgtype.Text{String: string(status), Valid: true}
	}
	return one(p.pool.QueryRow(ctx, q, string(track), applicantID, st))
}

func (p *Postgres) FindHolders(ctx context.Context, track booking.Track, slot booking.SlotKey, excludeApplicantID string) ([]string, error) {
	q := `SELECT applicant_id FROM applications
	      WHERE track=$1 AND interviewer=$2 AND interview_day=$3
	        AND time_start=$4 AND time_end=$5 AND applicant_id<>$6
	      ORDER BY applicant_id`
	rows, err := p.pool.Query(ctx, q, string(track), slot.Interviewer,
		dateArg(slot.Day), clockArg(slot.Start), clockArg(slot.End), excludeApplicantID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (p *Postgres) AssignSlot(ctx context.Context, track booking.Track, applicantID string, slot booking.SlotKey) (*booking.Booking, error) {
	q := `UPDATE applications
	      SET interviewer=$3, interview_day=$4, time_start=$5, time_end=$6, updated_at=now()
	      WHERE track=$1 AND applicant_id=$2
	      RETURNING ` + columns
	b, err := one(p.pool.QueryRow(ctx, q, string(track), applicantID,
		slot.Interviewer, dateArg(slot.Day), clockArg(slot.Start), clockArg(slot.End)))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, booking.ErrSlotConflict
		}
		return nil, err
	}
	return b, nil
}

func (p *Postgres) ClearSlot(ctx context.Context, track booking.Track, applicantID string) (*booking.Booking, *booking.SlotKey, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	prev, err := one(tx.QueryRow(ctx,
		`SELECT `+columns+` FROM applications WHERE track=$1 AND applicant_id=$2 FOR UPDATE`,
		string(track), applicantID))
	if err != nil {
		return nil, nil, err
	}
	if prev.Slot == nil {
		return prev, nil, tx.Commit(ctx)
	}

	cleared, err := one(tx.QueryRow(ctx,
		`UPDATE applications
		 SET interviewer=NULL, interview_day=NULL, time_start=NULL, time_end=NULL, updated_at=now()
		 WHERE id=$1
		 RETURNING `+columns, prev.ID))
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return cleared, prev.Slot, nil
}

func (p *Postgres) query(ctx context.Context, q string, args ...any) ([]booking.Booking, error) {
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Booking
	for rows.Next() {
		b, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func one(row pgx.Row) (*booking.Booking, error) {
	b, err := scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, booking.ErrApplicationNotFound
	}
	return b, err
}

func scan(row pgx.Row) (*booking.Booking, error) {
	var (
		b           booking.Booking
		id          uuid.UUID
		track       string
		interviewer pgtype.Text
		day         pgtype.Date
		start, end  pgtype.Time
		status      pgtype.Text
	)
	if err := row.Scan(&id, &track, &b.ApplicantID, &b.Email, &b.Name,
		&interviewer, &day, &start, &end, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.ID = id.String()
	b.Track = booking.Track(track)
	b.Status = booking.Status(status.String)
	if interviewer.Valid && day.Valid && start.Valid && end.Valid {
		b.Slot = &booking.SlotKey{
			Interviewer: interviewer.String,
			Day:         booking.DateOf(day.Time),
			Start:       clockOf(start),
			End:         clockOf(end),
		}
	}
	return &b, nil
}

func dateArg(d booking.Date) pgtype.Date {
	return pgtype.Date{Time: d.Time(), Valid: true}
}

func clockArg(c booking.Clock) pgtype.Time {
	return pgtype.Time{Microseconds: c.Duration().Microseconds(), Valid: true}
}

func clockOf(t pgtype.Time) booking.Clock {
	return booking.Clock(time.Duration(t.Microseconds) * time.Microsecond / time.Minute)
}
