package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-admin/internal/model"
)

type CollectionRepo struct{ db *sql.DB }

func NewCollectionRepo(db *sql.DB) *CollectionRepo { return &CollectionRepo{db: db} }

// CollectionFilter narrows List by status and created_at range.
type CollectionFilter struct {
	Status   string
	From, To *time.Time
}

const collectionColumns = `id, customer_name, mobile_no, given_amount, reference_by, adhar_card, pan_card,
	loan_amount, per_day_collection, total_due_installment, day_for_loan,
	total_paid_amount, total_paid_installment, remaining_balance, remaining_installments, loan_status,
	closed_at, created_by, created_at, updated_at`

func scanCollection(row rowScanner) (model.Collection, error) {
	var (
		c          model.Collection
		adhar, pan sql.NullString
		closedAt   sql.NullTime
		createdBy  sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.CustomerName, &c.MobileNo, &c.GivenAmount, &c.ReferenceBy, &adhar, &pan,
		&c.LoanAmount, &c.PerDayCollection, &c.TotalDueInstallment, &c.DayForLoan,
		&c.TotalPaidAmount, &c.TotalPaidInstallment, &c.RemainingBalance, &c.RemainingInstallments, &c.Status,
		&closedAt, &createdBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Collection{}, err
	}
	if adhar.Valid {
		c.AdharCard = &adhar.String
	}
	if pan.Valid {
		c.PanCard = &pan.String
	}
	if closedAt.Valid {
		t := closedAt.Time
		c.ClosedAt = &t
	}
	c.CreatedBy = nullID(createdBy)
	return c, nil
}

func (r *CollectionRepo) Create(ctx context.Context, c *model.Collection) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO collections (customer_name, mobile_no, given_amount, reference_by, adhar_card, pan_card,
		 loan_amount, per_day_collection, total_due_installment, day_for_loan,
		 total_paid_amount, total_paid_installment, remaining_balance, remaining_installments, loan_status, closed_at, created_by)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.CustomerName, c.MobileNo, c.GivenAmount, c.ReferenceBy, c.AdharCard, c.PanCard,
		c.LoanAmount, c.PerDayCollection, c.TotalDueInstallment, c.DayForLoan,
		c.TotalPaidAmount, c.TotalPaidInstallment, c.RemainingBalance, c.RemainingInstallments, c.Status, c.ClosedAt, c.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return r.db.QueryRowContext(ctx, `SELECT created_at, updated_at FROM collections WHERE id = ?`, c.ID).
		Scan(&c.CreatedAt, &c.UpdatedAt)
}

// Get returns a record with its installment history.
func (r *CollectionRepo) Get(ctx context.Context, id uint64) (model.Collection, error) {
	c, err := scanCollection(r.db.QueryRowContext(ctx, `SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id))
	if err != nil {
		return model.Collection{}, notFound(err)
	}
	c.Installments, err = r.installments(ctx, id)
	if err != nil {
		return model.Collection{}, err
	}
	return c, nil
}

// List returns matching records, newest first, without installment history.
func (r *CollectionRepo) List(ctx context.Context, f CollectionFilter) ([]model.Collection, error) {
	where := []string{}
	args := []any{}
	if f.Status != "" {
		where = append(where, "loan_status = ?")
		args = append(args, f.Status)
	}
	if f.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		where = append(where, "created_at <= ?")
		args = append(args, *f.To)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE `+cond+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Installments returns the history of one record, oldest first.
func (r *CollectionRepo) Installments(ctx context.Context, id uint64) ([]model.Installment, error) {
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM collections WHERE id = ?`, id).Scan(&exists); err != nil {
		return nil, notFound(err)
	}
	return r.installments(ctx, id)
}

func (r *CollectionRepo) installments(ctx context.Context, id uint64) ([]model.Installment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount, paid_at FROM collection_installments WHERE collection_id = ? ORDER BY paid_at, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Installment{}
	for rows.Next() {
		var in model.Installment
		if err := rows.Scan(&in.ID, &in.Amount, &in.PaidAt); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// Update writes customer details, terms and the derived state.
func (r *CollectionRepo) Update(ctx context.Context, c *model.Collection) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE collections SET customer_name = ?, mobile_no = ?, given_amount = ?, reference_by = ?, adhar_card = ?, pan_card = ?,
		 loan_amount = ?, per_day_collection = ?, total_due_installment = ?, day_for_loan = ?,
		 remaining_balance = ?, remaining_installments = ?, loan_status = ?, closed_at = ?
		 WHERE id = ?`,
		c.CustomerName, c.MobileNo, c.GivenAmount, c.ReferenceBy, c.AdharCard, c.PanCard,
		c.LoanAmount, c.PerDayCollection, c.TotalDueInstallment, c.DayForLoan,
		c.RemainingBalance, c.RemainingInstallments, c.Status, c.ClosedAt, c.ID)
	return err
}

// AppendInstallment stores one payment together with the totals and derived
// state already computed for it.
func (r *CollectionRepo) AppendInstallment(ctx context.Context, c *model.Collection, in *model.Installment) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO collection_installments (collection_id, amount, paid_at) VALUES (?,?,?)`,
			c.ID, in.Amount, in.PaidAt)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		in.ID = uint64(id)
		_, err = tx.ExecContext(ctx,
			`UPDATE collections SET total_paid_amount = ?, total_paid_installment = ?,
			 remaining_balance = ?, remaining_installments = ?, loan_status = ?, closed_at = ?
			 WHERE id = ?`,
			c.TotalPaidAmount, c.TotalPaidInstallment,
			c.RemainingBalance, c.RemainingInstallments, c.Status, c.ClosedAt, c.ID)
		return err
	})
}

func (r *CollectionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Dashboard aggregates the whole ledger in one pass.
func (r *CollectionRepo) Dashboard(ctx context.Context) (model.CollectionDashboard, error) {
	var d model.CollectionDashboard
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(loan_status = 'open'), 0),
		        COALESCE(SUM(loan_status = 'closed'), 0),
		        COALESCE(SUM(loan_amount), 0),
		        COALESCE(SUM(total_paid_amount), 0),
		        COALESCE(SUM(remaining_balance), 0),
		        COUNT(DISTINCT mobile_no)
		 FROM collections`).
		Scan(&d.TotalLoans, &d.OpenLoans, &d.ClosedLoans, &d.TotalLoanAmount, &d.TotalCollected, &d.TotalOutstanding, &d.TotalUsers)
	return d, err
}

// YearlyLoanAmount sums loan_amount per month of creation. All twelve months
// are returned, zero-filled.
func (r *CollectionRepo) YearlyLoanAmount(ctx context.Context, year int) ([]model.MonthlyAmount, error) {
	out := make([]model.MonthlyAmount, 12)
	for i := range out {
		out[i] = model.MonthlyAmount{Month: i + 1, Amount: decimal.Zero}
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT MONTH(created_at), COALESCE(SUM(loan_amount), 0) FROM collections
		 WHERE YEAR(created_at) = ? GROUP BY MONTH(created_at)`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			month  int
			amount decimal.Decimal
		)
		if err := rows.Scan(&month, &amount); err != nil {
			return nil, err
		}
		if month >= 1 && month <= 12 {
			out[month-1].Amount = amount
		}
	}
	return out, rows.Err()
}

// YearlyStatusCounts counts records opened (by created_at) and closed (by
// closed_at) per month.
func (r *CollectionRepo) YearlyStatusCounts(ctx context.Context, year int) ([]model.MonthlyStatus, error) {
	out := make([]model.MonthlyStatus, 12)
	for i := range out {
		out[i].Month = i + 1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT 'opened', MONTH(created_at), COUNT(*) FROM collections WHERE YEAR(created_at) = ? GROUP BY MONTH(created_at)
		 UNION ALL
		 SELECT 'closed', MONTH(closed_at), COUNT(*) FROM collections WHERE closed_at IS NOT NULL AND YEAR(closed_at) = ? GROUP BY MONTH(closed_at)`,
		year, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			kind         string
			month, count int
		)
		if err := rows.Scan(&kind, &month, &count); err != nil {
			return nil, err
		}
		if month < 1 || month > 12 {
			continue
		}
		if kind == "opened" {
			out[month-1].Opened = count
		} else {
			out[month-1].Closed = count
		}
	}
	return out, rows.Err()
}
