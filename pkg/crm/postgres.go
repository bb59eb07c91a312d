package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

type PostgresConfig struct {
	DSN          string `envconfig:"DSN" split_words:"true" required:"true"`
	MaxOpenConns int    `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"8"`
}

// Postgres reads CRM data from a PostgreSQL database.
type Postgres struct {
	db  *bun.DB
	now func() time.Time
}

var _ contractx.CRM = (*Postgres)(nil)

type PostgresOption func(*Postgres)

func WithNow(now func() time.Time) PostgresOption {
	return func(p *Postgres) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPostgres(cfg PostgresConfig, opts ...PostgresOption) (*Postgres, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("crm: postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	db := bun.NewDB(sqldb, pgdialect.New())

	p := &Postgres{db: db, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) QueryCustomer(ctx context.Context, customerID string) (contractx.CustomerRecord, error) {
	var row customerRow
	err := p.db.NewSelect().
		Model(&row).
		Where("c.customer_id = ?", customerID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return contractx.CustomerRecord{}, fmt.Errorf("%w: customer %s", contractx.ErrCustomerNotFound, customerID)
		}
		return contractx.CustomerRecord{}, fmt.Errorf("%w: query customer: %v", contractx.ErrTransient, err)
	}

	record := row.toContract()

	var purchases []purchaseRow
	err = p.db.NewSelect().
		Model(&purchases).
		Where("p.customer_id = ?", customerID).
		Order("purchase_date DESC").
		Scan(ctx)
	if err != nil {
		return contractx.CustomerRecord{}, fmt.Errorf("%w: query customer purchases: %v", contractx.ErrTransient, err)
	}
	for _, pr := range purchases {
		record.Purchases = append(record.Purchases, pr.toContract())
	}

	return record, nil
}

func (p *Postgres) QueryPurchases(ctx context.Context, customerID string) ([]contractx.Purchase, error) {
	if _, err := p.QueryCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	var rows []purchaseRow
	err := p.db.NewSelect().
		Model(&rows).
		Where("p.customer_id = ?", customerID).
		Order("purchase_date DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: query purchases: %v", contractx.ErrTransient, err)
	}

	out := make([]contractx.Purchase, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toContract())
	}
	return out, nil
}

// QueryWarranty resolves ref as a product serial number first and falls back
// to treating it as a customer id, reporting that customer's most recent
// purchase.
func (p *Postgres) QueryWarranty(ctx context.Context, ref string) (contractx.WarrantyStatus, error) {
	var row purchaseRow
	err := p.db.NewSelect().
		Model(&row).
		Where("p.serial_number = ?", ref).
		Scan(ctx)
	if err == nil {
		return warrantyFromPurchase(p.now(), row.toContract()), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return contractx.WarrantyStatus{}, fmt.Errorf("%w: query warranty: %v", contractx.ErrTransient, err)
	}

	err = p.db.NewSelect().
		Model(&row).
		Where("p.customer_id = ?", ref).
		Order("purchase_date DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return contractx.WarrantyStatus{}, fmt.Errorf("%w: no purchase for %s", contractx.ErrProductNotFound, ref)
		}
		return contractx.WarrantyStatus{}, fmt.Errorf("%w: query warranty: %v", contractx.ErrTransient, err)
	}
	return warrantyFromPurchase(p.now(), row.toContract()), nil
}

func (p *Postgres) QueryServiceRecords(ctx context.Context, customerID string) ([]contractx.ServiceRecord, error) {
	if _, err := p.QueryCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	var rows []serviceRecordRow
	err := p.db.NewSelect().
		Model(&rows).
		Where("s.customer_id = ?", customerID).
		Order("service_date DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: query service records: %v", contractx.ErrTransient, err)
	}

	out := make([]contractx.ServiceRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toContract())
	}
	return out, nil
}
