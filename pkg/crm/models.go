// Package crm provides read-only access to customer, purchase, warranty,
// and service-record data. Two backends ship: a PostgreSQL client for
// production and an in-memory fixture for development and tests.
package crm

import (
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

type customerRow struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	CustomerID string `bun:"customer_id,pk"`
	Name       string `bun:"name"`
	Email      string `bun:"email"`
	Phone      string `bun:"phone"`
	Address    string `bun:"address"`
}

type purchaseRow struct {
	bun.BaseModel `bun:"table:purchases,alias:p"`

	ProductID       string    `bun:"product_id,pk"`
	SerialNumber    string    `bun:"serial_number"`
	ProductName     string    `bun:"product_name"`
	CustomerID      string    `bun:"customer_id"`
	PurchaseDate    time.Time `bun:"purchase_date"`
	WarrantyEndDate time.Time `bun:"warranty_end_date"`
	WarrantyType    string    `bun:"warranty_type"`
	Status          string    `bun:"status"`
}

type serviceRecordRow struct {
	bun.BaseModel `bun:"table:service_records,alias:s"`

	RecordID     string    `bun:"record_id,pk"`
	SerialNumber string    `bun:"serial_number"`
	CustomerID   string    `bun:"customer_id"`
	ServiceDate  time.Time `bun:"service_date"`
	ServiceType  string    `bun:"service_type"`
	Description  string    `bun:"description"`
	Technician   string    `bun:"technician"`
	Status       string    `bun:"status"`
}

func (r customerRow) toContract() contractx.CustomerRecord {
	return contractx.CustomerRecord{
		CustomerID: r.CustomerID,
		Name:       r.Name,
		Email:      r.Email,
		Phone:      r.Phone,
		Address:    r.Address,
	}
}

func (r purchaseRow) toContract() contractx.Purchase {
	return contractx.Purchase{
		ProductID:       r.ProductID,
		SerialNumber:    r.SerialNumber,
		ProductName:     r.ProductName,
		CustomerID:      r.CustomerID,
		PurchaseDate:    r.PurchaseDate,
		WarrantyEndDate: r.WarrantyEndDate,
		WarrantyType:    contractx.WarrantyType(r.WarrantyType),
		Status:          r.Status,
	}
}

func (r serviceRecordRow) toContract() contractx.ServiceRecord {
	return contractx.ServiceRecord{
		RecordID:     r.RecordID,
		SerialNumber: r.SerialNumber,
		CustomerID:   r.CustomerID,
		ServiceDate:  r.ServiceDate,
		ServiceType:  r.ServiceType,
		Description:  r.Description,
		Technician:   r.Technician,
		Status:       r.Status,
	}
}
