package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/zeltonlabs/zelton/internal/ledger/domain"
	"gorm.io/gorm"
)

type invoiceRepo struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) domain.InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) GetOrCreateForPayment(ctx context.Context, db *gorm.DB, inv *domain.Invoice) (*domain.Invoice, bool, error) {
	if db == nil {
		db = r.db
	}
	if inv.PaymentID == nil {
		return nil, false, errors.New("invoice requires a payment reference")
	}

	var existing domain.Invoice
	err := db.WithContext(ctx).First(&existing, "payment_id = ?", *inv.PaymentID).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if err := db.WithContext(ctx).Create(inv).Error; err != nil {
		// A concurrent completion may have inserted first; the unique
		// index on payment_id turns the race into a re-read.
		var again domain.Invoice
		if ferr := db.WithContext(ctx).First(&again, "payment_id = ?", *inv.PaymentID).Error; ferr == nil {
			return &again, false, nil
		}
		return nil, false, err
	}
	return inv, true, nil
}

func (r *invoiceRepo) FindByPaymentID(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (*domain.Invoice, error) {
	if db == nil {
		db = r.db
	}
	var inv domain.Invoice
	err := db.WithContext(ctx).First(&inv, "payment_id = ?", paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
