package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zoravo/oms/internal/domain/billing"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	TenantAggregateModel
	VehicleInwardID uuid.UUID              `gorm:"type:uuid;not null;index"`
	VehicleID       uuid.UUID              `gorm:"type:uuid;index"`
	CustomerName    string                 `gorm:"type:varchar(200)"`
	InvoiceNumber   *string                `gorm:"type:varchar(50);uniqueIndex:idx_invoice_tenant_number,where:invoice_number IS NOT NULL,priority:2"`
	Status          billing.InvoiceStatus  `gorm:"type:varchar(20);not null;default:'draft';index"`
	InvoiceDate     *time.Time             `gorm:"index"`
	DueDate         *time.Time             `gorm:"index"`
	Amount          decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	TotalAmount     decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	PaidAmount      decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	BalanceAmount   decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount  decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountReason  string                 `gorm:"type:varchar(500)"`
	TaxAmount       decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	Notes           string                 `gorm:"type:text"`
	LineItems       []InvoiceLineItemModel `gorm:"foreignKey:InvoiceID;references:ID"`
	IssuedAt        *time.Time
	CancelledAt     *time.Time
	CancelledReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		VehicleInwardID: m.VehicleInwardID,
		VehicleID:       m.VehicleID,
		CustomerName:    m.CustomerName,
		InvoiceNumber:   m.InvoiceNumber,
		Status:          m.Status,
		InvoiceDate:     m.InvoiceDate,
		DueDate:         m.DueDate,
		Amount:          m.Amount,
		TotalAmount:     m.TotalAmount,
		PaidAmount:      m.PaidAmount,
		BalanceAmount:   m.BalanceAmount,
		DiscountAmount:  m.DiscountAmount,
		DiscountReason:  m.DiscountReason,
		TaxAmount:       m.TaxAmount,
		Notes:           m.Notes,
		IssuedAt:        m.IssuedAt,
		CancelledAt:     m.CancelledAt,
		CancelledReason: m.CancelledReason,
		LineItems:       make([]billing.LineItem, len(m.LineItems)),
	}
	m.PopulateTenantAggregateRoot(&inv.TenantAggregateRoot)
	for i, li := range m.LineItems {
		inv.LineItems[i] = *li.ToDomain()
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	m.VehicleInwardID = inv.VehicleInwardID
	m.VehicleID = inv.VehicleID
	m.CustomerName = inv.CustomerName
	m.InvoiceNumber = inv.InvoiceNumber
	m.Status = inv.Status
	m.InvoiceDate = inv.InvoiceDate
	m.DueDate = inv.DueDate
	m.Amount = inv.Amount
	m.TotalAmount = inv.TotalAmount
	m.PaidAmount = inv.PaidAmount
	m.BalanceAmount = inv.BalanceAmount
	m.DiscountAmount = inv.DiscountAmount
	m.DiscountReason = inv.DiscountReason
	m.TaxAmount = inv.TaxAmount
	m.Notes = inv.Notes
	m.IssuedAt = inv.IssuedAt
	m.CancelledAt = inv.CancelledAt
	m.CancelledReason = inv.CancelledReason
	m.LineItems = make([]InvoiceLineItemModel, len(inv.LineItems))
	for i, li := range inv.LineItems {
		m.LineItems[i] = *InvoiceLineItemModelFromDomain(&li)
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice entity.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceLineItemModel is the persistence model for invoice line items.
type InvoiceLineItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Brand       string          `gorm:"type:varchar(100)"`
	Department  string          `gorm:"type:varchar(100)"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineItemModel) TableName() string {
	return "invoice_line_items"
}

// ToDomain converts the persistence model to a domain LineItem.
func (m *InvoiceLineItemModel) ToDomain() *billing.LineItem {
	return &billing.LineItem{
		ID:          m.ID,
		InvoiceID:   m.InvoiceID,
		TenantID:    m.TenantID,
		ProductName: m.ProductName,
		Brand:       m.Brand,
		Department:  m.Department,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		LineTotal:   m.LineTotal,
	}
}

// InvoiceLineItemModelFromDomain creates a new persistence model from a domain LineItem.
func InvoiceLineItemModelFromDomain(li *billing.LineItem) *InvoiceLineItemModel {
	return &InvoiceLineItemModel{
		ID:          li.ID,
		InvoiceID:   li.InvoiceID,
		TenantID:    li.TenantID,
		ProductName: li.ProductName,
		Brand:       li.Brand,
		Department:  li.Department,
		Quantity:    li.Quantity,
		UnitPrice:   li.UnitPrice,
		LineTotal:   li.LineTotal,
	}
}

// PaymentModel is the persistence model for payments recorded against invoices.
type PaymentModel struct {
	BaseModel
	InvoiceID       uuid.UUID           `gorm:"type:uuid;not null;index"`
	TenantID        uuid.UUID           `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	PaymentMode     billing.PaymentMode `gorm:"type:varchar(20);not null"`
	PaymentDate     time.Time           `gorm:"not null;index"`
	ReferenceNumber string              `gorm:"type:varchar(100)"`
	PaidBy          string              `gorm:"type:varchar(200)"`
	Notes           string              `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "invoice_payments"
}

// ToDomain converts the persistence model to a domain Payment.
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		BaseEntity:      m.BaseModel.ToDomain(),
		InvoiceID:       m.InvoiceID,
		TenantID:        m.TenantID,
		Amount:          m.Amount,
		PaymentMode:     m.PaymentMode,
		PaymentDate:     m.PaymentDate,
		ReferenceNumber: m.ReferenceNumber,
		PaidBy:          m.PaidBy,
		Notes:           m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Payment.
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.InvoiceID = p.InvoiceID
	m.TenantID = p.TenantID
	m.Amount = p.Amount
	m.PaymentMode = p.PaymentMode
	m.PaymentDate = p.PaymentDate
	m.ReferenceNumber = p.ReferenceNumber
	m.PaidBy = p.PaidBy
	m.Notes = p.Notes
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// InvoiceSequenceModel is the per-tenant invoice number counter. One row per
// tenant; allocation locks the row for the duration of the issuing transaction.
type InvoiceSequenceModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primary_key"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceSequenceModel) TableName() string {
	return "invoice_sequences"
}
