package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/zoravo/oms/internal/domain/workshop"
)

// VehicleInwardModel is the persistence model for the VehicleInward aggregate root.
type VehicleInwardModel struct {
	TenantAggregateModel
	VehicleID     uuid.UUID             `gorm:"type:uuid;index"`
	VehicleNumber string                `gorm:"type:varchar(50);not null;index"`
	CustomerName  string                `gorm:"type:varchar(200);not null"`
	CustomerPhone string                `gorm:"type:varchar(50)"`
	Status        workshop.InwardStatus `gorm:"type:varchar(20);not null;default:'open';index"`
	InwardDate    time.Time             `gorm:"not null;index"`
	Notes         string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (VehicleInwardModel) TableName() string {
	return "vehicle_inwards"
}

// ToDomain converts the persistence model to a domain VehicleInward entity.
func (m *VehicleInwardModel) ToDomain() *workshop.VehicleInward {
	inward := &workshop.VehicleInward{
		VehicleID:     m.VehicleID,
		VehicleNumber: m.VehicleNumber,
		CustomerName:  m.CustomerName,
		CustomerPhone: m.CustomerPhone,
		Status:        m.Status,
		InwardDate:    m.InwardDate,
		Notes:         m.Notes,
	}
	m.PopulateTenantAggregateRoot(&inward.TenantAggregateRoot)
	return inward
}

// FromDomain populates the persistence model from a domain VehicleInward entity.
func (m *VehicleInwardModel) FromDomain(inward *workshop.VehicleInward) {
	m.FromDomainTenantAggregateRoot(inward.TenantAggregateRoot)
	m.VehicleID = inward.VehicleID
	m.VehicleNumber = inward.VehicleNumber
	m.CustomerName = inward.CustomerName
	m.CustomerPhone = inward.CustomerPhone
	m.Status = inward.Status
	m.InwardDate = inward.InwardDate
	m.Notes = inward.Notes
}

// VehicleInwardModelFromDomain creates a new persistence model from a domain VehicleInward entity.
func VehicleInwardModelFromDomain(inward *workshop.VehicleInward) *VehicleInwardModel {
	m := &VehicleInwardModel{}
	m.FromDomain(inward)
	return m
}
