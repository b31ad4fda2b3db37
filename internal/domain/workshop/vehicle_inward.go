package workshop

import (
	"time"

	"github.com/google/uuid"

	"github.com/zoravo/oms/internal/domain/shared"
)

// InwardStatus represents the service progress of a vehicle intake record
type InwardStatus string

const (
	InwardStatusOpen       InwardStatus = "open"        // Vehicle received, work not started
	InwardStatusInProgress InwardStatus = "in_progress" // Work underway
	InwardStatusCompleted  InwardStatus = "completed"   // Work done, ready for billing/delivery
	InwardStatusDelivered  InwardStatus = "delivered"   // Vehicle handed back to the customer
)

// IsValid checks if the status is a valid InwardStatus
func (s InwardStatus) IsValid() bool {
	switch s {
	case InwardStatusOpen, InwardStatusInProgress, InwardStatusCompleted, InwardStatusDelivered:
		return true
	}
	return false
}

// String returns the string representation of InwardStatus
func (s InwardStatus) String() string {
	return string(s)
}

// VehicleInward is the service-intake record invoices are created against.
// It anchors one customer vehicle visit: the vehicle, who brought it in and
// when, and how far along the work is.
type VehicleInward struct {
	shared.TenantAggregateRoot
	VehicleID     uuid.UUID    `json:"vehicle_id"`
	VehicleNumber string       `json:"vehicle_number"`
	CustomerName  string       `json:"customer_name"`
	CustomerPhone string       `json:"customer_phone,omitempty"`
	Status        InwardStatus `json:"status"`
	InwardDate    time.Time    `json:"inward_date"`
	Notes         string       `json:"notes,omitempty"`
}

// NewVehicleInward creates a new intake record in the open state
func NewVehicleInward(
	tenantID uuid.UUID,
	vehicleID uuid.UUID,
	vehicleNumber string,
	customerName string,
	customerPhone string,
	inwardDate time.Time,
	notes string,
) (*VehicleInward, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrTenantRequired
	}
	if vehicleNumber == "" {
		return nil, shared.NewDomainError("INVALID_VEHICLE_NUMBER", "Vehicle number cannot be empty")
	}
	if customerName == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if inwardDate.IsZero() {
		inwardDate = time.Now()
	}

	return &VehicleInward{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		VehicleID:           vehicleID,
		VehicleNumber:       vehicleNumber,
		CustomerName:        customerName,
		CustomerPhone:       customerPhone,
		Status:              InwardStatusOpen,
		InwardDate:          inwardDate,
		Notes:               notes,
	}, nil
}

// UpdateStatus moves the record to the given status
func (v *VehicleInward) UpdateStatus(status InwardStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Inward status is not valid")
	}
	v.Status = status
	v.UpdatedAt = time.Now()
	v.IncrementVersion()
	return nil
}

// IsDelivered returns true once the vehicle has been handed back
func (v *VehicleInward) IsDelivered() bool {
	return v.Status == InwardStatusDelivered
}
