package enums

import "fmt"

// ProductTypeStatus is the lifecycle state of a product type. Types are never
// removed; INACTIVE replaces deletion.
type ProductTypeStatus string

const (
	ProductTypeStatusActive   ProductTypeStatus = "ACTIVE"
	ProductTypeStatusInactive ProductTypeStatus = "INACTIVE"
)

var validProductTypeStatuses = []ProductTypeStatus{
	ProductTypeStatusActive,
	ProductTypeStatusInactive,
}

func (s ProductTypeStatus) String() string {
	return string(s)
}

func (s ProductTypeStatus) IsValid() bool {
	for _, candidate := range validProductTypeStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive maps the state onto the stored is_active column.
func (s ProductTypeStatus) IsActive() bool {
	return s == ProductTypeStatusActive
}

// ProductTypeStatusFromActive maps the stored is_active column onto the state.
func ProductTypeStatusFromActive(active bool) ProductTypeStatus {
	if active {
		return ProductTypeStatusActive
	}
	return ProductTypeStatusInactive
}

func ParseProductTypeStatus(value string) (ProductTypeStatus, error) {
	for _, candidate := range validProductTypeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type status %q", value)
}
