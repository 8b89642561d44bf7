package billing

import (
	"encoding/json"
	"fmt"
	"strings"

	"erpsaas/internal/apperr"
	"erpsaas/internal/model"
)

// Product metadata keys. The provider stores only flat string values, so
// structured values are JSON-encoded.
const (
	metaFeatures    = "features"
	metaAccessRoles = "access_roles"
	metaLimits      = "limits"

	// provider limit on a single metadata value
	maxMetadataValueLen = 500
)

// PlanMetadata is the typed view of the entitlements attached to a product.
type PlanMetadata struct {
	Features    []string         `json:"features"`
	AccessRoles []string         `json:"accessRoles"`
	Limits      model.PlanLimits `json:"limits"`
}

// Encode flattens m into provider metadata.
func (m PlanMetadata) Encode() (map[string]string, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	out := make(map[string]string, 3)
	for key, v := range map[string]any{
		metaFeatures:    nonNil(m.Features),
		metaAccessRoles: nonNil(m.AccessRoles),
		metaLimits:      m.Limits,
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s metadata: %w", key, err)
		}
		if len(b) > maxMetadataValueLen {
			return nil, apperr.Validation("%s metadata exceeds %d characters", key, maxMetadataValueLen)
		}
		out[key] = string(b)
	}
	return out, nil
}

// ParseMetadata reads metadata written by Encode. Absent keys yield zero
// values; malformed or out-of-range values are rejected.
func ParseMetadata(md map[string]string) (PlanMetadata, error) {
	var m PlanMetadata
	if v, ok := md[metaFeatures]; ok && v != "" {
		if err := json.Unmarshal([]byte(v), &m.Features); err != nil {
			return PlanMetadata{}, fmt.Errorf("parse %s metadata: %w", metaFeatures, err)
		}
	}
	if v, ok := md[metaAccessRoles]; ok && v != "" {
		if err := json.Unmarshal([]byte(v), &m.AccessRoles); err != nil {
			return PlanMetadata{}, fmt.Errorf("parse %s metadata: %w", metaAccessRoles, err)
		}
	}
	if v, ok := md[metaLimits]; ok && v != "" {
		dec := json.NewDecoder(strings.NewReader(v))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m.Limits); err != nil {
			return PlanMetadata{}, fmt.Errorf("parse %s metadata: %w", metaLimits, err)
		}
	}
	if err := m.validate(); err != nil {
		return PlanMetadata{}, err
	}
	m.Features = nonNil(m.Features)
	m.AccessRoles = nonNil(m.AccessRoles)
	return m, nil
}

func (m PlanMetadata) validate() error {
	l := m.Limits
	for name, v := range map[string]int{
		"users":      l.Users,
		"quotations": l.Quotations,
		"invoices":   l.Invoices,
		"suppliers":  l.Suppliers,
		"customers":  l.Customers,
	} {
		if v < -1 {
			return apperr.Validation("limit %s must be -1 (unlimited) or greater, got %d", name, v)
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
