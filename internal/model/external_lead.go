package model

// ExternalLeadRecord is the transient lead shape returned by the external API.
// It is never persisted as-is; the orchestrator validates, normalizes and maps
// it onto a Lead.
type ExternalLeadRecord struct {
	ID       string              `json:"id"`
	FullName string              `json:"fullName"`
	Phone    string              `json:"phone"`
	Status   string              `json:"status,omitempty"`
	Type     string              `json:"type,omitempty"` // "crm" or "marketing"
	Source   string              `json:"source,omitempty"`
	Details  *ExternalLeadDetail `json:"details,omitempty"`
}

// ExternalLeadDetail carries the type-specific payload for marketing leads.
type ExternalLeadDetail struct {
	AdditionalData map[string]string `json:"additionalData,omitempty"`
}

// AdditionalField returns a field from the detail payload, or empty when the
// payload is absent.
func (r *ExternalLeadRecord) AdditionalField(key string) string {
	if r.Details == nil || r.Details.AdditionalData == nil {
		return ""
	}
	return r.Details.AdditionalData[key]
}
