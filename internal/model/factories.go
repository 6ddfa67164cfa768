package model

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"gitlab.com/timkado/api/daisi-lead-sync/pkg/utils"
)

// init ensures gofakeit is seeded.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// NewSourceConfig creates a SourceConfig with fake but valid data for tests.
func NewSourceConfig(companyID string) *SourceConfig {
	return &SourceConfig{
		ID:                     uuid.New().String(),
		CompanyID:              companyID,
		ConfigName:             gofakeit.AppName(),
		BaseURL:                "https://" + gofakeit.DomainName(),
		APIKey:                 gofakeit.LetterN(32),
		LeadType:               "both",
		PollingEnabled:         true,
		PollingIntervalMinutes: gofakeit.Number(1, 60),
		IsActive:               true,
		ContactDelayMinutes:    1,
		LastImportStatus:       ImportStatusNever,
		CreatedAt:              utils.Now().Add(-time.Duration(gofakeit.Number(1, 100)) * time.Hour),
		UpdatedAt:              utils.Now(),
	}
}

// NewAgentConfig creates an AgentConfig with fake data for tests.
func NewAgentConfig(companyID string) *AgentConfig {
	return &AgentConfig{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		AgentName:   gofakeit.Username(),
		PhoneNumber: "+39" + gofakeit.DigitN(10),
		CreatedAt:   utils.Now(),
		UpdatedAt:   utils.Now(),
	}
}

// NewCampaign creates a Campaign with fake data for tests.
func NewCampaign(companyID string) *Campaign {
	return &Campaign{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      gofakeit.BuzzWord(),
		CreatedAt: utils.Now(),
		UpdatedAt: utils.Now(),
	}
}

// NewExternalLeadRecord creates an importable external record for tests.
func NewExternalLeadRecord() ExternalLeadRecord {
	return ExternalLeadRecord{
		ID:       uuid.New().String(),
		FullName: gofakeit.Name(),
		Phone:    "3" + gofakeit.DigitN(9),
		Status:   "new",
		Type:     "crm",
		Source:   gofakeit.RandomString([]string{"facebook", "landing-page", "referral"}),
	}
}
