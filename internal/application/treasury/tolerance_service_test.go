package treasury

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/domain/treasury"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestToleranceService_GetToleranceSettings(t *testing.T) {
	companyID := uuid.New()

	t.Run("company override wins", func(t *testing.T) {
		reader := new(MockSettingsReader)
		reader.On("GetCompanyProfile", mock.Anything, companyID).Return(&treasury.CompanyProfile{
			ID:          companyID,
			CountryCode: "FR",
			Tolerance: treasury.ToleranceOverride{
				Percentage: decPtr("0.0100"),
				MaxAmount:  decPtr("1.00"),
			},
		}, nil)
		reader.On("GetCountrySettings", mock.Anything, "FR").Return(&treasury.CountryPaymentSettings{
			CountryCode:         "FR",
			ToleranceEnabled:    true,
			TolerancePercentage: decimal.RequireFromString("0.0020"),
			ToleranceMaxAmount:  decimal.RequireFromString("0.20"),
		}, nil)

		svc := NewToleranceService(reader, treasury.SystemDefaultTolerance(), nil)
		got, err := svc.GetToleranceSettings(context.Background(), companyID)
		require.NoError(t, err)
		assert.Equal(t, treasury.ToleranceSourceCompany, got.Source)
		assert.True(t, got.Enabled)
		assert.True(t, decimal.RequireFromString("1.00").Equal(got.MaxAmount))
	})

	t.Run("falls back to country", func(t *testing.T) {
		reader := new(MockSettingsReader)
		reader.On("GetCompanyProfile", mock.Anything, companyID).Return(&treasury.CompanyProfile{
			ID:          companyID,
			CountryCode: "DE",
		}, nil)
		reader.On("GetCountrySettings", mock.Anything, "DE").Return(&treasury.CountryPaymentSettings{
			CountryCode:         "DE",
			ToleranceEnabled:    false,
			TolerancePercentage: decimal.RequireFromString("0.0050"),
			ToleranceMaxAmount:  decimal.RequireFromString("0.50"),
		}, nil)

		svc := NewToleranceService(reader, treasury.SystemDefaultTolerance(), nil)
		got, err := svc.GetToleranceSettings(context.Background(), companyID)
		require.NoError(t, err)
		assert.Equal(t, treasury.ToleranceSourceCountry, got.Source)
		assert.False(t, got.Enabled)
	})

	t.Run("falls back to system default", func(t *testing.T) {
		reader := new(MockSettingsReader)
		reader.On("GetCompanyProfile", mock.Anything, companyID).Return(&treasury.CompanyProfile{
			ID:          companyID,
			CountryCode: "ES",
		}, nil)
		reader.On("GetCountrySettings", mock.Anything, "ES").Return(nil, nil)

		svc := NewToleranceService(reader, treasury.SystemDefaultTolerance(), nil)
		got, err := svc.GetToleranceSettings(context.Background(), companyID)
		require.NoError(t, err)
		assert.Equal(t, treasury.ToleranceSourceSystem, got.Source)
		assert.True(t, decimal.RequireFromString("0.0050").Equal(got.Percentage))
		assert.True(t, decimal.RequireFromString("0.50").Equal(got.MaxAmount))
	})

	t.Run("unknown company", func(t *testing.T) {
		reader := new(MockSettingsReader)
		reader.On("GetCompanyProfile", mock.Anything, companyID).Return(nil, nil)

		svc := NewToleranceService(reader, treasury.SystemDefaultTolerance(), nil)
		_, err := svc.GetToleranceSettings(context.Background(), companyID)
		kind, _ := shared.KindOf(err)
		assert.Equal(t, shared.KindNotFound, kind)
	})

	t.Run("store error propagates", func(t *testing.T) {
		reader := new(MockSettingsReader)
		reader.On("GetCompanyProfile", mock.Anything, companyID).Return(nil, errors.New("connection refused"))

		svc := NewToleranceService(reader, treasury.SystemDefaultTolerance(), nil)
		_, err := svc.GetToleranceSettings(context.Background(), companyID)
		assert.EqualError(t, err, "connection refused")
	})
}

func TestToleranceService_CheckTolerance(t *testing.T) {
	companyID := uuid.New()
	reader := new(MockSettingsReader)
	reader.On("GetCompanyProfile", mock.Anything, companyID).Return(&treasury.CompanyProfile{
		ID: companyID,
		Tolerance: treasury.ToleranceOverride{
			Percentage: decPtr("0.0050"),
			MaxAmount:  decPtr("0.10"),
		},
	}, nil)
	svc := NewToleranceService(reader, treasury.SystemDefaultTolerance(), nil)

	tests := []struct {
		name      string
		invoice   string
		payment   string
		qualifies bool
		reason    string
	}{
		{"within both thresholds", "100.00", "99.9500", true, treasury.ReasonWithinTolerance},
		{"percentage exceeded", "100.00", "99.00", false, treasury.ReasonPercentageExceeded},
		{"max amount exceeded", "1000.00", "999.80", false, treasury.ReasonMaxAmountExceeded},
		{"exact payment", "100.00", "100.00", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.CheckTolerance(context.Background(), CheckToleranceRequest{
				CompanyID:     companyID,
				InvoiceAmount: decimal.RequireFromString(tt.invoice),
				PaymentAmount: decimal.RequireFromString(tt.payment),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.qualifies, res.Qualifies)
			if tt.reason == "" {
				assert.Empty(t, res.Reason)
				assert.True(t, res.Difference.IsZero())
			} else {
				assert.Contains(t, res.Reason, tt.reason)
			}
		})
	}

	t.Run("negative amount", func(t *testing.T) {
		_, err := svc.CheckTolerance(context.Background(), CheckToleranceRequest{
			CompanyID:     companyID,
			InvoiceAmount: decimal.NewFromInt(-1),
			PaymentAmount: decimal.NewFromInt(1),
		})
		kind, _ := shared.KindOf(err)
		assert.Equal(t, shared.KindValidation, kind)
	})
}
