// Package snapshot freezes payee and payer details onto an invoice at
// confirmation. Snapshots are plain values; once encoded they are never
// rebuilt from master data.
package snapshot

import (
	"encoding/json"
	"fmt"

	companydomain "github.com/smallbiznis/invoiceflow/internal/company/domain"
	freelancerdomain "github.com/smallbiznis/invoiceflow/internal/freelancer/domain"
	"gorm.io/datatypes"
)

type Freelancer struct {
	Name               string  `json:"name"`
	PostalCode         string  `json:"postalCode"`
	Address            string  `json:"address"`
	Phone              string  `json:"phone"`
	RegistrationNumber *string `json:"registrationNumber,omitempty"`
	BankName           string  `json:"bankName"`
	BankBranch         string  `json:"bankBranch"`
	AccountType        string  `json:"accountType"`
	AccountNumber      string  `json:"accountNumber"`
	AccountHolder      string  `json:"accountHolder"`
}

type Company struct {
	CompanyName string `json:"companyName"`
	PostalCode  string `json:"postalCode"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

func FromFreelancer(f freelancerdomain.Freelancer) Freelancer {
	var registration *string
	if f.RegistrationNumber != nil {
		v := *f.RegistrationNumber
		registration = &v
	}
	return Freelancer{
		Name:               f.Name,
		PostalCode:         f.PostalCode,
		Address:            f.Address,
		Phone:              f.Phone,
		RegistrationNumber: registration,
		BankName:           f.BankName,
		BankBranch:         f.BankBranch,
		AccountType:        string(f.AccountType),
		AccountNumber:      f.AccountNumber,
		AccountHolder:      f.AccountHolder,
	}
}

func FromCompany(c companydomain.CompanyInfo) Company {
	return Company{
		CompanyName: c.CompanyName,
		PostalCode:  c.PostalCode,
		Address:     c.Address,
		Phone:       c.Phone,
		Email:       c.Email,
	}
}

func Encode[T Freelancer | Company](v T) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// Decode returns nil when the invoice has not been confirmed yet.
func Decode[T Freelancer | Company](raw datatypes.JSON) (*T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &out, nil
}
