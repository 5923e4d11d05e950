package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiceflow/internal/actor"
	"github.com/smallbiznis/invoiceflow/pkg/apperror"
	"github.com/smallbiznis/invoiceflow/pkg/db/pagination"
	"github.com/smallbiznis/invoiceflow/pkg/repository"
)

type Repository = repository.Repository[Freelancer]

type CreateFreelancerRequest struct {
	UserID                *snowflake.ID
	Name                  string
	NameKana              string
	Email                 string
	Phone                 string
	PostalCode            string
	Address               string
	RegistrationNumber    string
	BankName              string
	BankBranch            string
	AccountType           AccountType
	AccountNumber         string
	AccountHolder         string
	WithholdingTaxDefault *bool
	Status                Status
}

// UpdateFreelancerRequest applies only the non-nil fields. An empty string
// clears NameKana and RegistrationNumber.
type UpdateFreelancerRequest struct {
	Name                  *string
	NameKana              *string
	Email                 *string
	Phone                 *string
	PostalCode            *string
	Address               *string
	RegistrationNumber    *string
	BankName              *string
	BankBranch            *string
	AccountType           *AccountType
	AccountNumber         *string
	AccountHolder         *string
	WithholdingTaxDefault *bool
	Status                *Status
}

type ListFreelancerRequest struct {
	pagination.Pagination
	Status Status
	Name   string
}

type ListFreelancerResponse struct {
	pagination.PageInfo
	Freelancers []Freelancer `json:"freelancers"`
}

type Service interface {
	Create(ctx context.Context, a actor.Actor, req CreateFreelancerRequest) (Freelancer, error)
	Update(ctx context.Context, a actor.Actor, id snowflake.ID, req UpdateFreelancerRequest) (Freelancer, error)
	Get(ctx context.Context, a actor.Actor, id snowflake.ID) (Freelancer, error)
	List(ctx context.Context, a actor.Actor, req ListFreelancerRequest) (ListFreelancerResponse, error)
	Delete(ctx context.Context, a actor.Actor, id snowflake.ID) error
	// FindByUserID resolves the profile linked to a login user.
	FindByUserID(ctx context.Context, userID snowflake.ID) (Freelancer, error)
}

var (
	ErrFreelancerNotFound = apperror.NotFound("freelancer_not_found")
	ErrEmailTaken         = errors.New("freelancer_email_taken")
	ErrFreelancerInUse    = errors.New("freelancer_in_use")
	ErrInvalidPageToken   = apperror.NewValidation("pageToken", "invalid_page_token")
)
