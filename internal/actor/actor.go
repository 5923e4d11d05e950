// Package actor describes who is calling into the services. Callers build an
// Actor from their own session layer and pass it explicitly.
package actor

import (
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleCompany    Role = "COMPANY"
	RoleFreelancer Role = "FREELANCER"
)

var ErrInvalidActor = errors.New("invalid_actor")

type Actor struct {
	UserID snowflake.ID
	Role   Role
	// FreelancerID is the freelancer profile a FREELANCER actor acts for.
	FreelancerID *snowflake.ID
}

func Company(userID snowflake.ID) Actor {
	return Actor{UserID: userID, Role: RoleCompany}
}

func Freelancer(userID, freelancerID snowflake.ID) Actor {
	id := freelancerID
	return Actor{UserID: userID, Role: RoleFreelancer, FreelancerID: &id}
}

func (a Actor) Validate() error {
	if a.UserID == 0 {
		return ErrInvalidActor
	}
	switch a.Role {
	case RoleCompany:
		return nil
	case RoleFreelancer:
		if a.FreelancerID == nil || *a.FreelancerID == 0 {
			return ErrInvalidActor
		}
		return nil
	default:
		return ErrInvalidActor
	}
}

func (a Actor) IsCompany() bool { return a.Role == RoleCompany }

func (a Actor) IsFreelancer() bool { return a.Role == RoleFreelancer }

// Owns reports whether a freelancer actor acts for freelancerID.
func (a Actor) Owns(freelancerID snowflake.ID) bool {
	return a.IsFreelancer() && a.FreelancerID != nil && *a.FreelancerID == freelancerID
}

// Subject is the casbin subject for the actor's role.
func (a Actor) Subject() string {
	return "role:" + strings.ToLower(string(a.Role))
}

// Type is the audit actor type.
func (a Actor) Type() string {
	return strings.ToLower(string(a.Role))
}
