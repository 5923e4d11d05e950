package actor

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, Company(1).Validate())
	assert.NoError(t, Freelancer(2, 3).Validate())

	assert.ErrorIs(t, Actor{Role: RoleCompany}.Validate(), ErrInvalidActor)
	assert.ErrorIs(t, Actor{UserID: 2, Role: RoleFreelancer}.Validate(), ErrInvalidActor)
	assert.ErrorIs(t, Actor{UserID: 2, Role: "ADMIN"}.Validate(), ErrInvalidActor)
}

func TestOwns(t *testing.T) {
	f := Freelancer(2, 3)
	assert.True(t, f.Owns(snowflake.ID(3)))
	assert.False(t, f.Owns(snowflake.ID(4)))
	assert.False(t, Company(1).Owns(snowflake.ID(3)))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "role:company", Company(1).Subject())
	assert.Equal(t, "role:freelancer", Freelancer(1, 2).Subject())
	assert.Equal(t, "freelancer", Freelancer(1, 2).Type())
}
