package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSupportFAQ_Grouped(t *testing.T) {
	groups := NewSupportUsecase(zap.NewNop()).FAQ()

	require.NotEmpty(t, groups)
	for _, g := range groups {
		assert.NotEmpty(t, g.Category)
		assert.NotEmpty(t, g.Items)
	}
}

func TestSupportContact_Logged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	uc := NewSupportUsecase(zap.New(core))

	err := uc.Contact(context.Background(), buyerID, ContactForm{
		Name:    "Lerato",
		Email:   "lerato@example.com",
		Subject: "Late delivery",
		Message: "My order has not arrived yet.",
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("support request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Late delivery", entries[0].ContextMap()["subject"])
	assert.Equal(t, buyerID, entries[0].ContextMap()["user_id"])
}

func TestSupportContact_Validation(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	uc := NewSupportUsecase(zap.New(core))

	err := uc.Contact(context.Background(), 0, ContactForm{Email: "nope"})

	ve, ok := AsValidationErrors(err)
	require.True(t, ok)
	assert.Equal(t, ValidationErrors{
		"Name is required",
		"Email address is not valid",
		"Subject is required",
		"Message is required",
	}, ve)
	assert.Zero(t, logs.Len())
}
