package utils

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/vikasavnish/listinghub/internal/models"
	"github.com/vikasavnish/listinghub/internal/services"
)

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	if SessionFromContext(ctx) != nil || ViewerFromContext(ctx) != nil {
		t.Fatalf("expected empty context to have no session")
	}

	id := uuid.New()
	s := &services.Session{UserID: id, Role: models.RoleBuyer}
	u := &models.User{ID: id, Email: "buyer@test.dev", Role: models.RoleBuyer}
	ctx = WithSession(ctx, s, u)

	if got := SessionFromContext(ctx); got != s {
		t.Fatalf("session = %v, want %v", got, s)
	}
	if got := ViewerFromContext(ctx); got != u {
		t.Fatalf("viewer = %v, want %v", got, u)
	}
}
