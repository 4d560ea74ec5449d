package services_test

import (
	"context"
	"testing"

	"lapse/internal/services"
)

func TestContextRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		set   func(context.Context, string) context.Context
		get   func(context.Context) (string, bool)
		value string
	}{
		{"job", services.WithJobID, services.JobIDFromContext, "job-42"},
		{"stage", services.WithStage, services.StageFromContext, "encode"},
		{"camera", services.WithCamera, services.CameraFromContext, "Bed Cam"},
		{"request", services.WithRequestID, services.RequestIDFromContext, "req-123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := tc.set(context.Background(), tc.value)
			got, ok := tc.get(ctx)
			if !ok || got != tc.value {
				t.Fatalf("got %q, %v; want %q", got, ok, tc.value)
			}
			if _, ok := tc.get(tc.set(context.Background(), "  ")); ok {
				t.Fatal("blank value should not be stored")
			}
		})
	}
}

func TestContextValuesAreIndependent(t *testing.T) {
	ctx := services.WithCamera(services.WithJobID(context.Background(), "job-1"), "Front")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("stage should be unset")
	}
	if id, _ := services.JobIDFromContext(services.WithCamera(ctx, "Side")); id != "job-1" {
		t.Fatalf("job id lost after overriding camera: %q", id)
	}
}
