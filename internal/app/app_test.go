package app

import (
	"context"
	"errors"
	"testing"

	"github.com/kavi0/sherpa/internal/config"
	"github.com/kavi0/sherpa/internal/log"
)

func TestClose_PartialApp(t *testing.T) {
	// Setup cleans up after itself on failure, so Close must tolerate
	// any subset of fields being populated.
	tests := []struct {
		name string
		app  *App
	}{
		{"zero value", &App{}},
		{"logger only", &App{Logger: log.NewNop()}},
		{"trace shutdown only", &App{
			Logger:        log.NewNop(),
			traceShutdown: func(context.Context) error { return nil },
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.app.Close(); err != nil {
				t.Errorf("Close() = %v, want nil", err)
			}
		})
	}
}

func TestSetup_NilConfig(t *testing.T) {
	_, err := Setup(context.Background(), nil, log.NewNop())
	if err == nil {
		t.Fatal("Setup with nil config succeeded")
	}
	if !errors.Is(err, config.ErrConfigNil) {
		t.Errorf("err = %v, want ErrConfigNil", err)
	}
}
