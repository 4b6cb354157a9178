package model_test

import (
	"testing"

	"github.com/mkurata/docship/pkg/domain/model"
)

func TestEventContext_IsSupportedEvent(t *testing.T) {
	tests := []struct {
		name     string
		event    *model.EventContext
		expected bool
	}{
		{
			name:     "Push event - supported",
			event:    &model.EventContext{Type: model.EventTypePush, Branch: "dev"},
			expected: true,
		},
		{
			name:     "Pull request event - supported",
			event:    &model.EventContext{Type: model.EventTypePullRequest, Branch: "feature/x"},
			expected: true,
		},
		{
			name:     "Unknown event type",
			event:    &model.EventContext{Type: model.EventTypeUnknown},
			expected: false,
		},
		{
			name:     "Different event type",
			event:    &model.EventContext{Type: model.EventType("issues")},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.event.IsSupportedEvent()
			if got != tt.expected {
				t.Errorf("IsSupportedEvent() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRepository_FullName(t *testing.T) {
	tests := []struct {
		name     string
		repo     model.Repository
		expected string
	}{
		{
			name:     "Owner and name",
			repo:     model.Repository{Owner: "acme", Name: "widgets"},
			expected: "acme/widgets",
		},
		{
			name:     "Name only",
			repo:     model.Repository{Name: "widgets"},
			expected: "widgets",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.repo.FullName(); got != tt.expected {
				t.Errorf("FullName() = %q, want %q", got, tt.expected)
			}
		})
	}
}
