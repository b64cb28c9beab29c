package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ameet-kotian/citadel/model"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		value   string
		want    bool
	}{
		{"*", "anything", true},
		{"*", "a:b:c", true},
		{"document:readme", "document:readme", true},
		{"document:readme", "document:other", false},
		{"document:*", "document:readme", true},
		{"document:*", "document:a:b", true},
		{"document:*", "folder:readme", false},
		{"document:*:read", "document:readme:read", true},
		{"document:*:read", "document:readme:write", false},
		{"document:*:read", "document:read", false},
		{"user:*", "user:42", true},
		{"user:*", "user", true},
		{"a:b:c", "a:b", false},
		{"a:b", "a:b:c", false},
		{"", "", true},
		{"", "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, model.MatchPattern(tt.pattern, tt.value))
		})
	}
}

func TestMatchAny(t *testing.T) {
	patterns := []string{"service:billing", "user:*"}
	assert.True(t, model.MatchAny(patterns, "user:42"))
	assert.True(t, model.MatchAny(patterns, "service:billing"))
	assert.False(t, model.MatchAny(patterns, "service:payments"))
	assert.False(t, model.MatchAny(nil, "user:42"))
}

func TestAppliesTo_RequiresAllThreeDimensions(t *testing.T) {
	p := &model.Policy{
		SubjectPatterns:  []string{"user:*"},
		ResourcePatterns: []string{"document:*"},
		ActionPatterns:   []string{"read", "list"},
	}

	assert.True(t, p.AppliesTo("user:1", "document:readme", "read"))
	assert.True(t, p.AppliesTo("user:1", "document:readme", "list"))
	assert.False(t, p.AppliesTo("service:1", "document:readme", "read"))
	assert.False(t, p.AppliesTo("user:1", "folder:readme", "read"))
	assert.False(t, p.AppliesTo("user:1", "document:readme", "write"))
}
