package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionString(t *testing.T) {
	tests := []struct {
		name     string
		build    string
		tag      string
		commit   string
		expected string
	}{
		{name: "local build", tag: "v1.0.0", commit: "abc"},
		{name: "no identifier", build: "release"},
		{name: "tag wins", build: "release", tag: "v1.2.0", commit: "0123456789abcdef", expected: "Version release-v1.2.0"},
		{name: "short commit", build: "dev", commit: "0123456789abcdef", expected: "Version dev-0123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, versionString(tt.build, tt.tag, tt.commit))
		})
	}
}
