package flagx

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	known := []string{"-a", "-api-url", "-store", "-log-level"}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "separate values",
			args: []string{"-a", "http://localhost:3001/api", "-c", "carpool.json"},
			want: []string{"-a", "http://localhost:3001/api"},
		},
		{
			name: "equals form",
			args: []string{"-store=redis", "-env", "prod.env"},
			want: []string{"-store=redis"},
		},
		{
			name: "order preserved",
			args: []string{"-log-level", "debug", "-x", "1", "-api-url=http://api"},
			want: []string{"-log-level", "debug", "-api-url=http://api"},
		},
		{
			name: "unknown only",
			args: []string{"-c", "x.json", "--env=.env", "positional"},
			want: []string{},
		},
		{
			name: "trailing flag without value",
			args: []string{"-store"},
			want: []string{"-store"},
		},
		{
			name: "next token is a flag",
			args: []string{"-a", "-store", "memory"},
			want: []string{"-a", "-store", "memory"},
		},
		{
			name: "value starting with dash via equals",
			args: []string{"-a=-weird"},
			want: []string{"-a=-weird"},
		},
		{
			name: "repeated flag",
			args: []string{"-store", "sqlite", "-store", "redis"},
			want: []string{"-store", "sqlite", "-store", "redis"},
		},
		{
			name: "empty",
			args: nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, known)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FilterArgs() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short", []string{"-c", "/path/short.json"}, "/path/short.json"},
		{"long", []string{"-config", "/path/long.json"}, "/path/long.json"},
		{"equals", []string{"--config=/path/eq.json"}, "/path/eq.json"},
		{"unknown flags ignored", []string{"-x", "1", "-y", "2"}, ""},
		{"last wins", []string{"-c", "/path/1.json", "-config", "/path/2.json"}, "/path/2.json"},
		{"mixed with other flags", []string{"-api-url", "http://x", "-c", "c.json", "-log-level", "debug"}, "c.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigPath(tt.args))
		})
	}
}

func TestEnvFile(t *testing.T) {
	assert.Equal(t, ".env", EnvFile([]string{"-c", "x.json"}, ".env"))
	assert.Equal(t, "prod.env", EnvFile([]string{"-env", "prod.env"}, ".env"))
	assert.Equal(t, "", EnvFile(nil, ""))
}
