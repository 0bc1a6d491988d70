package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	serverFlags := []string{"-a", "-g", "-s", "-t", "-o", "-e", "-r", "-l"}

	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "server flags kept, bootstrap flags dropped",
			args:    []string{"-a", ":8000", "-c", "conf.json", "-g", ":50051", "-dev"},
			allowed: serverFlags,
			want:    []string{"-a", ":8000", "-g", ":50051"},
		},
		{
			name:    "equals form",
			args:    []string{"-e=http://localhost:8001", "--env-file=.env.local"},
			allowed: serverFlags,
			want:    []string{"-e=http://localhost:8001"},
		},
		{
			name:    "subcommand words are ignored",
			args:    []string{"users", "set-role", "ann@example.com", "admin", "--dev"},
			allowed: serverFlags,
			want:    []string{},
		},
		{
			name:    "missing value at the end",
			args:    []string{"-r"},
			allowed: serverFlags,
			want:    []string{"-r"},
		},
		{
			name:    "next flag is not taken as value",
			args:    []string{"-l", "-dev"},
			allowed: serverFlags,
			want:    []string{"-l"},
		},
		{
			name:    "value that looks like a flag in equals form",
			args:    []string{"--config=--odd.json"},
			allowed: []string{"--config"},
			want:    []string{"--config=--odd.json"},
		},
		{
			name:    "repeated flag keeps order",
			args:    []string{"-t", "15", "-t", "60"},
			allowed: serverFlags,
			want:    []string{"-t", "15", "-t", "60"},
		},
		{
			name:    "empty",
			args:    nil,
			allowed: serverFlags,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func Test_jsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short -c with value", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", "/path/short.json"}
		assert.Equal(t, "/path/short.json", JsonConfigFlags())
	})

	t.Run("long -config with value", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", "/path/long.json"}
		assert.Equal(t, "/path/long.json", JsonConfigFlags())
	})

	t.Run("unknown flags are ignored", func(t *testing.T) {
		os.Args = []string{"testbin", "-x", "1", "-y", "2"}
		assert.Empty(t, JsonConfigFlags())
	})

	t.Run("multiple flags, last wins", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", "/path/1.json", "-config", "/path/2.json"}
		assert.Equal(t, "/path/2.json", JsonConfigFlags())
	})
}

func TestLookupString(t *testing.T) {
	args := []string{"-x", "1", "-env-file", "prod.env", "--config=a.json"}
	assert.Equal(t, "prod.env", LookupString(args, "env-file"))
	assert.Equal(t, "a.json", LookupString(args, "c", "config"))
	assert.Empty(t, LookupString(args, "missing"))
}

func TestLookupBool(t *testing.T) {
	assert.True(t, LookupBool([]string{"-a", ":8000", "-dev"}, "dev"))
	assert.True(t, LookupBool([]string{"--dev=true"}, "dev"))
	assert.False(t, LookupBool([]string{"--dev=false"}, "dev"))
	assert.False(t, LookupBool([]string{"-a", "dev"}, "dev"))
	assert.False(t, LookupBool(nil, "dev"))
}

func Test_envFileFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin", "-env-file", "/etc/liberandum.env"}
	assert.Equal(t, "/etc/liberandum.env", EnvFileFlags())

	os.Args = []string{"testbin"}
	assert.Empty(t, EnvFileFlags())
}
