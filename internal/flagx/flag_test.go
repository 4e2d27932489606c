package flagx

import (
	"reflect"
	"testing"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-b", "bucket", "-x", "junk"},
			allowed: []string{"-b"},
			want:    []string{"-b", "bucket"},
		},
		{
			name:    "equals form",
			args:    []string{"--bucket=files", "--other=1"},
			allowed: []string{"--bucket"},
			want:    []string{"--bucket=files"},
		},
		{
			name:    "flag followed by another flag keeps no value",
			args:    []string{"-b", "-t", "table"},
			allowed: []string{"-b", "-t"},
			want:    []string{"-b", "-t", "table"},
		},
		{
			name:    "nothing allowed",
			args:    []string{"-a", "1", "-b", "2"},
			allowed: []string{},
			want:    []string{},
		},
		{
			name:    "empty args",
			args:    []string{},
			allowed: []string{"-b"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowed)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FilterArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}
