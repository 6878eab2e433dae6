package tmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type channel struct {
	ID         string
	Name       string
	NumMembers int
	Emoji      []string
}

func TestRender(t *testing.T) {
	general := channel{ID: "C1", Name: "general", NumMembers: 90, Emoji: []string{"tada", "eyes"}}

	tests := []struct {
		name    string
		tmpl    string
		data    any
		want    string
		wantErr bool
	}{
		{
			name: "struct fields",
			tmpl: "#{{ .Name }} {{ .NumMembers }}",
			data: general,
			want: "#general 90",
		},
		{
			name: "pad",
			tmpl: "{{ pad 10 .Name }}|",
			data: general,
			want: "general   |",
		},
		{
			name: "pad never truncates",
			tmpl: "{{ pad 3 .Name }}|",
			data: general,
			want: "general|",
		},
		{
			name: "join",
			tmpl: `{{ join .Emoji "," }}`,
			data: general,
			want: "tada,eyes",
		},
		{
			name: "no variables",
			tmpl: "static string",
			data: nil,
			want: "static string",
		},
		{
			name:    "missing key errors",
			tmpl:    "{{ .Missing }}",
			data:    map[string]string{"Name": "test"},
			wantErr: true,
		},
		{
			name:    "unknown field errors",
			tmpl:    "{{ .Topic }}",
			data:    general,
			wantErr: true,
		},
		{
			name:    "invalid template syntax",
			tmpl:    "{{ .Name }",
			data:    general,
			wantErr: true,
		},
		{
			name: "shq function with spaces",
			tmpl: "slack-open {{ .Name | shq }}",
			data: map[string]string{"Name": "eng backend"},
			want: "slack-open 'eng backend'",
		},
		{
			name: "shq function with single quotes",
			tmpl: "echo {{ .Name | shq }}",
			data: map[string]string{"Name": "it's a test"},
			want: `echo 'it'\''s a test'`,
		},
		{
			name: "shq function with empty string",
			tmpl: "echo {{ .Name | shq }}",
			data: map[string]string{"Name": ""},
			want: "echo ''",
		},
		{
			name: "shq function with special chars",
			tmpl: "echo {{ .Name | shq }}",
			data: map[string]string{"Name": "$(whoami) && rm -rf /"},
			want: "echo '$(whoami) && rm -rf /'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.tmpl, tt.data)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Reuse(t *testing.T) {
	tpl, err := Parse("{{ .ID }}")
	require.NoError(t, err)

	for _, ch := range []channel{{ID: "C1"}, {ID: "C2"}} {
		got, err := tpl.Execute(ch)
		require.NoError(t, err)
		assert.Equal(t, ch.ID, got)
	}
}
