package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_TargetAnalysis(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr bool
	}{
		{
			name: "complete",
			json: `{"title":"Backend Engineer","company":"Acme","required_skills":["Go"],"preferred_skills":[],"keywords":["distributed"]}`,
		},
		{
			name: "extra fields allowed",
			json: `{"required_skills":[],"preferred_skills":[],"keywords":[],"remote":true}`,
		},
		{
			name:    "missing keywords",
			json:    `{"required_skills":["Go"],"preferred_skills":[]}`,
			wantErr: true,
		},
		{
			name:    "skills must be strings",
			json:    `{"required_skills":[1,2],"preferred_skills":[],"keywords":[]}`,
			wantErr: true,
		},
		{
			name:    "root must be an object",
			json:    `["Go"]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(TargetAnalysis, tt.json)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.NotEmpty(t, validationErr.Errors)
		})
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("nope", `{}`)
	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "unknown schema")
}
