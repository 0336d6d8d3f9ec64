package cfn

import (
	"testing"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery(t *testing.T) {
	doc := []byte(dedent.Dedent(`
		Resources:
		  Vpc:
		    Type: AWS::EC2::VPC
		    Properties:
		      CidrBlock: 10.0.0.0/16
		  Fn:
		    Type: AWS::Lambda::Function
		Outputs:
		  Url:
		    Value: https://example.com
		`))

	tests := []struct {
		name    string
		path    string
		want    []string
		wantErr bool
	}{
		{
			name: "scalar",
			path: "$.Resources.Vpc.Properties.CidrBlock",
			want: []string{"10.0.0.0/16\n"},
		},
		{
			name: "wildcard",
			path: "$.Resources.*.Type",
			want: []string{"AWS::EC2::VPC\n", "AWS::Lambda::Function\n"},
		},
		{
			name: "mapping",
			path: "$.Outputs.Url",
			want: []string{"Value: https://example.com\n"},
		},
		{
			name: "no match",
			path: "$.Parameters",
			want: []string{},
		},
		{
			name:    "invalid path",
			path:    "$.Resources[",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Query(doc, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
