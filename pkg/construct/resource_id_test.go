package construct

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceId_String(t *testing.T) {
	tests := []struct {
		name string
		id   ResourceId
		want string
	}{
		{
			name: "zero",
			id:   ResourceId{},
			want: "",
		},
		{
			name: "no namespace",
			id:   ResourceId{Provider: "aws", Type: "vpc", Name: "Vpc"},
			want: "aws:vpc:Vpc",
		},
		{
			name: "namespaced",
			id:   ResourceId{Provider: "aws", Type: "lambda_function", Namespace: "DetrInferenceEngine", Name: "detrInferenceFunction"},
			want: "aws:lambda_function:DetrInferenceEngine:detrInferenceFunction",
		},
		{
			name: "name with colon",
			id:   ResourceId{Provider: "aws", Type: "x", Name: "a:b"},
			want: "aws:x::a:b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.id.String())
		})
	}
}

func TestResourceId_UnmarshalText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ResourceId
		wantErr bool
	}{
		{
			name:  "provider type name",
			input: "aws:vpc:Vpc",
			want:  ResourceId{Provider: "aws", Type: "vpc", Name: "Vpc"},
		},
		{
			name:  "with namespace",
			input: "aws:vpc_subnet:Vpc:PrivateSubnet1",
			want:  ResourceId{Provider: "aws", Type: "vpc_subnet", Namespace: "Vpc", Name: "PrivateSubnet1"},
		},
		{
			name:  "route key name",
			input: "aws:apigatewayv2_route:HttpApi:POST /inference/detr",
			want:  ResourceId{Provider: "aws", Type: "apigatewayv2_route", Namespace: "HttpApi", Name: "POST /inference/detr"},
		},
		{
			name:    "provider only without colon",
			input:   "aws",
			wantErr: true,
		},
		{
			name:    "invalid type",
			input:   "aws:vpc!:x",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			var id ResourceId
			err := id.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tt.want, id)
			assert.Equal(tt.input, id.String())
		})
	}
}

func TestResourceId_Matches(t *testing.T) {
	id := ResourceId{Provider: "aws", Type: "lambda_function", Namespace: "YoloInferenceEngine", Name: "yoloInferenceFunction"}

	assert := assert.New(t)
	assert.True(ResourceId{}.Matches(id))
	assert.True(ResourceId{Type: "lambda_function"}.Matches(id))
	assert.True(ResourceId{Provider: "aws", Namespace: "YoloInferenceEngine"}.Matches(id))
	assert.False(ResourceId{Type: "iam_role"}.Matches(id))
	assert.False(ResourceId{Namespace: "DetrInferenceEngine"}.Matches(id))
}

func TestPropertyRef_Text(t *testing.T) {
	assert := assert.New(t)

	ref := PropertyRef{Resource: ResourceId{Provider: "aws", Type: "efs_access_point", Namespace: "fs", Name: "ap"}, Property: "Arn"}
	b, err := ref.MarshalText()
	assert.NoError(err)
	assert.Equal("aws:efs_access_point:fs:ap#Arn", string(b))

	var parsed PropertyRef
	assert.NoError(parsed.UnmarshalText(b))
	assert.Equal(ref, parsed)

	var primary PropertyRef
	assert.NoError(primary.UnmarshalText([]byte("aws:vpc:Vpc")))
	assert.Equal(PropertyRef{Resource: ResourceId{Provider: "aws", Type: "vpc", Name: "Vpc"}}, primary)
}
