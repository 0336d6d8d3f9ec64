package stack

import (
	"fmt"
	"strings"

	"github.com/klothoplatform/inference-stack/pkg/construct"
	"github.com/klothoplatform/inference-stack/pkg/provider/aws"
)

type (
	HttpApiProps struct {
		StageName string
	}

	HttpApi struct {
		stack *Stack
		ns    string

		Api   construct.ResourceId
		Stage construct.ResourceId
		// StageName is also the URL path prefix of every route.
		StageName string
	}

	CorsConfiguration struct {
		AllowHeaders []string
		AllowMethods []string
		AllowOrigins []string
		MaxAge       int
	}

	// LambdaProxyIntegration forwards the raw request to the function and returns its raw response.
	LambdaProxyIntegration struct {
		Handler construct.ResourceId
	}

	AddRoutesOptions struct {
		Path        string
		Methods     []string
		Integration LambdaProxyIntegration
	}
)

const (
	ApiName = "InferenceApi"

	// PayloadFormatVersion of the event sent to the functions.
	PayloadFormatVersion = "2.0"
)

// Cors is the preflight configuration of the gateway. It does not depend on the routes.
var Cors = CorsConfiguration{
	AllowHeaders: []string{"Authorization"},
	AllowMethods: []string{"GET", "POST", "OPTIONS"},
	AllowOrigins: []string{"*"},
	MaxAge:       10 * 24 * 60 * 60,
}

func NewHttpApi(s *Stack, id string, props HttpApiProps) (*HttpApi, error) {
	if props.StageName == "" {
		props.StageName = "dev"
	}

	api := construct.CreateResource(aws.ResourceId(aws.ApiType, id, id))
	api.Properties["Name"] = ApiName
	api.Properties["ProtocolType"] = "HTTP"
	api.Properties["CorsConfiguration"] = Cors

	stage := construct.CreateResource(aws.ResourceId(aws.ApiStageType, id, id+"Stage"))
	stage.Properties["ApiId"] = api.Ref()
	stage.Properties["StageName"] = props.StageName
	stage.Properties["AutoDeploy"] = true

	if err := s.AddAll(api, stage); err != nil {
		return nil, err
	}

	gw := &HttpApi{
		stack:     s,
		ns:        id,
		Api:       api.ID,
		Stage:     stage.ID,
		StageName: props.StageName,
	}
	err := s.AddOutput(id+"Url", Output{
		Value:      gw.Url(),
		ExportName: "HttpApiUrl",
	})
	if err != nil {
		return nil, err
	}
	return gw, nil
}

// Url is the base URL of the deployed stage, including the stage name.
func (gw *HttpApi) Url() aws.Join {
	return aws.JoinAll(
		"https://",
		construct.PropertyRef{Resource: gw.Api},
		".execute-api.",
		aws.PseudoRegion,
		".",
		aws.PseudoURLSuffix,
		"/",
		gw.StageName,
	)
}

// AddRoutes binds `opts.Path` to the integration for each method. The gateway does not check for existing
// routes: adding the same method and path twice fails when the graph rejects the duplicate route id.
func (gw *HttpApi) AddRoutes(opts AddRoutesOptions) ([]construct.ResourceId, error) {
	if !strings.HasPrefix(opts.Path, "/") {
		return nil, fmt.Errorf("route path %q must start with '/'", opts.Path)
	}
	if len(opts.Methods) == 0 {
		return nil, fmt.Errorf("route %s has no methods", opts.Path)
	}
	s := gw.stack
	api := construct.PropertyRef{Resource: gw.Api}
	fnArn := construct.PropertyRef{Resource: opts.Integration.Handler, Property: "Arn"}

	var routes []construct.ResourceId
	for _, method := range opts.Methods {
		key := RouteKey(method, opts.Path)

		integration := construct.CreateResource(aws.ResourceId(aws.ApiIntegrationType, gw.ns, key+" Integration"))
		integration.Properties["ApiId"] = api
		integration.Properties["IntegrationType"] = "AWS_PROXY"
		integration.Properties["IntegrationUri"] = fnArn
		integration.Properties["PayloadFormatVersion"] = PayloadFormatVersion

		route := construct.CreateResource(aws.ResourceId(aws.ApiRouteType, gw.ns, key))
		route.Properties["ApiId"] = api
		route.Properties["RouteKey"] = key
		route.Properties["AuthorizationType"] = "NONE"
		route.Properties["Target"] = aws.JoinAll("integrations/", integration.Ref())

		permission := construct.CreateResource(aws.ResourceId(aws.LambdaPermissionType, gw.ns, key+" Permission"))
		permission.Properties["Action"] = "lambda:InvokeFunction"
		permission.Properties["FunctionName"] = fnArn
		permission.Properties["Principal"] = "apigateway.amazonaws.com"
		permission.Properties["SourceArn"] = aws.JoinAll(
			"arn:", aws.PseudoPartition,
			":execute-api:", aws.PseudoRegion,
			":", aws.PseudoAccountId,
			":", api,
			"/*/*", opts.Path,
		)

		if err := s.AddAll(integration, route, permission); err != nil {
			return routes, fmt.Errorf("could not add route %s: %w", key, err)
		}
		routes = append(routes, route.ID)
		s.Log.Named("gateway").Debug("added route " + key)
	}
	return routes, nil
}

func RouteKey(method, path string) string {
	return fmt.Sprintf("%s %s", strings.ToUpper(method), path)
}
