package cfn

import (
	"bytes"
	"embed"
	"fmt"

	kio "github.com/klothoplatform/inference-stack/pkg/io"
	"github.com/klothoplatform/inference-stack/pkg/templateutils"
)

type (
	// DeployScript is the data of the generated `deploy.sh`, which uploads the staged assets and deploys the
	// template with the AWS CLI.
	DeployScript struct {
		StackName    string
		TemplateFile string
		AssetBucket  string
		Region       string
		Assets       []DeployAsset
	}

	DeployAsset struct {
		Archive         string
		BucketParameter string
		KeyParameter    string
	}
)

const DeployScriptName = "deploy.sh"

var (
	//go:embed deploy.sh.tmpl
	files embed.FS

	deployTemplate = templateutils.MustTemplate(files, "deploy.sh.tmpl")
)

func (d DeployScript) File() (kio.File, error) {
	buf := new(bytes.Buffer)
	if err := deployTemplate.Execute(buf, d); err != nil {
		return nil, fmt.Errorf("error executing template %s: %w", DeployScriptName, err)
	}
	return &kio.RawFile{FPath: DeployScriptName, Content: buf.Bytes()}, nil
}
