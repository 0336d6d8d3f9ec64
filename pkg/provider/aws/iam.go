package aws

const VERSION = "2012-10-17"

type (
	PolicyDocument struct {
		Version   string
		Statement []StatementEntry
	}

	StatementEntry struct {
		Effect    string
		Action    []string
		Resource  []any
		Principal *Principal
	}

	Principal struct {
		Service string
	}
)

var LAMBDA_ASSUMER_ROLE_POLICY = AssumeRolePolicy("lambda.amazonaws.com")

var EC2_ASSUMER_ROLE_POLICY = AssumeRolePolicy("ec2.amazonaws.com")

func AssumeRolePolicy(service string) *PolicyDocument {
	return &PolicyDocument{
		Version: VERSION,
		Statement: []StatementEntry{
			{
				Action: []string{"sts:AssumeRole"},
				Principal: &Principal{
					Service: service,
				},
				Effect: "Allow",
			},
		},
	}
}

// Actions returns every action granted by the document's Allow statements, in order.
func (d *PolicyDocument) Actions() []string {
	var actions []string
	for _, s := range d.Statement {
		if s.Effect == "Allow" {
			actions = append(actions, s.Action...)
		}
	}
	return actions
}
