package stack

import (
	"fmt"

	"github.com/klothoplatform/inference-stack/pkg/construct"
	"github.com/klothoplatform/inference-stack/pkg/provider/aws"
)

type (
	FileSystemProps struct {
		Network       *Network
		SecurityGroup construct.PropertyRef
		RemovalPolicy construct.RemovalPolicy
	}

	// InferenceFileSystem is the shared file system holding the model libraries and weights.
	InferenceFileSystem struct {
		FileSystem   construct.ResourceId
		MountTargets []construct.ResourceId
		AccessPoint  *AccessPoint
	}

	// AccessPoint is the only handle compute receives to the file system.
	AccessPoint struct {
		ID construct.ResourceId
		// MountTargets must exist before anything mounts the access point.
		MountTargets []construct.ResourceId
	}

	PosixUser struct {
		Uid string
		Gid string
	}

	CreationInfo struct {
		OwnerUid    string
		OwnerGid    string
		Permissions string
	}
)

const (
	FileSystemName = "inference"

	// InferenceUid owns everything on the file system, and is the identity functions use to access it.
	InferenceUid = "1001"
	InferenceGid = "1001"
	// AccessPointPermissions is the mode of the access point's root directory.
	AccessPointPermissions = "0777"
)

func (ap *AccessPoint) Arn() construct.PropertyRef {
	return construct.PropertyRef{Resource: ap.ID, Property: "Arn"}
}

func NewInferenceFileSystem(s *Stack, id string, props FileSystemProps) (*InferenceFileSystem, error) {
	if props.Network == nil || len(props.Network.PrivateSubnets) == 0 {
		return nil, fmt.Errorf("file system %s requires a network with private subnets", id)
	}
	removal := props.RemovalPolicy
	if removal == construct.RemovalPolicyDefault {
		removal = construct.RemovalPolicyDestroy
	}

	fs := construct.CreateResource(aws.ResourceId(aws.EfsFileSystemType, id, "inferenceFs"))
	fs.Properties["Encrypted"] = true
	fs.Properties["FileSystemTags"] = tags("Name", FileSystemName)
	fs.RemovalPolicy = removal
	if err := s.Add(fs); err != nil {
		return nil, err
	}

	efs := &InferenceFileSystem{FileSystem: fs.ID}
	for i, subnet := range props.Network.PrivateSubnets {
		mt := construct.CreateResource(aws.ResourceId(aws.EfsMountTargetType, id, fmt.Sprintf("inferenceFsEfsMountTarget%d", i+1)))
		mt.Properties["FileSystemId"] = fs.Ref()
		mt.Properties["SecurityGroups"] = []any{props.SecurityGroup}
		mt.Properties["SubnetId"] = construct.PropertyRef{Resource: subnet}
		if err := s.Add(mt); err != nil {
			return nil, err
		}
		efs.MountTargets = append(efs.MountTargets, mt.ID)
	}

	ap := construct.CreateResource(aws.ResourceId(aws.EfsAccessPointType, id, "InferenceFsAccessPoint"))
	ap.Properties["FileSystemId"] = fs.Ref()
	ap.Properties["PosixUser"] = PosixUser{Uid: InferenceUid, Gid: InferenceGid}
	ap.Properties["RootDirectory"] = map[string]any{
		"Path": "/",
		"CreationInfo": CreationInfo{
			OwnerUid:    InferenceUid,
			OwnerGid:    InferenceGid,
			Permissions: AccessPointPermissions,
		},
	}
	ap.Properties["AccessPointTags"] = tags("Name", fmt.Sprintf("%s/%s/InferenceFsAccessPoint", s.Name, id))
	if err := s.Add(ap); err != nil {
		return nil, err
	}
	efs.AccessPoint = &AccessPoint{ID: ap.ID, MountTargets: efs.MountTargets}

	if err := s.AddOutput("FilesystemId", Output{Value: fs.Ref(), ExportName: "FilesystemId"}); err != nil {
		return nil, err
	}
	if err := s.AddOutput("AccessPointId", Output{Value: ap.Ref(), ExportName: "AccessPointId"}); err != nil {
		return nil, err
	}

	s.Log.Named("filesystem").Debug(
		fmt.Sprintf("file system %s mounted in %d subnets", FileSystemName, len(efs.MountTargets)),
	)
	return efs, nil
}
