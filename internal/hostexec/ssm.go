package hostexec

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
)

// SSM dispatches commands to EC2 instances by name via AWS Systems
// Manager's SendCommand/GetCommandInvocation RPCs, the concrete
// binding for a host-binding key that the host table maps to an
// instance ID. Grounded on the teacher's direct aws-sdk-go
// dependency (otherwise unused by mkfile, which has no remote-exec
// concept) per SPEC_FULL.md §3.1.
type SSM struct {
	Client *ssm.SSM
	// Hosts maps a cookbook host-binding key to the EC2 instance ID
	// SendCommand should target; cmd/cook populates it from the
	// COOK_HOST_TABLE environment variable.
	Hosts map[string]string
	// Poll is how often to check command completion; defaults to one
	// second when zero.
	Poll time.Duration
}

// NewSSM constructs an SSM dispatcher from the default AWS session
// (environment credentials / shared config), with hosts mapping
// cookbook host-binding keys to instance IDs.
func NewSSM(hosts map[string]string) (*SSM, error) {
	sess, err := session.NewSessionWithOptions(session.Options{SharedConfigState: session.SharedConfigEnable})
	if err != nil {
		return nil, fmt.Errorf("hostexec: creating AWS session: %w", err)
	}
	return &SSM{Client: ssm.New(sess), Hosts: hosts}, nil
}

func (s *SSM) Run(hostKey, line string) (string, bool, error) {
	instanceID, ok := s.Hosts[hostKey]
	if !ok {
		return "", false, fmt.Errorf("hostexec: no instance bound to host key %q", hostKey)
	}

	sendOut, err := s.Client.SendCommand(&ssm.SendCommandInput{
		DocumentName: aws.String("AWS-RunShellScript"),
		InstanceIds:  []*string{aws.String(instanceID)},
		Parameters:   map[string][]*string{"commands": {aws.String(line)}},
	})
	if err != nil {
		return "", false, fmt.Errorf("hostexec: SendCommand: %w", err)
	}
	commandID := sendOut.Command.CommandId

	poll := s.Poll
	if poll <= 0 {
		poll = time.Second
	}
	for {
		inv, err := s.Client.GetCommandInvocation(&ssm.GetCommandInvocationInput{
			CommandId:  commandID,
			InstanceId: aws.String(instanceID),
		})
		if err != nil {
			return "", false, fmt.Errorf("hostexec: GetCommandInvocation: %w", err)
		}
		switch aws.StringValue(inv.Status) {
		case ssm.CommandInvocationStatusPending, ssm.CommandInvocationStatusInProgress, ssm.CommandInvocationStatusDelayed:
			time.Sleep(poll)
			continue
		case ssm.CommandInvocationStatusSuccess:
			return aws.StringValue(inv.StandardOutputContent), true, nil
		default:
			return aws.StringValue(inv.StandardOutputContent) + aws.StringValue(inv.StandardErrorContent), false, nil
		}
	}
}

var _ Dispatcher = (*SSM)(nil)
